package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/config"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/tuner"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Inspect and create the hashsweep configuration file.

The file lives at $XDG_CONFIG_HOME/hashsweep/config.yaml (usually
~/.config/hashsweep/config.yaml). Environment variables with the HASHSWEEP_
prefix override it, and flags override both:

  HASHSWEEP_WORKERS=4
  HASHSWEEP_MANIFEST_FILE=checksums.txt
  HASHSWEEP_HISTORY_ENABLED=false`,
}

func init() {
	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the merged configuration as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return writeSettings(cmd.OutOrStdout(), viper.ConfigFileUsed(), viper.AllSettings())
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Validate the configuration and print the resolved run settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				return writeResolved(cmd.OutOrStdout(), cfg)
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a commented default configuration file",
			Args:  cobra.NoArgs,
			RunE:  runConfigInit,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				path := configFilePath()
				fmt.Fprintln(cmd.OutOrStdout(), path)
				if _, err := os.Stat(path); os.IsNotExist(err) {
					printVerbose("File does not exist (defaults apply)")
				}
			},
		},
	)
	rootCmd.AddCommand(configCmd)
}

func writeSettings(w io.Writer, file string, settings map[string]interface{}) error {
	if file == "" {
		file = "(none, defaults apply)"
	}
	fmt.Fprintf(w, "# Config file: %s\n", file)

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// writeResolved prints the values a run would actually use, after defaults,
// size parsing and worker auto-tuning.
func writeResolved(w io.Writer, cfg *config.Config) error {
	bufSize, err := cfg.BufferBytes()
	if err != nil {
		return err
	}

	workers := fmt.Sprintf("%d", tuner.Resolve(cfg.Workers, bufSize))
	if cfg.Workers == 0 {
		workers += " (auto)"
	}

	history := "disabled"
	if cfg.History.Enabled {
		history = cfg.HistoryPath()
	}

	rows := [][2]string{
		{"root", cfg.Root},
		{"manifest", cfg.ManifestPath()},
		{"workers", workers},
		{"buffer", humanize.IBytes(uint64(bufSize))},
		{"output", cfg.Output},
		{"history", history},
		{"log", cfg.Logging.Path},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(w, "%-9s %s\n", row[0]+":", row[1])
	}
	return nil
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	path := configFilePath()

	created, err := config.WriteDefault(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if created {
		printInfo("Created default config file: %s", path)
	} else {
		printInfo("Config file already exists: %s", path)
	}
	return nil
}

// configFilePath is the --config file when given, the default otherwise.
func configFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.ConfigFile()
}
