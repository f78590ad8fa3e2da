package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/config"
	"github.com/jamesainslie/hashsweep/pkg/hashsweep/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "hashsweep [path]",
		Short: "Hash a directory tree and verify it later",
		Long: `hashsweep records an XXH3-128 digest for every file under a directory
and checks the tree against that record on later runs.

When hashes.txt is absent, every file is hashed and the manifest is written.
When it is present, every listed file is re-hashed and reported as verified,
failed or not found.

Examples:
  hashsweep                  # Generate or verify ./hashes.txt for .
  hashsweep photos           # Hash the photos directory
  hashsweep -w 0 --no-pause  # Auto-tune workers, exit without a key press
  hashsweep -o json          # Machine-readable report
  hashsweep history          # Past runs`,
		Args:              cobra.MaximumNArgs(1),
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: initLogging,
		PersistentPostRun: func(*cobra.Command, []string) { _ = logging.Close() },
		RunE:              runCheck,
	}
)

// exitError carries a process exit status out of a command without
// printing anything further.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/hashsweep/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress status lines and progress")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "mirror debug logs to stderr")

	rootCmd.Flags().StringP("output", "o", "", "report format: plain, pretty, json, yaml, template")
	rootCmd.Flags().String("template", "", "template for -o template, e.g. '{{verified}} ok\\n'")
	rootCmd.Flags().IntP("workers", "w", 0, "files hashed concurrently (0=auto)")
	rootCmd.Flags().StringSliceP("exclude", "e", nil, "glob patterns to skip (repeatable)")
	rootCmd.Flags().StringP("manifest", "m", "", "manifest file (default: hashes.txt)")
	rootCmd.Flags().String("buffer-size", "", "read buffer per worker (e.g. 8MiB)")
	rootCmd.Flags().Bool("no-pause", false, "exit without waiting for a key press")
	rootCmd.Flags().Bool("no-progress", false, "disable the progress bar")
	rootCmd.Flags().Bool("no-history", false, "do not record this run in history")

	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("template", rootCmd.Flags().Lookup("template"))
	_ = viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("exclude", rootCmd.Flags().Lookup("exclude"))
	_ = viper.BindPFlag("manifest.file", rootCmd.Flags().Lookup("manifest"))
	_ = viper.BindPFlag("buffer_size", rootCmd.Flags().Lookup("buffer-size"))
}

// initConfig points the global viper at the config file and environment.
func initConfig() {
	config.Configure(viper.GetViper(), cfgFile)
	if err := config.ReadInConfig(viper.GetViper()); err != nil {
		printError("%v", err)
	}
}

// loadConfig decodes the effective configuration and applies the negated
// boolean flags, which viper cannot bind directly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if flagSet(cmd, "no-pause") {
		cfg.Pause = false
	}
	if flagSet(cmd, "no-progress") {
		cfg.Progress = false
	}
	if flagSet(cmd, "no-history") {
		cfg.History.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func flagSet(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed && f.Value.String() == "true"
}

// initLogging starts the file logger. A logging failure is reported but
// does not stop the command.
func initLogging(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return err
	}

	logCfg := logging.Config{
		Level: cfg.Logging.Level,
		Path:  cfg.Logging.Path,
		Rotation: logging.RotationConfig{
			MaxSize:    cfg.LogMaxSize(),
			MaxAge:     cfg.Logging.Rotation.MaxAge,
			MaxBackups: cfg.Logging.Rotation.MaxBackups,
			Daily:      cfg.Logging.Rotation.Daily,
		},
		Components: cfg.Logging.Components,
	}
	if cfg.Verbose {
		logCfg.ConsoleLevel = "debug"
	}

	if err := logging.Init(logCfg); err != nil {
		printVerbose("Logging disabled: %v", err)
	}
	logging.Get("cli").Debug("Command started", "command", cmd.CommandPath())
	return nil
}

// Execute runs the root command and prints any error that is not an exit
// status.
func Execute() error {
	err := rootCmd.Execute()
	var exitErr *exitError
	if err != nil && !errors.As(err, &exitErr) {
		printError("%v", err)
	}
	return err
}

func getVerbose() bool {
	return viper.GetBool("verbose")
}

func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
