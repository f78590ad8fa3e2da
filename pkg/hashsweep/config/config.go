package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// appName names the XDG subdirectories and the env prefix.
const appName = "hashsweep"

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// HistoryConfig configures the run history store.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	Root       string   `mapstructure:"root"`
	Exclude    []string `mapstructure:"exclude"`
	Workers    int      `mapstructure:"workers"`
	BufferSize string   `mapstructure:"buffer_size"`
	Output     string   `mapstructure:"output"`
	Template   string   `mapstructure:"template"`
	Pause      bool     `mapstructure:"pause"`
	Progress   bool     `mapstructure:"progress"`
	Quiet      bool     `mapstructure:"quiet"`
	Verbose    bool     `mapstructure:"verbose"`
	Manifest   struct {
		File string `mapstructure:"file"`
	} `mapstructure:"manifest"`
	History HistoryConfig `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("root", DefaultRoot)
	v.SetDefault("exclude", DefaultExclusions)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("buffer_size", DefaultBufferSize)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("template", "")
	v.SetDefault("pause", true)
	v.SetDefault("progress", true)
	v.SetDefault("quiet", false)
	v.SetDefault("verbose", false)
	v.SetDefault("manifest.file", DefaultManifestFile)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "") // Empty means DefaultHistoryPath()
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.path", "") // Empty means DefaultLogPath()
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"checker": "info",
		"walker":  "warn",
		"history": "info",
	})
}

// Configure points v at the config file search path and environment.
// An explicit cfgFile takes precedence over the search path.
func Configure(v *viper.Viper, cfgFile string) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
	}

	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
}

// ReadInConfig reads the config file into v. A missing file is not an error.
func ReadInConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/hashsweep/config.yaml
//   - $HOME/.config/hashsweep/config.yaml
//
// Environment variables are prefixed with HASHSWEEP_ (e.g., HASHSWEEP_WORKERS).
func Load() (*Config, error) {
	v := viper.New()
	Configure(v, "")
	if err := ReadInConfig(v); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper decodes v into a Config and expands ~ in paths.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var err error
	if cfg.History.Path, err = ExpandPath(cfg.History.Path); err != nil {
		return nil, err
	}
	if cfg.Logging.Path, err = ExpandPath(cfg.Logging.Path); err != nil {
		return nil, err
	}
	if cfg.Root == "" {
		cfg.Root = DefaultRoot
	}
	if cfg.Manifest.File == "" {
		cfg.Manifest.File = DefaultManifestFile
	}

	return &cfg, nil
}

// Validate checks values that cannot be caught by decoding.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if _, err := c.BufferBytes(); err != nil {
		return err
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days must be >= 0, got %d", c.History.RetentionDays)
	}
	return nil
}

// BufferBytes parses BufferSize ("8MiB", "4 MB", "1048576").
func (c *Config) BufferBytes() (int, error) {
	s := c.BufferSize
	if s == "" {
		s = DefaultBufferSize
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid buffer_size %q: %w", s, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid buffer_size %q: must be positive", s)
	}
	if n > 1<<30 {
		return 0, fmt.Errorf("invalid buffer_size %q: must be at most 1GiB", s)
	}
	return int(n), nil
}

// ManifestPath returns the manifest path. The manifest always lives in the
// working directory unless the configured file name is itself a path.
func (c *Config) ManifestPath() string {
	return c.Manifest.File
}

// HistoryPath returns the configured history directory or the default.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return DefaultHistoryPath()
}

// LogMaxSize parses the rotation max size, falling back to 10MB.
func (c *Config) LogMaxSize() int64 {
	n, err := humanize.ParseBytes(c.Logging.Rotation.MaxSize)
	if err != nil || n == 0 {
		return 10 * 1000 * 1000
	}
	return int64(n)
}

// ConfigDir returns $XDG_CONFIG_HOME/hashsweep.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns $XDG_DATA_HOME/hashsweep for the history database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// StateDir returns $XDG_STATE_HOME/hashsweep for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}

// DefaultHistoryPath returns the default history database directory.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), appName+".log")
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// WriteDefault writes a default config file to path if none exists.
// It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(DefaultFileContents()), 0o644); err != nil {
		return false, fmt.Errorf("failed to write default config: %w", err)
	}
	return true, nil
}

// DefaultFileContents renders the commented default config file.
func DefaultFileContents() string {
	return fmt.Sprintf(`# hashsweep configuration

# Directory to hash when no path argument is given
root: %s

# Glob patterns to skip (matched against relative path and base name)
exclude: []

# Files hashed concurrently; 0 picks a value from CPU and memory
workers: %d

# Read buffer per worker
buffer_size: %s

# Report format: plain, pretty, json, yaml, template
output: %s

# Wait for a key press before exiting
pause: true

# Show a progress bar on stderr when it is a terminal
progress: true

manifest:
  file: %s

# Record of past runs
history:
  enabled: true
  # Empty means $XDG_DATA_HOME/hashsweep/history
  path: ""
  retention_days: %d

logging:
  # debug, info, warn, error
  level: %s
  # Empty means $XDG_STATE_HOME/hashsweep/hashsweep.log
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    checker: info
    walker: warn
    history: info
`, DefaultRoot, DefaultWorkers, DefaultBufferSize, DefaultOutput, DefaultManifestFile,
		DefaultRetentionDays, DefaultLogLevel)
}
