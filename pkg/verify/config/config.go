package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// CriticalConfig configures which manifest files must exist locally.
type CriticalConfig struct {
	Suffixes []string `mapstructure:"suffixes"`
	Names    []string `mapstructure:"names"`
}

// CacheConfig configures the optional digest cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// HistoryConfig configures the run audit log.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

// Config represents the application configuration.
type Config struct {
	// APIBase is the ModelScope API endpoint.
	APIBase string `mapstructure:"api_base"`

	// Repository is the default repository identifier, e.g.
	// "Qwen/Qwen3-235B-A22B".
	Repository string `mapstructure:"repository"`

	// Revision is the manifest revision.
	Revision string `mapstructure:"revision"`

	// LocalDir is the cached repository directory to verify.
	LocalDir string `mapstructure:"local_dir"`

	// CacheRoot is the snapshot cache directory the fetcher uses.
	CacheRoot string `mapstructure:"cache_root"`

	// Workers bounds the digest pool; 0 selects the automatic bound.
	Workers int `mapstructure:"workers"`

	// Output selects the report formatter.
	Output string `mapstructure:"output"`

	Critical CriticalConfig `mapstructure:"critical"`
	Cache    CacheConfig    `mapstructure:"cache"`
	History  HistoryConfig  `mapstructure:"history"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Load reads configuration from file and environment.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/modelverify/config.yaml
//   - $HOME/.config/modelverify/config.yaml
//
// Environment variables are prefixed with MODELVERIFY_
// (e.g. MODELVERIFY_LOCAL_DIR).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "modelverify"))
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "modelverify"))

	v.SetEnvPrefix("MODELVERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LocalDir, err = ExpandPath(cfg.LocalDir); err != nil {
		return nil, err
	}
	if cfg.CacheRoot, err = ExpandPath(cfg.CacheRoot); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SetDefaults registers default values on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api_base", DefaultAPIBase)
	v.SetDefault("revision", DefaultRevision)
	v.SetDefault("workers", 0)
	v.SetDefault("output", DefaultOutputFormat)
	v.SetDefault("critical.suffixes", DefaultCriticalSuffixes)
	v.SetDefault("critical.names", DefaultCriticalNames)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", DefaultCachePath())
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", DefaultHistoryPath())
	v.SetDefault("history.retention_days", DefaultRetentionDays)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
}

// ExpandPath expands a leading ~ to the user's home directory.
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

// ConfigDir returns the configuration directory path.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "modelverify")
}

// DefaultCachePath returns $XDG_CACHE_HOME/modelverify/digests.
func DefaultCachePath() string {
	return filepath.Join(xdg.CacheHome, "modelverify", "digests")
}

// DefaultHistoryPath returns $XDG_DATA_HOME/modelverify/history.
func DefaultHistoryPath() string {
	return filepath.Join(xdg.DataHome, "modelverify", "history")
}
