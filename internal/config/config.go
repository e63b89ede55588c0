package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/basalcoach/basalcoach/internal/therapy"
)

// Config is the top-level basalcoach configuration.
type Config struct {
	Goals        therapy.Goals `mapstructure:"goals"`
	HistoryLimit int           `mapstructure:"history_limit"`
	InboxDir     string        `mapstructure:"inbox_dir"`
	DBPath       string        `mapstructure:"db_path"`
	Watch        Watch         `mapstructure:"watch"`
	Server       Server        `mapstructure:"server"`
	Output       Output        `mapstructure:"output"`
	Log          Log           `mapstructure:"log"`
}

// Watch defines the inbox watcher settings.
type Watch struct {
	Interval time.Duration `mapstructure:"interval"`
	Notify   bool          `mapstructure:"notify"`
}

// Server defines the HTTP API listener.
type Server struct {
	Addr string `mapstructure:"addr"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width"`
}

// Log defines logging preferences. Level is any logrus level name; Format
// is "text" or "json".
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied. BASALCOACH_* environment
// variables override file values, e.g. BASALCOACH_SERVER_ADDR.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Set defaults.
	v.SetDefault("goals.target_tir", DefaultGoals.TargetTIR)
	v.SetDefault("goals.target_range_low", DefaultGoals.TargetRangeLow)
	v.SetDefault("goals.target_range_high", DefaultGoals.TargetRangeHigh)
	v.SetDefault("goals.max_low_percentage", DefaultGoals.MaxLowPercentage)
	v.SetDefault("goals.max_very_low_percentage", DefaultGoals.MaxVeryLowPercentage)
	v.SetDefault("history_limit", DefaultHistoryLimit)
	v.SetDefault("inbox_dir", DefaultInboxDir)
	v.SetDefault("db_path", "")
	v.SetDefault("watch.interval", DefaultWatch.Interval)
	v.SetDefault("watch.notify", DefaultWatch.Notify)
	v.SetDefault("server.addr", DefaultServer.Addr)
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)
	v.SetDefault("log.level", DefaultLog.Level)
	v.SetDefault("log.format", DefaultLog.Format)

	v.SetEnvPrefix("basalcoach")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		configDir := expandPath(DefaultConfigDir)
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Read config file if it exists; missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.InboxDir = expandPath(cfg.InboxDir)
	if cfg.DBPath == "" {
		cfg.DBPath = DBPath()
	}
	cfg.DBPath = expandPath(cfg.DBPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if err := c.Goals.Validate(); err != nil {
		return fmt.Errorf("goals: %w", err)
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be at least 1, got %d", c.HistoryLimit)
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive, got %s", c.Watch.Interval)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// DBPath returns the full path to the SQLite database.
func DBPath() string {
	return filepath.Join(expandPath(DefaultConfigDir), DefaultDBName)
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}
