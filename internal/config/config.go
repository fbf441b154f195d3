// Package config loads fieldsync settings from file, environment and
// defaults.
//
// Settings come from .fieldsync/config.yaml (or a path given with --config),
// overridable through FIELDSYNC_* environment variables, e.g.
// FIELDSYNC_API_TOKEN for api.token.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the resolved runtime configuration.
type Config struct {
	API struct {
		BaseURL string `mapstructure:"base_url"`
		Token   string `mapstructure:"token"`
		// Timeout bounds each customer/area/upload request. The product
		// download runs under sync.product_timeout instead.
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"api"`

	DB struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"db"`

	Sync struct {
		ProductTimeout  time.Duration `mapstructure:"product_timeout"`
		ProductAttempts int           `mapstructure:"product_attempts"`
		BackoffBase     time.Duration `mapstructure:"backoff_base"`
	} `mapstructure:"sync"`

	Daemon struct {
		RefreshInterval time.Duration `mapstructure:"refresh_interval"`
		UploadInterval  time.Duration `mapstructure:"upload_interval"`
	} `mapstructure:"daemon"`

	Dashboard struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"dashboard"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		File   string `mapstructure:"file"`
	} `mapstructure:"log"`
}

// Dir returns the fieldsync state directory, honoring FIELDSYNC_HOME.
func Dir() string {
	if dir := os.Getenv("FIELDSYNC_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fieldsync"
	}
	return filepath.Join(home, ".fieldsync")
}

// Load reads configuration from the given file (empty = default location),
// merging environment variables and defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("api.base_url", "")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("db.path", filepath.Join(Dir(), "cache.db"))
	v.SetDefault("sync.product_timeout", 120*time.Second)
	v.SetDefault("sync.product_attempts", 3)
	v.SetDefault("sync.backoff_base", 2*time.Second)
	v.SetDefault("daemon.refresh_interval", 6*time.Hour)
	v.SetDefault("daemon.upload_interval", time.Minute)
	v.SetDefault("dashboard.port", 8787)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FIELDSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env and defaults carry it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// NewLogger builds the process logger from the log settings. When a log file
// is configured, output rotates through lumberjack; otherwise it goes to
// stderr.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if c.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if c.Log.File != "" {
		logger.SetOutput(&lumberjack.Logger{
			Filename:   c.Log.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	} else {
		logger.SetOutput(os.Stderr)
	}

	return logger
}
