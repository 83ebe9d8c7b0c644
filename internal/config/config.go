package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Global configuration structure.
type Global struct {
	// Mode selects canned local replies or the external backend.
	Mode       string `mapstructure:"mode" yaml:"mode"`
	BackendURL string `mapstructure:"backend_url" yaml:"backend_url"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Analysis and session limits
	SampleSize  int `mapstructure:"sample_size" yaml:"sample_size"`
	CacheSize   int `mapstructure:"cache_size" yaml:"cache_size"`
	MaxUploadMB int `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`

	ProgressIntervalMs int    `mapstructure:"progress_interval_ms" yaml:"progress_interval_ms"`
	LogLevel           string `mapstructure:"log_level" yaml:"log_level"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"mode",
	"backend_url",
	"http_timeout_sec",
	"retry_max_attempts",
	"retry_base_delay_ms",
	"retry_max_delay_ms",
	"sample_size",
	"cache_size",
	"max_upload_mb",
	"progress_interval_ms",
	"log_level",
}

// Defaults returns the built-in configuration.
func Defaults() Global {
	return Global{
		Mode:               ModeLocal,
		BackendURL:         "http://127.0.0.1:8000",
		HTTPTimeoutSec:     60,
		RetryMaxAttempts:   3,
		RetryBaseDelayMs:   500,
		RetryMaxDelayMs:    4000,
		SampleSize:         10,
		CacheSize:          64,
		MaxUploadMB:        10,
		ProgressIntervalMs: 300,
		LogLevel:           "warn",
	}
}

// DefaultPath returns ~/.docassist/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".docassist", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.docassist/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A .env file in the working
// directory seeds the environment without overriding variables already set.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetEnvPrefix("DOCASSIST")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("mode", d.Mode)
	v.SetDefault("backend_url", d.BackendURL)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", d.HTTPTimeoutSec)
	v.SetDefault("retry_max_attempts", d.RetryMaxAttempts)
	v.SetDefault("retry_base_delay_ms", d.RetryBaseDelayMs)
	v.SetDefault("retry_max_delay_ms", d.RetryMaxDelayMs)
	v.SetDefault("sample_size", d.SampleSize)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("max_upload_mb", d.MaxUploadMB)
	v.SetDefault("progress_interval_ms", d.ProgressIntervalMs)
	v.SetDefault("log_level", d.LogLevel)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(p))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a missing file falls back to defaults
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks enumerated and positive-only settings.
func (c *Global) Validate() error {
	switch c.Mode {
	case ModeLocal, ModeRemote:
	default:
		return fmt.Errorf("invalid mode %q (want %s or %s)", c.Mode, ModeLocal, ModeRemote)
	}
	if c.SampleSize <= 0 {
		return fmt.Errorf("sample_size must be positive, got %d", c.SampleSize)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.MaxUploadMB)
	}
	return nil
}

// MaxUploadBytes converts MaxUploadMB to bytes.
func (c *Global) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}
