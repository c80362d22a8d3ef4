package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/easyd/internal/logger"
	"github.com/loykin/easyd/internal/process"
	"github.com/loykin/easyd/internal/store/tomlfile"
)

// DefaultFile is read when no --config is given and the file exists.
const DefaultFile = "easyd.toml"

// EnvPrefix namespaces environment overrides, e.g. EASYD_REGISTRY or
// EASYD_STOP_GRACE_PERIOD.
const EnvPrefix = "EASYD"

// Config is the top-level TOML structure:
//
//	registry = "easy_daemon_config.toml"
//
//	[stop]
//	grace_period = "2s"
//
//	[log]
//	level = "info"
//	file = "/var/log/easyd.log"
//	color = "auto"
//
//	[metrics]
//	textfile = "/var/lib/node_exporter/easyd.prom"
type Config struct {
	Registry string        `toml:"registry" mapstructure:"registry"`
	Stop     StopConfig    `toml:"stop" mapstructure:"stop"`
	Log      LogConfig     `toml:"log" mapstructure:"log"`
	Metrics  MetricsConfig `toml:"metrics" mapstructure:"metrics"`
}

type StopConfig struct {
	GracePeriod time.Duration `toml:"grace_period" mapstructure:"grace_period"`
}

type LogConfig struct {
	Level      string `toml:"level" mapstructure:"level"`
	File       string `toml:"file" mapstructure:"file"`
	Color      string `toml:"color" mapstructure:"color"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

type MetricsConfig struct {
	Textfile string `toml:"textfile" mapstructure:"textfile"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("registry", tomlfile.DefaultPath)
	v.SetDefault("stop.grace_period", process.DefaultGracePeriod)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.color", logger.ColorAuto)
	v.SetDefault("log.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("log.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("log.max_age_days", logger.DefaultMaxAgeDays)
	v.SetDefault("log.compress", false)
	v.SetDefault("metrics.textfile", "")
}

// Load builds the configuration from defaults, the TOML file at path and
// EASYD_* environment variables, in increasing priority. An empty path
// reads DefaultFile from the working directory when it exists.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file := strings.TrimSpace(path)
	if file == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			file = DefaultFile
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects values the rest of the program cannot use.
func (c Config) Validate() error {
	var errs []error
	if c.Stop.GracePeriod < 0 {
		errs = append(errs, fmt.Errorf("stop.grace_period must not be negative, got %s", c.Stop.GracePeriod))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(c.Log.Color) {
	case logger.ColorAuto, logger.ColorAlways, logger.ColorNever, "":
	default:
		errs = append(errs, fmt.Errorf("log.color must be auto, always or never, got %q", c.Log.Color))
	}
	return errors.Join(errs...)
}

// LoggerConfig maps the [log] table onto logger.Config.
func (c Config) LoggerConfig() logger.Config {
	lvl, _ := logger.ParseLevel(c.Log.Level)
	return logger.Config{
		Level: lvl,
		Color: strings.ToLower(c.Log.Color),
		File: logger.FileConfig{
			Path:       c.Log.File,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAgeDays: c.Log.MaxAgeDays,
			Compress:   c.Log.Compress,
		},
	}
}

// Terminator returns the stop protocol configured by [stop].
func (c Config) Terminator() process.Terminator {
	return process.Terminator{GracePeriod: c.Stop.GracePeriod}
}
