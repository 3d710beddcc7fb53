// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingValue is returned by Validate when a required setting is empty.
var ErrMissingValue = errors.New("missing required configuration value")

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Reset    ResetConfig    `mapstructure:"reset"`
	Level    LevelConfig    `mapstructure:"level"`
	Mission  MissionConfig  `mapstructure:"mission"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Ops      OpsConfig      `mapstructure:"ops"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// ResetConfig holds the daily mission reset schedule.
type ResetConfig struct {
	// Time is the wall-clock time of day of the reset, "HH:MM" or "HH:MM:SS".
	Time string `mapstructure:"time"`
	// UTCOffset is the fixed zone offset the time is expressed in, e.g. "+09:00".
	UTCOffset     string        `mapstructure:"utc_offset"`
	Concurrency   int           `mapstructure:"concurrency"`
	TxTimeout     time.Duration `mapstructure:"tx_timeout"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	TriggerBuffer int           `mapstructure:"trigger_buffer"`
}

// LevelConfig holds the experience table configuration.
type LevelConfig struct {
	TablePath string `mapstructure:"table_path"`
	MaxLevel  int    `mapstructure:"max_level"`
}

// MissionConfig holds daily mission configuration.
type MissionConfig struct {
	CompleteExp int64         `mapstructure:"complete_exp"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// AuthConfig holds token configuration.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// OpsConfig holds the operational HTTP listener configuration.
// An empty Addr disables the listener.
type OpsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// e.g. DATABASE_HOST, RESET_TIME, LEVEL_TABLE_PATH
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional, env vars can provide all config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "missions")
	v.SetDefault("database.name", "missions")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// 20:00 UTC is 05:00 JST
	v.SetDefault("reset.time", "20:00:00")
	v.SetDefault("reset.utc_offset", "+00:00")
	v.SetDefault("reset.concurrency", 16)
	v.SetDefault("reset.tx_timeout", "10s")
	v.SetDefault("reset.retry_delay", "1s")
	v.SetDefault("reset.trigger_buffer", 1)

	v.SetDefault("level.table_path", "configs/exp_table.csv")
	v.SetDefault("level.max_level", 100)

	v.SetDefault("mission.complete_exp", 2)
	v.SetDefault("mission.lock_timeout", "5s")

	v.SetDefault("auth.issuer", "daily-mission-tracker")
	v.SetDefault("auth.token_ttl", "1h")

	v.SetDefault("ops.addr", ":9090")
	v.SetDefault("log.level", "info")
}

// Validate checks that required settings are present and parseable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Level.TablePath) == "" {
		return fmt.Errorf("%w: level.table_path", ErrMissingValue)
	}
	if strings.TrimSpace(c.Reset.Time) == "" {
		return fmt.Errorf("%w: reset.time", ErrMissingValue)
	}
	if _, err := ParseTimeOfDay(c.Reset.Time); err != nil {
		return fmt.Errorf("invalid reset.time: %w", err)
	}
	if _, err := ParseUTCOffset(c.Reset.UTCOffset); err != nil {
		return fmt.Errorf("invalid reset.utc_offset: %w", err)
	}
	if c.Level.MaxLevel < 1 {
		return fmt.Errorf("invalid level.max_level: %d", c.Level.MaxLevel)
	}
	if c.Reset.Concurrency < 1 {
		return fmt.Errorf("invalid reset.concurrency: %d", c.Reset.Concurrency)
	}
	return nil
}

// ResetLocation returns the fixed zone the reset time is expressed in.
func (c *Config) ResetLocation() *time.Location {
	loc, err := ParseUTCOffset(c.Reset.UTCOffset)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" into a duration since midnight.
func ParseTimeOfDay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("time of day %q must be HH:MM or HH:MM:SS", s)
}

// ParseUTCOffset parses an offset such as "+09:00", "-05:30" or "Z".
// An empty string means UTC.
func ParseUTCOffset(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "Z" || s == "+00:00" || s == "-00:00" {
		return time.UTC, nil
	}
	t, err := time.Parse("-07:00", s)
	if err != nil {
		return nil, fmt.Errorf("utc offset %q must look like +09:00", s)
	}
	_, offset := t.Zone()
	return time.FixedZone("UTC"+s, offset), nil
}
