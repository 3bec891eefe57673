package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"outagewatch/internal/logging"
)

const defaultProbeTimeout = time.Second

const (
	// DriverSQLite stores outages in a local SQLite file.
	DriverSQLite = "sqlite"
	// DriverPostgres stores outages in PostgreSQL.
	DriverPostgres = "postgres"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Report   ReportConfig   `mapstructure:"report"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig selects and tunes the outage storage backend.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// WatchConfig governs the probe target and sampling cadence.
type WatchConfig struct {
	TargetIP        string        `mapstructure:"target_ip"`
	TargetPort      int           `mapstructure:"target_port"`
	Interval        time.Duration `mapstructure:"interval"`
	// ProbeTimeout of zero derives the timeout from Interval.
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`
	AlignToInterval bool          `mapstructure:"align_to_interval"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	WriteRetries    int           `mapstructure:"write_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	LockKey         int64         `mapstructure:"lock_key"`
}

// ReportConfig sets CLI report behaviour.
type ReportConfig struct {
	Currency    string `mapstructure:"currency"`
	RecentLimit int    `mapstructure:"recent_limit"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OUTAGEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "outagewatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "internet_outages.db")
	v.SetDefault("database.busy_timeout", "5s")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("watch.target_ip", "8.8.8.8")
	v.SetDefault("watch.target_port", 53)
	v.SetDefault("watch.interval", "5s")
	v.SetDefault("watch.probe_timeout", "0s")
	v.SetDefault("watch.align_to_interval", true)
	v.SetDefault("watch.startup_delay", "0s")
	v.SetDefault("watch.write_retries", 3)
	v.SetDefault("watch.retry_backoff", "500ms")
	v.SetDefault("watch.lock_key", int64(0x6f757467))

	v.SetDefault("report.currency", "€")
	v.SetDefault("report.recent_limit", 5)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	return c.Watch.Validate()
}

// Validate checks the watch settings; the CLI calls it again after applying
// flag overrides.
func (w WatchConfig) Validate() error {
	if strings.TrimSpace(w.TargetIP) == "" {
		return fmt.Errorf("watch.target_ip must not be empty")
	}
	if w.TargetPort <= 0 || w.TargetPort > 65535 {
		return fmt.Errorf("watch.target_port must be between 1 and 65535")
	}
	if w.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if w.ProbeTimeout < 0 {
		return fmt.Errorf("watch.probe_timeout cannot be negative")
	}
	if w.ProbeTimeout > 0 && w.ProbeTimeout >= w.Interval {
		return fmt.Errorf("watch.probe_timeout (%s) must be shorter than watch.interval (%s)", w.ProbeTimeout, w.Interval)
	}
	if w.WriteRetries < 0 {
		return fmt.Errorf("watch.write_retries cannot be negative")
	}
	if w.RetryBackoff < 0 {
		return fmt.Errorf("watch.retry_backoff cannot be negative")
	}
	return nil
}

// EffectiveProbeTimeout returns the configured probe timeout, or when unset,
// one second capped at half the interval.
func (w WatchConfig) EffectiveProbeTimeout() time.Duration {
	if w.ProbeTimeout > 0 {
		return w.ProbeTimeout
	}
	if half := w.Interval / 2; half < defaultProbeTimeout {
		return half
	}
	return defaultProbeTimeout
}

// ResolveRecentLimit returns either the CLI override or config default.
func (c *Config) ResolveRecentLimit(override int) int {
	if override > 0 {
		return override
	}
	if c.Report.RecentLimit > 0 {
		return c.Report.RecentLimit
	}
	return 5
}
