package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Version     string           `mapstructure:"version"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Sentry      SentryConfig     `mapstructure:"sentry"`
	Evaluation  EvaluationConfig `mapstructure:"evaluation"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// Timeouts are in seconds.
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	ApplicationName string `mapstructure:"application_name"`
	ConnectTimeout  int    `mapstructure:"connect_timeout"`
	// StatementTimeout is in milliseconds.
	StatementTimeout int `mapstructure:"statement_timeout"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

// EvaluationConfig tunes the backtest and calibration services.
type EvaluationConfig struct {
	DefaultSizeUSD          float64 `mapstructure:"default_size_usd"`
	HighConfidenceThreshold float64 `mapstructure:"high_confidence_threshold"`
	DefaultBacktestDays     int     `mapstructure:"default_backtest_days"`
	HoldMode                string  `mapstructure:"hold_mode"`
	CalibrationWindowDays   int     `mapstructure:"calibration_window_days"`
	MinCalibrationEvents    int     `mapstructure:"min_calibration_events"`
	MaxCalibrationAgeDays   int     `mapstructure:"max_calibration_age_days"`
	CacheTTLSeconds         int     `mapstructure:"cache_ttl_seconds"`
	LockTTLSeconds          int     `mapstructure:"lock_ttl_seconds"`

	OpportunityThreshold       float64 `mapstructure:"opportunity_threshold"`
	MinConfidenceForEvaluation float64 `mapstructure:"min_confidence_for_evaluation"`
	HoldPenaltyWeight          float64 `mapstructure:"hold_penalty_weight"`
	CloseTooEarlyThreshold     float64 `mapstructure:"close_too_early_threshold"`
	ClosePenaltyWeight         float64 `mapstructure:"close_penalty_weight"`
}

// ConfigDirName is the per-user directory searched for config.{json,yaml}.
const ConfigDirName = ".neuratrade-eval"

// Load reads configuration from defaults, the optional user config file and
// the environment, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file. An empty path searches the
// user config directory and the working directory.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	if path == "" {
		path = os.Getenv("NEURATRADE_EVAL_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ConfigDirName))
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("version", "dev")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "change-me-in-production")
	v.SetDefault("database.dbname", "neuratrade")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "300s")
	v.SetDefault("database.conn_max_idle_time", "60s")
	v.SetDefault("database.sqlite_path", "neuratrade-eval.db")
	v.SetDefault("database.application_name", "neuratrade-eval")
	v.SetDefault("database.connect_timeout", 10)
	v.SetDefault("database.statement_timeout", 0)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "")
	v.SetDefault("sentry.traces_sample_rate", 0.0)

	v.SetDefault("evaluation.default_size_usd", 1000.0)
	v.SetDefault("evaluation.high_confidence_threshold", 0.7)
	v.SetDefault("evaluation.default_backtest_days", 30)
	v.SetDefault("evaluation.hold_mode", "legacy")
	v.SetDefault("evaluation.calibration_window_days", 30)
	v.SetDefault("evaluation.min_calibration_events", 10)
	v.SetDefault("evaluation.max_calibration_age_days", 7)
	v.SetDefault("evaluation.cache_ttl_seconds", 3600)
	v.SetDefault("evaluation.lock_ttl_seconds", 120)
	v.SetDefault("evaluation.opportunity_threshold", 0.5)
	v.SetDefault("evaluation.min_confidence_for_evaluation", 0.5)
	v.SetDefault("evaluation.hold_penalty_weight", 1.0)
	v.SetDefault("evaluation.close_too_early_threshold", 0.5)
	v.SetDefault("evaluation.close_penalty_weight", 1.0)
}

// bindLegacyEnv maps short variable names kept from older deployments.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("database.sqlite_path", "DATABASE_SQLITE_PATH", "SQLITE_PATH")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("sentry.dsn", "SENTRY_DSN")
}

// Validate checks cross-field constraints that defaults cannot guarantee.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "sqlite", "sqlite3":
		if strings.TrimSpace(c.Database.SQLitePath) == "" {
			return fmt.Errorf("database.sqlite_path is required when database.driver is sqlite")
		}
	case "postgres", "postgresql":
		if c.Database.DatabaseURL == "" && strings.TrimSpace(c.Database.Host) == "" {
			return fmt.Errorf("database.host or database.url is required when database.driver is postgres")
		}
	default:
		return fmt.Errorf("database.driver must be one of sqlite, postgres (got %q)", c.Database.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	return c.Evaluation.Validate()
}

func (e EvaluationConfig) Validate() error {
	if e.DefaultSizeUSD <= 0 {
		return fmt.Errorf("evaluation.default_size_usd must be positive")
	}
	if e.HighConfidenceThreshold <= 0 || e.HighConfidenceThreshold > 1 {
		return fmt.Errorf("evaluation.high_confidence_threshold must be within (0,1]")
	}
	if e.DefaultBacktestDays <= 0 {
		return fmt.Errorf("evaluation.default_backtest_days must be positive")
	}
	if e.CalibrationWindowDays <= 0 {
		return fmt.Errorf("evaluation.calibration_window_days must be positive")
	}
	if e.MinCalibrationEvents <= 0 {
		return fmt.Errorf("evaluation.min_calibration_events must be positive")
	}
	if e.MaxCalibrationAgeDays <= 0 {
		return fmt.Errorf("evaluation.max_calibration_age_days must be positive")
	}
	switch e.HoldMode {
	case "legacy", "dual":
	default:
		return fmt.Errorf("evaluation.hold_mode must be one of legacy, dual (got %q)", e.HoldMode)
	}
	return nil
}
