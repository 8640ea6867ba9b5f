// Package config loads application configuration and bootstraps logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Scorer ScorerConfig `yaml:"scorer" mapstructure:"scorer"`
	Dedupe DedupeConfig `yaml:"dedupe" mapstructure:"dedupe"`
	Import ImportConfig `yaml:"import" mapstructure:"import"`
	Geo    GeoConfig    `yaml:"geo" mapstructure:"geo"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres | sqlite
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the admin API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AdminToken     string   `yaml:"admin_token" mapstructure:"admin_token"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// ScorerConfig configures quality scoring and boost policy.
type ScorerConfig struct {
	// MaxBoost bounds the magnitude of a single manual boost.
	MaxBoost int `yaml:"max_boost" mapstructure:"max_boost"`
	// FreshDays earns full freshness points; StaleDays earns partial.
	FreshDays int `yaml:"fresh_days" mapstructure:"fresh_days"`
	StaleDays int `yaml:"stale_days" mapstructure:"stale_days"`
}

// DedupeConfig configures duplicate detection.
type DedupeConfig struct {
	// LooseThreshold is the minimum name similarity (exclusive) for a
	// loose match.
	LooseThreshold float64 `yaml:"loose_threshold" mapstructure:"loose_threshold"`
	// MaxRecords caps how many businesses a single detection pass loads.
	MaxRecords int `yaml:"max_records" mapstructure:"max_records"`
}

// ImportConfig configures registry extract ingestion.
type ImportConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TempDir     string  `yaml:"temp_dir" mapstructure:"temp_dir"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GeoConfig configures suburb boundary validation.
type GeoConfig struct {
	// SuburbShapefile is an optional path to a suburb-boundary shapefile;
	// when set, the scorer checks coordinates against the named suburb.
	SuburbShapefile string `yaml:"suburb_shapefile" mapstructure:"suburb_shapefile"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SUBURBMATES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("scorer.max_boost", 20)
	v.SetDefault("scorer.fresh_days", 30)
	v.SetDefault("scorer.stale_days", 90)
	v.SetDefault("dedupe.loose_threshold", 0.8)
	v.SetDefault("dedupe.max_records", 10000)
	v.SetDefault("import.user_agent", "suburbmates-directory-cli")
	v.SetDefault("import.temp_dir", "/tmp/suburbmates-import")
	v.SetDefault("import.rate_per_sec", 5)
	v.SetDefault("import.timeout_secs", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks ranges that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	var errs []string
	if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
		errs = append(errs, "store.driver must be postgres or sqlite")
	}
	if c.Scorer.MaxBoost < 0 || c.Scorer.MaxBoost > 100 {
		errs = append(errs, "scorer.max_boost must be between 0 and 100")
	}
	if c.Dedupe.LooseThreshold <= 0 || c.Dedupe.LooseThreshold >= 1 {
		errs = append(errs, "dedupe.loose_threshold must be in (0, 1)")
	}
	if c.Scorer.FreshDays <= 0 || c.Scorer.StaleDays < c.Scorer.FreshDays {
		errs = append(errs, "scorer.stale_days must be >= scorer.fresh_days > 0")
	}
	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
