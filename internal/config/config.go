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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Sync      SyncConfig      `yaml:"sync" mapstructure:"sync"`
	Dict      DictConfig      `yaml:"dict" mapstructure:"dict"`
	Optimizer OptimizerConfig `yaml:"optimizer" mapstructure:"optimizer"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backends.
type StoreConfig struct {
	DatabaseURL  string  `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath   string  `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	WritesPerSec float64 `yaml:"writes_per_sec" mapstructure:"writes_per_sec"`
}

// SyncConfig configures the incremental sync controller.
type SyncConfig struct {
	BatchSize     int    `yaml:"batch_size" mapstructure:"batch_size"`
	Workers       int    `yaml:"workers" mapstructure:"workers"`
	Profile       string `yaml:"profile" mapstructure:"profile"`
	MaxAttempts   int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	EngineVersion string `yaml:"engine_version" mapstructure:"engine_version"`
}

// DictConfig configures dictionary term scanning.
type DictConfig struct {
	Code      string `yaml:"code" mapstructure:"code"`
	Version   string `yaml:"version" mapstructure:"version"`
	CacheSize int    `yaml:"cache_size" mapstructure:"cache_size"`
}

// OptimizerConfig configures the weight-matrix feedback job.
type OptimizerConfig struct {
	LookbackDays int `yaml:"lookback_days" mapstructure:"lookback_days"`
	HitLimit     int `yaml:"hit_limit" mapstructure:"hit_limit"`
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
	v.SetEnvPrefix("CALLSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.sqlite_path", "callscore.db")
	v.SetDefault("store.writes_per_sec", 50)
	v.SetDefault("sync.batch_size", 200)
	v.SetDefault("sync.workers", 4)
	v.SetDefault("sync.profile", "default")
	v.SetDefault("sync.max_attempts", 3)
	v.SetDefault("dict.code", "complaints")
	v.SetDefault("dict.version", "v1")
	v.SetDefault("dict.cache_size", 8)
	v.SetDefault("optimizer.lookback_days", 30)
	v.SetDefault("optimizer.hit_limit", 10000)
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
