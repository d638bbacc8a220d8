package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/market-intel/internal/detect"
	"github.com/sells-group/market-intel/internal/store"
	"github.com/sells-group/market-intel/internal/validate"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig         `yaml:"store" mapstructure:"store"`
	Detector detect.Config       `yaml:"detector" mapstructure:"detector"`
	Rules    validate.RuleConfig `yaml:"rules" mapstructure:"rules"`
	Workflow WorkflowConfig      `yaml:"workflow" mapstructure:"workflow"`
	Server   ServerConfig        `yaml:"server" mapstructure:"server"`
	Log      LogConfig           `yaml:"log" mapstructure:"log"`
	Pool     store.PoolConfig    `yaml:"pool" mapstructure:"pool"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// WorkflowConfig configures the validation workflow.
type WorkflowConfig struct {
	Policy string `yaml:"policy" mapstructure:"policy"`
}

// ServerConfig configures the read-only API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("INTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "market_intel.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("detector.high_pct", 20.0)
	v.SetDefault("detector.medium_pct", 10.0)
	v.SetDefault("detector.low_pct", 5.0)
	v.SetDefault("detector.max_concurrent", 4)
	v.SetDefault("rules.max_market_size", 1000.0)
	v.SetDefault("rules.min_growth_rate", -100.0)
	v.SetDefault("rules.max_growth_rate", 500.0)
	v.SetDefault("rules.max_year_age", 5)
	v.SetDefault("workflow.policy", "permissive")
	v.SetDefault("pool.max_conns", 10)
	v.SetDefault("pool.min_conns", 2)

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
