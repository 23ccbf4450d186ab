package config

import (
	"fmt"
	"strings"

	"github.com/paylater-gateway/internal/logger"

	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Lender   LenderConfig   `mapstructure:"lender"`
	Platform PlatformConfig `mapstructure:"platform"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig configures log output and rotation.
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions converts the log section into logger options.
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// StoragePoolConfig configures the SQL connection pool.
type StoragePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// StorageConfig selects and configures the record store backend.
type StorageConfig struct {
	Driver string            `mapstructure:"driver"` // redis / sqlite / postgres
	DSN    string            `mapstructure:"dsn"`
	Pool   StoragePoolConfig `mapstructure:"pool"`
}

// RedisConfig configures the Redis record store.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig configures the asynq background queue.
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// LenderConfig configures the installment-lender API client.
type LenderConfig struct {
	LiveBaseURL    string `mapstructure:"live_base_url"`
	SandboxBaseURL string `mapstructure:"sandbox_base_url"`
	FundingBaseURL string `mapstructure:"funding_base_url"`
	TimeoutMS      int    `mapstructure:"timeout_ms"`
}

// PlatformConfig configures the platform transaction API client.
type PlatformConfig struct {
	TransactionBaseURL string `mapstructure:"transaction_base_url"`
	TimeoutMS          int    `mapstructure:"timeout_ms"`
}

// GatewayConfig holds gateway-level behavior knobs.
type GatewayConfig struct {
	MinimumDelayToCancelSeconds int `mapstructure:"minimum_delay_to_cancel_seconds"`
}

// Load reads config.yml plus environment variables.
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./")
	viper.AddConfigPath("../")
	viper.AddConfigPath("./etc")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "gateway.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("storage.driver", "sqlite")
	viper.SetDefault("storage.dsn", "./db/gateway.db")
	viper.SetDefault("storage.pool.max_open_conns", 1)
	viper.SetDefault("storage.pool.max_idle_conns", 1)
	viper.SetDefault("storage.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("storage.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "plg")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default": 10,
	})
	viper.SetDefault("lender.live_base_url", "https://api.lender.example.com/api/v2")
	viper.SetDefault("lender.sandbox_base_url", "https://sandbox.lender.example.com/api/v2")
	viper.SetDefault("lender.funding_base_url", "https://funding.partner.example.com/api/v1")
	viper.SetDefault("lender.timeout_ms", 12000)
	viper.SetDefault("platform.transaction_base_url", "")
	viper.SetDefault("platform.timeout_ms", 8000)
	viper.SetDefault("gateway.minimum_delay_to_cancel_seconds", 1800)

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("config unmarshal failed: %w", err))
	}

	return &cfg
}
