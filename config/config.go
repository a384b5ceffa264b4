package config

import (
	"fmt"
	"strings"
	"time"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log        Logger         `mapstructure:"logger"`
	DB         Database       `mapstructure:"database"`
	API        API            `mapstructure:"api"`
	SSE        SSE            `mapstructure:"sse"`
	Encryption Encryption     `mapstructure:"encryption"`
	Kafka      Kafka          `mapstructure:"kafka"`
	Provider   Provider       `mapstructure:"provider"`
	Execution  Execution      `mapstructure:"execution"`
	Cache      Cache          `mapstructure:"cache"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
}

type Logger struct {
	Level    string `mapstructure:"level" validate:"required"`
	Encoding string `mapstructure:"encoding" validate:"oneof=json console"`
}

type Database struct {
	Host            string `mapstructure:"host" validate:"required"`
	Port            int    `mapstructure:"port" validate:"required"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name" validate:"required"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type API struct {
	Port               int     `mapstructure:"port" validate:"required"`
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst"`
}

type SSE struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" validate:"gt=0"`
	BufferSize        int           `mapstructure:"buffer_size" validate:"gt=0"`
}

type Encryption struct {
	Key         string `mapstructure:"key" validate:"required"`
	Environment string `mapstructure:"environment"`
}

type Kafka struct {
	Enabled            bool          `mapstructure:"enabled"`
	Brokers            []string      `mapstructure:"brokers"`
	ClientID           string        `mapstructure:"client_id"`
	SchemaRegistryURL  string        `mapstructure:"schema_registry_url"`
	TopicTaskCompleted string        `mapstructure:"topic_task_completed"`
	TopicTaskFailed    string        `mapstructure:"topic_task_failed"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
}

type Provider struct {
	HTTPTimeout           time.Duration `mapstructure:"http_timeout"`
	RequestsPerMinute     int           `mapstructure:"requests_per_minute"`
	GeminiTokensPerMinute int           `mapstructure:"gemini_tokens_per_minute"`
	ModelsCacheTTL        time.Duration `mapstructure:"models_cache_ttl"`
}

type Execution struct {
	Timeout              time.Duration `mapstructure:"timeout"`
	SweepSchedule        string        `mapstructure:"sweep_schedule"`
	StuckAfter           time.Duration `mapstructure:"stuck_after"`
	ReferenceOutputLimit int           `mapstructure:"reference_output_limit" validate:"gt=0"`
	MaxConcurrency       int           `mapstructure:"max_concurrency" validate:"gt=0"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type TelegramConfig struct {
	Enabled                   bool          `mapstructure:"enabled"`
	BotToken                  string        `mapstructure:"bot_token" validate:"required_if=Enabled true"`
	ChatID                    int64         `mapstructure:"chat_id" validate:"required_if=Enabled true"`
	TimeoutDuration           time.Duration `mapstructure:"timeout_duration"`
	MaxGlobalRequestPerSecond int           `mapstructure:"max_global_request_per_second"`
}

// IsProduction reports whether the encryption environment is production.
func (e Encryption) IsProduction() bool {
	return strings.EqualFold(e.Environment, "production")
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.name", "prism")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.time_zone", "UTC")
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.max_open_conns", 20)
	viper.SetDefault("database.conn_max_lifetime", "30m")
	viper.SetDefault("database.log_level", "Warn")

	viper.SetDefault("api.port", 3003)
	viper.SetDefault("api.rate_limit_per_second", 10)
	viper.SetDefault("api.rate_limit_burst", 30)

	viper.SetDefault("sse.heartbeat_interval", 30*time.Second)
	viper.SetDefault("sse.buffer_size", 64)

	viper.SetDefault("encryption.key", "default-32-byte-encryption-key!!")
	viper.SetDefault("encryption.environment", "development")

	viper.SetDefault("kafka.enabled", true)
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.client_id", "prism-service")
	viper.SetDefault("kafka.schema_registry_url", "http://localhost:8081")
	viper.SetDefault("kafka.topic_task_completed", "prism.task.completed")
	viper.SetDefault("kafka.topic_task_failed", "prism.task.failed")
	viper.SetDefault("kafka.write_timeout", 10*time.Second)

	viper.SetDefault("provider.http_timeout", 2*time.Minute)
	viper.SetDefault("provider.requests_per_minute", 60)
	viper.SetDefault("provider.gemini_tokens_per_minute", 1000000)
	viper.SetDefault("provider.models_cache_ttl", 10*time.Minute)

	viper.SetDefault("execution.timeout", 5*time.Minute)
	viper.SetDefault("execution.sweep_schedule", "@every 1m")
	viper.SetDefault("execution.stuck_after", 15*time.Minute)
	viper.SetDefault("execution.reference_output_limit", 3000)
	viper.SetDefault("execution.max_concurrency", 16)

	viper.SetDefault("cache.default_expiration", 10*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 20*time.Minute)

	viper.SetDefault("telegram.enabled", false)
	viper.SetDefault("telegram.timeout_duration", 10*time.Second)
	viper.SetDefault("telegram.max_global_request_per_second", 20)
}

func Load() (*Config, error) {
	// .env is optional; real environment variables still win.
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := goValidator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
