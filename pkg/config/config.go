package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort  string `mapstructure:"server_port"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`

	// StorageDriver selects the document store: "firestore" or "memory".
	StorageDriver string `mapstructure:"storage_driver"`

	FirebaseProject         string `mapstructure:"firebase_project_id"`
	FirebaseCredentialsJSON string `mapstructure:"firebase_service_account_json"`
	FirebaseCredentialsPath string `mapstructure:"firebase_service_account_path"`
	StorageBucket           string `mapstructure:"storage_bucket"`

	Redis    RedisConfig    `mapstructure:"redis"`
	Presence PresenceConfig `mapstructure:"presence"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	OTEL     OTELConfig     `mapstructure:"otel"`

	SLAWindow          time.Duration `mapstructure:"sla_window"`
	DirectoryCacheSize int           `mapstructure:"directory_cache_size"`
	DirectoryCacheTTL  time.Duration `mapstructure:"directory_cache_ttl"`
	MessagesPerMinute  int           `mapstructure:"messages_per_minute"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// PresenceConfig tunes the realtime store backing presence.
type PresenceConfig struct {
	Driver        string        `mapstructure:"driver"`
	LeaseTTL      time.Duration `mapstructure:"lease_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type KafkaConfig struct {
	Brokers            []string      `mapstructure:"brokers"`
	Topic              string        `mapstructure:"topic"`
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures"`
	BreakerTimeout     time.Duration `mapstructure:"breaker_timeout"`
}

type OTELConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads .env (if present) and the process environment. Nested keys map
// to underscored variables, e.g. redis.addr -> REDIS_ADDR.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("storage_driver", "firestore")
	v.SetDefault("firebase_project_id", "")
	v.SetDefault("firebase_service_account_json", "")
	v.SetDefault("firebase_service_account_path", "")
	v.SetDefault("storage_bucket", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "studyhub")

	v.SetDefault("presence.driver", "redis")
	v.SetDefault("presence.lease_ttl", 30*time.Second)
	v.SetDefault("presence.sweep_interval", 5*time.Second)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "studyhub.doubts")
	v.SetDefault("kafka.breaker_max_failures", 5)
	v.SetDefault("kafka.breaker_timeout", 30*time.Second)

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "localhost:4317")
	v.SetDefault("otel.insecure", true)
	v.SetDefault("otel.service_name", "studyhub-api")
	v.SetDefault("otel.sample_ratio", 1.0)

	v.SetDefault("sla_window", 30*time.Minute)
	v.SetDefault("directory_cache_size", 1024)
	v.SetDefault("directory_cache_ttl", 5*time.Minute)
	v.SetDefault("messages_per_minute", 30)
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case "firestore":
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.Presence.Driver {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown PRESENCE_DRIVER %q", c.Presence.Driver)
	}
	if c.SLAWindow < 0 {
		return fmt.Errorf("SLA_WINDOW must not be negative")
	}
	return nil
}
