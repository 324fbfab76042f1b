package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server        ServerConfig
	Logger        LoggerConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Elastic       ElasticsearchConfig
	Replenishment ReplenishmentConfig
}

type ServerConfig struct {
	AppEnv   string
	HTTPPort string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers     []string
	GroupID     string
	TopicPrefix string
	Source      string
}

type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
}

type ReplenishmentConfig struct {
	DefaultWarehouseID    string
	DefaultCarrier        string
	DefaultDeliveryDays   int
	LockTTLSeconds        int
	LockRetries           int
	LockRetryIntervalMS   int
	PublishTimeoutSeconds int
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:   getEnv("APP_ENV", "development"),
			HTTPPort: getEnv("HTTP_PORT", ":3000"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5432"),
			User:            getEnv("POSTGRES_USER", "sentry"),
			Password:        getEnv("POSTGRES_PASSWORD", "sentry"),
			DBName:          getEnv("POSTGRES_DB", "sentry_replenishment"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID:     getEnv("KAFKA_GROUP_ID", "sentry-consumer-group"),
			TopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "sentry"),
			Source:      getEnv("KAFKA_EVENT_SOURCE", "project-sentry"),
		},
		Elastic: ElasticsearchConfig{
			Addresses: getEnvSlice("ELASTICSEARCH_ADDRESSES", []string{"http://localhost:9200"}),
			Username:  getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:  getEnv("ELASTICSEARCH_PASSWORD", ""),
		},
		Replenishment: ReplenishmentConfig{
			DefaultWarehouseID:    getEnv("REPLENISHMENT_DEFAULT_WAREHOUSE", "WH-CENTRAL-001"),
			DefaultCarrier:        getEnv("REPLENISHMENT_DEFAULT_CARRIER", "UPS"),
			DefaultDeliveryDays:   getEnvInt("REPLENISHMENT_DEFAULT_DELIVERY_DAYS", 2),
			LockTTLSeconds:        getEnvInt("REPLENISHMENT_LOCK_TTL", 5),
			LockRetries:           getEnvInt("REPLENISHMENT_LOCK_RETRIES", 3),
			LockRetryIntervalMS:   getEnvInt("REPLENISHMENT_LOCK_RETRY_INTERVAL_MS", 100),
			PublishTimeoutSeconds: getEnvInt("REPLENISHMENT_PUBLISH_TIMEOUT", 5),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.Split(value, ",")
	}
	return fallback
}
