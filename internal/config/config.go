package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	LogLevel string

	Storage    StorageConfig
	DB         DBConfig
	Mongo      MongoConfig
	Redis      RedisConfig
	RabbitMQ   RabbitMQConfig
	Credential CredentialConfig
	Worker     WorkerConfig
}

// StorageConfig selects the backend that owns persisted users and tweets.
type StorageConfig struct {
	Backend   string // "file", "table" or "document"
	DataDir   string // file backend only
	Serialize bool   // one mutex per entity type around every store operation
}

type DBConfig struct {
	Driver   string // "pgx" or "sqlite3"
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // sqlite3 only
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Host          string
	Port          string
	RedisPassword string
	RedisDB       string
	TTL           time.Duration
}

type RabbitMQConfig struct {
	URL   string
	Queue string
}

type CredentialConfig struct {
	Secret string
}

type WorkerConfig struct {
	Concurrency int
	MetricsPort string
}

const (
	BackendFile     = "file"
	BackendTable    = "table"
	BackendDocument = "document"
)

func Load() *Config {
	return &Config{
		AppName: getEnv("APP_NAME", "twitter-api"),
		AppEnv:  getEnv("APP_ENV", "development"),
		AppPort: getEnv("APP_PORT", "8087"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		Storage: StorageConfig{
			Backend:   getEnv("STORAGE_BACKEND", BackendFile),
			DataDir:   getEnv("STORAGE_DATA_DIR", "."),
			Serialize: getEnvBool("STORAGE_SERIALIZE", false),
		},

		DB: DBConfig{
			Driver:   getEnv("DB_DRIVER", "pgx"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "twitter"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Path:     getEnv("DB_PATH", "twitter.db"),
		},

		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "twitter_db"),
		},

		Redis: RedisConfig{
			Host:          os.Getenv("REDIS_HOST"),
			Port:          getEnv("REDIS_PORT", "6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getEnv("REDIS_DB", "0"),
			TTL:           getEnvDuration("REDIS_TTL", time.Hour),
		},

		RabbitMQ: RabbitMQConfig{
			URL:   os.Getenv("RABBITMQ_URL"),
			Queue: getEnv("RABBITMQ_QUEUE", "entity_events"),
		},

		Credential: CredentialConfig{
			Secret: os.Getenv("CREDENTIAL_SECRET"),
		},

		Worker: WorkerConfig{
			Concurrency: getEnvInt("WORKER_CONCURRENCY", 3),
			MetricsPort: getEnv("WORKER_METRICS_PORT", "8088"),
		},
	}
}

// IsDevelopment reports whether missing secrets may fall back to defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "" || c.AppEnv == "development" || c.AppEnv == "test"
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists && val != "" {
		return val
	}

	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}
