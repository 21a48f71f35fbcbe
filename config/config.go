// Package config loads service configuration from the environment and the policy file
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"api-consulta-hotmart" validate:"required"`
	Environment                   string   `env:"ENVIRONMENT" env-default:"development"`
	Port                          int      `env:"PORT" env-default:"3000" validate:"min=1,max=65535"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"30"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"30"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"60"`
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"`
	MaxUploadBytes                int64    `env:"HTTP_SERVER_MAX_UPLOAD_BYTES" env-default:"52428800"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5" validate:"min=1"`
	PolicyFile                    string   `env:"POLICY_FILE" env-default:""`
	ImportTimezone                string   `env:"IMPORT_TIMEZONE" env-default:"America/Sao_Paulo"`

	// Database
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"sqlite3" validate:"oneof=sqlite3 postgres"`
	DatabaseDSN                   string        `env:"DB_DSN" env-default:"file:data/sales.db?_foreign_keys=on&_busy_timeout=5000"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0" validate:"min=0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`
	SearchPushdown                bool          `env:"SEARCH_PUSHDOWN" env-default:"true"`

	// Cache
	CacheEnabled     bool          `env:"CACHE_ENABLED" env-default:"false"`
	RedisHost        string        `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort        int           `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword    string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB          int           `env:"REDIS_DB" env-default:"0"`
	SearchCacheTTL   time.Duration `env:"SEARCH_CACHE_TTL" env-default:"5m"`
	SearchSummaryTTL time.Duration `env:"SEARCH_SUMMARY_TTL" env-default:"24h"`

	// Graph Database
	GraphEnabled    bool   `env:"GRAPH_ENABLED" env-default:"false"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`
	GraphDBName     string `env:"GRAPH_DB_NAME" env-default:""`

	// Auth
	AuthEnabled   bool   `env:"AUTH_ENABLED" env-default:"false"`
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:"" validate:"required_if=AuthEnabled true"`
	AuthClientID  string `env:"AUTH_CLIENT_ID" env-default:"" validate:"required_if=AuthEnabled true"`

	// Kafka Producer
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaImportTopic  string   `env:"KAFKA_IMPORT_TOPIC" env-default:"sales.imported"`
	KafkaSearchTopic  string   `env:"KAFKA_SEARCH_TOPIC" env-default:"customer.searched"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy" validate:"oneof=snappy gzip lz4 zstd none"`

	// Tracing
	TracingExporter string `env:"TRACING_EXPORTER" env-default:"none" validate:"oneof=none otlp-grpc otlp-http"`
	TracingEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
	TracingInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"true"`

	Policy *Policy
}

// Load reads .env when present, binds the environment onto Config and loads the policy file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env")
	}
	return LoadEnv()
}

// LoadEnv binds the process environment onto Config. Unset variables use the env-default tag.
func LoadEnv() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to read environment")
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	policy, err := LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}
	cfg.Policy = policy

	return cfg, nil
}

// Location returns the zone of export dates without an offset
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ImportTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
