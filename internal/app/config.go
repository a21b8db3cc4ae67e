package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "PRINTSHOP_"

// Драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения. Значения читаются из переменных
// окружения с префиксом PRINTSHOP_.
type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr    string `env:"GRPC_ADDR" envDefault:":50051"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	StorageDriver           string `env:"STORAGE_DRIVER" envDefault:"memory"`
	PostgresDSN             string `env:"POSTGRES_DSN"`
	PostgresAutoMigrate     bool   `env:"POSTGRES_AUTO_MIGRATE" envDefault:"true"`
	PostgresMaxConns        int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	PostgresConnectAttempts int    `env:"POSTGRES_CONNECT_ATTEMPTS" envDefault:"5"`

	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaClientID string   `env:"KAFKA_CLIENT_ID" envDefault:"printshop"`
	KafkaTopic    string   `env:"KAFKA_TOPIC" envDefault:"printshop.order.events"`
	KafkaDLQTopic string   `env:"KAFKA_DLQ_TOPIC" envDefault:"printshop.dlq"`

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
	OutboxMaxAttempts  int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"3"`
	OutboxRetryDelay   time.Duration `env:"OUTBOX_RETRY_DELAY" envDefault:"50ms"`
	// OutboxMaxAge - возраст backlog, после которого /healthz сообщает degraded.
	OutboxMaxAge time.Duration `env:"OUTBOX_MAX_AGE" envDefault:"5m"`
}

// DefaultConfig возвращает значения по умолчанию без учёта окружения.
func DefaultConfig() Config {
	var cfg Config
	// Пустое окружение: ошибка возможна только при некорректном envDefault.
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      envPrefix,
		Environment: map[string]string{},
	}); err != nil {
		panic(fmt.Sprintf("invalid default config: %v", err))
	}
	return cfg
}

// LoadConfig читает конфигурацию из окружения процесса.
func LoadConfig() (Config, error) {
	return loadConfig(nil)
}

func loadConfig(environment map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: envPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%sPOSTGRES_DSN is required for postgres storage", envPrefix)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// KafkaEnabled сообщает, настроена ли публикация событий в Kafka.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
