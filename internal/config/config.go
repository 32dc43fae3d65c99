package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	AuditStorePostgres = "postgres"
	AuditStoreMongo    = "mongo"
)

var ErrMongoURIRequired = errors.New("MONGO_URI is required when AUDIT_STORE=mongo")

type DB struct {
	URL             string        `env:"DATABASE_URL,required,notEmpty"`
	MigrationsURL   string        `env:"MIGRATIONS_URL" envDefault:"file://db/migrations"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"16"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"8"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"15m"`
}

type HTTP struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
}

type Kafka struct {
	Brokers         string        `env:"KAFKA_BROKERS"`
	Topic           string        `env:"KAFKA_AUDIT_TOPIC" envDefault:"hr.audit"`
	ClientID        string        `env:"KAFKA_CLIENT_ID" envDefault:"hr-service"`
	DeliveryTimeout time.Duration `env:"KAFKA_DELIVERY_TIMEOUT" envDefault:"10s"`
}

// Enabled reports whether audit fan-out is configured.
func (k Kafka) Enabled() bool {
	return strings.TrimSpace(k.Brokers) != ""
}

type Mongo struct {
	URI        string `env:"MONGO_URI"`
	Database   string `env:"MONGO_DATABASE" envDefault:"hr"`
	Collection string `env:"MONGO_AUDIT_COLLECTION" envDefault:"auditlogs"`
}

type Audit struct {
	Store string `env:"AUDIT_STORE" envDefault:"postgres"`
}

type Log struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

type Config struct {
	DB    DB
	HTTP  HTTP
	Auth  Auth
	Kafka Kafka
	Mongo Mongo
	Audit Audit
	Log   Log
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Audit.Store {
	case AuditStorePostgres:
	case AuditStoreMongo:
		if c.Mongo.URI == "" {
			return ErrMongoURIRequired
		}
	default:
		return fmt.Errorf("unsupported AUDIT_STORE %q", c.Audit.Store)
	}
	return nil
}
