package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the platform reads.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App        AppConfig
	Service    ServiceConfig
	DB         DBConfig
	Redis      RedisConfig
	GCP        GCPConfig
	PubSub     PubSubConfig
	Outbox     OutboxConfig
	Settlement SettlementConfig
	Cron       CronConfig
	Flags      FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ZENSTORE_APP_ENV" required:"true"`
	Port         string `envconfig:"ZENSTORE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ZENSTORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ZENSTORE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ZENSTORE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"ZENSTORE_DB_DSN"`

	Host     string `envconfig:"ZENSTORE_DB_HOST"`
	Port     int    `envconfig:"ZENSTORE_DB_PORT" default:"5432"`
	User     string `envconfig:"ZENSTORE_DB_USER"`
	Password string `envconfig:"ZENSTORE_DB_PASSWORD"`
	Name     string `envconfig:"ZENSTORE_DB_NAME"`
	SSLMode  string `envconfig:"ZENSTORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ZENSTORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ZENSTORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ZENSTORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ZENSTORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either ZENSTORE_DB_DSN or host/user/name settings are required")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"ZENSTORE_REDIS_URL"`
	Address      string        `envconfig:"ZENSTORE_REDIS_ADDR"`
	Password     string        `envconfig:"ZENSTORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"ZENSTORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ZENSTORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ZENSTORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ZENSTORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ZENSTORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ZENSTORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"ZENSTORE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"ZENSTORE_PUBSUB_ORDERS_TOPIC" default:"zen-order-events"`
	WalletTopic        string `envconfig:"ZENSTORE_PUBSUB_WALLET_TOPIC" default:"zen-wallet-events"`
	WalletSubscription string `envconfig:"ZENSTORE_PUBSUB_WALLET_SUBSCRIPTION" default:"zen-wallet-events-autoresume"`

	// ConsumerIdempotencyTTL bounds how long a processed event id is
	// remembered in Redis. Past the TTL a redelivery runs again, which is
	// safe for the wallet-credit consumer because a resume scan is itself
	// idempotent.
	ConsumerIdempotencyTTL time.Duration `envconfig:"ZENSTORE_PUBSUB_CONSUMER_IDEMPOTENCY_TTL" default:"72h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ZENSTORE_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ZENSTORE_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ZENSTORE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type SettlementConfig struct {
	// LedgerTimeout bounds a single debit call. An exceeded timeout is a
	// ledger error, never proof the debit did not happen.
	LedgerTimeout time.Duration `envconfig:"ZENSTORE_SETTLEMENT_LEDGER_TIMEOUT" default:"10s"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"ZENSTORE_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"ZENSTORE_CRON_LOCK_TTL" default:"10m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ZENSTORE_AUTO_MIGRATE" default:"false"`
}
