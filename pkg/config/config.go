package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Eventing     EventingConfig
	Marketplace  MarketplaceConfig
	Stats        StatsConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"SHOPSTACK_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPSTACK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHOPSTACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPSTACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"SHOPSTACK_DB_DSN"`

	Host     string `envconfig:"SHOPSTACK_DB_HOST"`
	Port     int    `envconfig:"SHOPSTACK_DB_PORT" default:"5432"`
	User     string `envconfig:"SHOPSTACK_DB_USER"`
	Password string `envconfig:"SHOPSTACK_DB_PASSWORD"`
	Name     string `envconfig:"SHOPSTACK_DB_NAME"`
	SSLMode  string `envconfig:"SHOPSTACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPSTACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPSTACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPSTACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPSTACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	TxMaxRetries int `envconfig:"SHOPSTACK_DB_TX_MAX_RETRIES" default:"5"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("database DSN or host/user/name is required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPSTACK_REDIS_URL"`
	Address      string        `envconfig:"SHOPSTACK_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPSTACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPSTACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPSTACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPSTACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPSTACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPSTACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPSTACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"SHOPSTACK_GCP_PROJECT_ID" required:"true"`
}

type PubSubConfig struct {
	CatalogTopic        string `envconfig:"SHOPSTACK_PUBSUB_CATALOG_TOPIC" default:"catalog-changes"`
	CatalogSubscription string `envconfig:"SHOPSTACK_PUBSUB_CATALOG_SUBSCRIPTION" default:"catalog-changes-marketplace"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SHOPSTACK_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SHOPSTACK_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SHOPSTACK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SHOPSTACK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type MarketplaceConfig struct {
	PageSize    int           `envconfig:"SHOPSTACK_MARKETPLACE_PAGE_SIZE" default:"20"`
	CacheTTL    time.Duration `envconfig:"SHOPSTACK_MARKETPLACE_CACHE_TTL" default:"10m"`
	FanoutChunk int           `envconfig:"SHOPSTACK_MARKETPLACE_FANOUT_CHUNK" default:"200"`
}

type StatsConfig struct {
	MaxRangeDays int `envconfig:"SHOPSTACK_STATS_MAX_RANGE_DAYS" default:"366"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHOPSTACK_AUTO_MIGRATE" default:"false"`
}
