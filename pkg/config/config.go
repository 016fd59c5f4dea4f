package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix scopes every environment variable consumed by the platform.
const EnvPrefix = "VENDARA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	PubSub       PubSubConfig
	Paystack     PaystackConfig
	Outbox       OutboxConfig
	Eventing     EventingConfig
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
	Env          string `envconfig:"VENDARA_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDARA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENDARA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDARA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VENDARA_DB_DSN"`
	Driver string `envconfig:"VENDARA_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"VENDARA_DB_HOST"`
	Port     int    `envconfig:"VENDARA_DB_PORT" default:"5432"`
	User     string `envconfig:"VENDARA_DB_USER"`
	Password string `envconfig:"VENDARA_DB_PASSWORD"`
	Name     string `envconfig:"VENDARA_DB_NAME"`
	SSLMode  string `envconfig:"VENDARA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDARA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDARA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDARA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDARA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDARA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENDARA_REDIS_ADDR"`
	Password     string        `envconfig:"VENDARA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDARA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDARA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDARA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDARA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDARA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDARA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VENDARA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"VENDARA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VENDARA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	GCP GCPConfig

	DomainTopic              string `envconfig:"VENDARA_PUBSUB_DOMAIN_TOPIC" required:"true"`
	RoutingSubscription      string `envconfig:"VENDARA_PUBSUB_ROUTING_SUBSCRIPTION" required:"true"`
	SettlementSubscription   string `envconfig:"VENDARA_PUBSUB_SETTLEMENT_SUBSCRIPTION" required:"true"`
	NotificationSubscription string `envconfig:"VENDARA_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

// PaystackConfig carries the payment gateway and bank resolution credentials.
type PaystackConfig struct {
	SecretKey      string        `envconfig:"VENDARA_PAYSTACK_SECRET_KEY" required:"true"`
	BaseURL        string        `envconfig:"VENDARA_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL    string        `envconfig:"VENDARA_PAYSTACK_CALLBACK_URL"`
	RequestTimeout time.Duration `envconfig:"VENDARA_PAYSTACK_REQUEST_TIMEOUT" default:"15s"`
	MaxRetries     int           `envconfig:"VENDARA_PAYSTACK_MAX_RETRIES" default:"3"`
	RetryBaseDelay time.Duration `envconfig:"VENDARA_PAYSTACK_RETRY_BASE_DELAY" default:"500ms"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VENDARA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VENDARA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VENDARA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"VENDARA_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VENDARA_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, value := range map[string]string{
		"VENDARA_DB_HOST": db.Host,
		"VENDARA_DB_USER": db.User,
		"VENDARA_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either VENDARA_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
