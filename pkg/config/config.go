package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable consumed by the app.
	EnvPrefix = "rentloop"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv   = "RENTLOOP_APP_ENV"
	EnvPort     = "RENTLOOP_APP_PORT"
	EnvDBDSN    = "RENTLOOP_DB_DSN"
	EnvDBHost   = "RENTLOOP_DB_HOST"
	EnvDBUser   = "RENTLOOP_DB_USER"
	EnvDBName   = "RENTLOOP_DB_NAME"
	EnvRedisURL = "RENTLOOP_REDIS_URL"

	EnvJWTSecret  = "RENTLOOP_JWT_SECRET"
	EnvJWTIssuer  = "RENTLOOP_JWT_ISSUER"
	EnvJWTExpMins = "RENTLOOP_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID   = "RENTLOOP_GCP_PROJECT_ID"
	EnvPubSubTopic    = "RENTLOOP_PUBSUB_ORDER_EVENTS_TOPIC"
	EnvPubSubSub      = "RENTLOOP_PUBSUB_ORDER_EVENTS_SUBSCRIPTION"
	EnvStripeAPIKey   = "RENTLOOP_STRIPE_API_KEY"
	EnvStripeSecret   = "RENTLOOP_STRIPE_SECRET"
	EnvCheckoutReturn = "RENTLOOP_CHECKOUT_RETURN_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
	Handover     HandoverConfig
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
	Env          string `envconfig:"RENTLOOP_APP_ENV" required:"true"`
	Port         string `envconfig:"RENTLOOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RENTLOOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RENTLOOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RENTLOOP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RENTLOOP_DB_DSN"`
	Driver string `envconfig:"RENTLOOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RENTLOOP_DB_HOST"`
	LegacyPort     int    `envconfig:"RENTLOOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RENTLOOP_DB_USER"`
	LegacyPassword string `envconfig:"RENTLOOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"RENTLOOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"RENTLOOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RENTLOOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RENTLOOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RENTLOOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RENTLOOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RENTLOOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RENTLOOP_REDIS_ADDR"`
	Password     string        `envconfig:"RENTLOOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"RENTLOOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RENTLOOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RENTLOOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RENTLOOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RENTLOOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RENTLOOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RENTLOOP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RENTLOOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RENTLOOP_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RENTLOOP_FEATURE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"RENTLOOP_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrderEventsTopic        string `envconfig:"RENTLOOP_PUBSUB_ORDER_EVENTS_TOPIC" default:"rl-order-events"`
	OrderEventsSubscription string `envconfig:"RENTLOOP_PUBSUB_ORDER_EVENTS_SUBSCRIPTION"`
}

type StripeConfig struct {
	APIKey    string `envconfig:"RENTLOOP_STRIPE_API_KEY"`
	Secret    string `envconfig:"RENTLOOP_STRIPE_SECRET"`
	Env       string `envconfig:"RENTLOOP_STRIPE_ENV" default:"test"`
	ReturnURL string `envconfig:"RENTLOOP_CHECKOUT_RETURN_URL" default:"https://rentloop.app/orders"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"RENTLOOP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"RENTLOOP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"RENTLOOP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type HandoverConfig struct {
	SecretBytes int           `envconfig:"RENTLOOP_HANDOVER_SECRET_BYTES" default:"32"`
	SessionTTL  time.Duration `envconfig:"RENTLOOP_PAYMENT_SESSION_TTL" default:"30m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
