package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Wompi        WompiConfig
	Mail         MailConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Wompi.validate(cfg.App); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FLORISTERIA_APP_ENV" required:"true"`
	Port         string `envconfig:"FLORISTERIA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FLORISTERIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FLORISTERIA_LOG_WARN_STACK" default:"false"`
	FrontendURL  string `envconfig:"FLORISTERIA_FRONTEND_URL" default:"http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FLORISTERIA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FLORISTERIA_DB_DSN"`
	Driver string `envconfig:"FLORISTERIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FLORISTERIA_DB_HOST"`
	LegacyPort     int    `envconfig:"FLORISTERIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FLORISTERIA_DB_USER"`
	LegacyPassword string `envconfig:"FLORISTERIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"FLORISTERIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"FLORISTERIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FLORISTERIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FLORISTERIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FLORISTERIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FLORISTERIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"FLORISTERIA_REDIS_URL"`
	Address      string        `envconfig:"FLORISTERIA_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"FLORISTERIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"FLORISTERIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FLORISTERIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FLORISTERIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FLORISTERIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FLORISTERIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FLORISTERIA_REDIS_WRITE_TIMEOUT" default:"5s"`

	IdempotencyTTL time.Duration `envconfig:"FLORISTERIA_REDIS_IDEMPOTENCY_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FLORISTERIA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FLORISTERIA_JWT_ISSUER" default:"floristeria"`
	ExpirationMinutes int    `envconfig:"FLORISTERIA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"FLORISTERIA_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FLORISTERIA_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"FLORISTERIA_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"FLORISTERIA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"FLORISTERIA_PUBSUB_ORDERS_TOPIC" default:"floristeria-order-events"`
	NotificationTopic        string `envconfig:"FLORISTERIA_PUBSUB_NOTIFICATION_TOPIC" default:"floristeria-notification-events"`
	NotificationSubscription string `envconfig:"FLORISTERIA_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"floristeria-notification-events-sub"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FLORISTERIA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FLORISTERIA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FLORISTERIA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type WompiConfig struct {
	ClientID     string        `envconfig:"FLORISTERIA_WOMPI_CLIENT_ID"`
	ClientSecret string        `envconfig:"FLORISTERIA_WOMPI_CLIENT_SECRET"`
	TokenURL     string        `envconfig:"FLORISTERIA_WOMPI_TOKEN_URL" default:"https://id.wompi.sv/connect/token"`
	Audience     string        `envconfig:"FLORISTERIA_WOMPI_AUDIENCE" default:"wompi_api"`
	APIURL       string        `envconfig:"FLORISTERIA_WOMPI_URL" default:"https://api.wompi.sv"`
	RedirectURL  string        `envconfig:"FLORISTERIA_WOMPI_REDIRECT_URL"`
	WebhookURL   string        `envconfig:"FLORISTERIA_WOMPI_WEBHOOK_URL"`
	Timeout      time.Duration `envconfig:"FLORISTERIA_WOMPI_TIMEOUT" default:"30s"`

	WebhookSecret         string `envconfig:"FLORISTERIA_WOMPI_WEBHOOK_SECRET"`
	AllowUnsignedWebhooks bool   `envconfig:"FLORISTERIA_WOMPI_ALLOW_UNSIGNED_WEBHOOKS" default:"false"`
}

func (w WompiConfig) validate(app AppConfig) error {
	if !app.IsProd() {
		return nil
	}
	if strings.TrimSpace(w.WebhookSecret) == "" {
		return fmt.Errorf("%s is required in production", EnvWompiWebhookSecret)
	}
	if w.AllowUnsignedWebhooks {
		return fmt.Errorf("%s cannot be enabled in production", EnvWompiAllowUnsigned)
	}
	return nil
}

type MailConfig struct {
	Host     string `envconfig:"FLORISTERIA_SMTP_HOST" default:"smtp.gmail.com"`
	Port     int    `envconfig:"FLORISTERIA_SMTP_PORT" default:"587"`
	Username string `envconfig:"FLORISTERIA_SMTP_USERNAME"`
	Password string `envconfig:"FLORISTERIA_SMTP_PASSWORD"`
	From     string `envconfig:"FLORISTERIA_MAIL_FROM"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"FLORISTERIA_CRON_INTERVAL" default:"24h"`
	LockTTL             time.Duration `envconfig:"FLORISTERIA_CRON_LOCK_TTL" default:"25h"`
	OutboxRetentionDays int           `envconfig:"FLORISTERIA_OUTBOX_RETENTION_DAYS" default:"30"`
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
