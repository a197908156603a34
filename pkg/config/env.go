package config

const EnvPrefix = "FLORISTERIA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "FLORISTERIA_APP_ENV"
	EnvPort     = "FLORISTERIA_APP_PORT"
	EnvLogLevel = "FLORISTERIA_LOG_LEVEL"

	EnvDBDSN    = "FLORISTERIA_DB_DSN"
	EnvDBDriver = "FLORISTERIA_DB_DRIVER"
	EnvDBHost   = "FLORISTERIA_DB_HOST"
	EnvDBUser   = "FLORISTERIA_DB_USER"
	EnvDBName   = "FLORISTERIA_DB_NAME"

	EnvRedisURL = "FLORISTERIA_REDIS_URL"

	EnvJWTSecret  = "FLORISTERIA_JWT_SECRET"
	EnvJWTIssuer  = "FLORISTERIA_JWT_ISSUER"
	EnvJWTExpMins = "FLORISTERIA_JWT_EXPIRATION_MINUTES"

	EnvCORSAllowedOrigins = "FLORISTERIA_CORS_ALLOWED_ORIGINS"

	EnvGCPProjectID        = "FLORISTERIA_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic   = "FLORISTERIA_PUBSUB_ORDERS_TOPIC"
	EnvPubSubNotifyTopic   = "FLORISTERIA_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotifySub     = "FLORISTERIA_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvOutboxMaxAttempts   = "FLORISTERIA_OUTBOX_MAX_ATTEMPTS"
	EnvWompiClientID       = "FLORISTERIA_WOMPI_CLIENT_ID"
	EnvWompiClientSecret   = "FLORISTERIA_WOMPI_CLIENT_SECRET"
	EnvWompiTimeout        = "FLORISTERIA_WOMPI_TIMEOUT"
	EnvWompiWebhookSecret  = "FLORISTERIA_WOMPI_WEBHOOK_SECRET"
	EnvWompiAllowUnsigned  = "FLORISTERIA_WOMPI_ALLOW_UNSIGNED_WEBHOOKS"
	EnvSMTPHost            = "FLORISTERIA_SMTP_HOST"
	EnvMailFrom            = "FLORISTERIA_MAIL_FROM"
	EnvOutboxRetentionDays = "FLORISTERIA_OUTBOX_RETENTION_DAYS"
)

var legacyDBEnvVars = []string{
	EnvDBHost,
	EnvDBUser,
	EnvDBName,
}
