package config

const (
	EnvPrefix = "LISTINGQA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:listingqa.db?_foreign_keys=on"
)

const (
	EnvAppEnv    = "LISTINGQA_APP_ENV"
	EnvPort      = "LISTINGQA_APP_PORT"
	EnvLogLevel  = "LISTINGQA_LOG_LEVEL"
	EnvLogFormat = "LISTINGQA_LOG_FORMAT"
	EnvMetrics   = "LISTINGQA_METRICS_ADDR"

	EnvDBDSN    = "LISTINGQA_DB_DSN"
	EnvDBDriver = "LISTINGQA_DB_DRIVER"
	EnvDBHost   = "LISTINGQA_DB_HOST"
	EnvDBUser   = "LISTINGQA_DB_USER"
	EnvDBName   = "LISTINGQA_DB_NAME"

	EnvRedisURL = "LISTINGQA_REDIS_URL"

	EnvJWTSecret  = "LISTINGQA_JWT_SECRET"
	EnvJWTIssuer  = "LISTINGQA_JWT_ISSUER"
	EnvJWTExpMins = "LISTINGQA_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite   = "LISTINGQA_USE_SQLITE"
	EnvAutoMigrate = "LISTINGQA_AUTO_MIGRATE"

	EnvReconcileBatchSize = "LISTINGQA_RECONCILE_BATCH_SIZE"
	EnvCronInterval       = "LISTINGQA_CRON_INTERVAL"
	EnvCronJobTimeout     = "LISTINGQA_CRON_JOB_TIMEOUT"
	EnvPruneBatchSize     = "LISTINGQA_OUTBOX_PRUNE_BATCH_SIZE"

	EnvGCPProjectID          = "LISTINGQA_GCP_PROJECT_ID"
	EnvPubSubAssessmentTopic = "LISTINGQA_PUBSUB_ASSESSMENT_TOPIC"
	EnvPubSubTierTopic       = "LISTINGQA_PUBSUB_TIER_TOPIC"
	EnvPubSubEmulatorHost    = "LISTINGQA_PUBSUB_EMULATOR_HOST"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
