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
	FeatureFlags FeatureFlagsConfig
	Assessments  AssessmentsConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LISTINGQA_APP_ENV" required:"true"`
	Port         string `envconfig:"LISTINGQA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LISTINGQA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LISTINGQA_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"LISTINGQA_LOG_FORMAT" default:"json"`
	// CORSOrigins is a comma separated allow list for the seller and admin consoles.
	CORSOrigins []string `envconfig:"LISTINGQA_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LISTINGQA_SERVICE_KIND" default:"api"`
	// MetricsAddr is where workers serve /metrics, e.g. ":9090". Empty disables it.
	MetricsAddr string `envconfig:"LISTINGQA_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"LISTINGQA_DB_DSN"`
	Driver string `envconfig:"LISTINGQA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LISTINGQA_DB_HOST"`
	LegacyPort     int    `envconfig:"LISTINGQA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LISTINGQA_DB_USER"`
	LegacyPassword string `envconfig:"LISTINGQA_DB_PASSWORD"`
	LegacyName     string `envconfig:"LISTINGQA_DB_NAME"`
	LegacySSLMode  string `envconfig:"LISTINGQA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LISTINGQA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LISTINGQA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LISTINGQA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LISTINGQA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQueryThreshold logs statements slower than this at warn; zero disables.
	SlowQueryThreshold time.Duration `envconfig:"LISTINGQA_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

// IsSQLite reports whether the local sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"LISTINGQA_REDIS_URL"`
	Address      string        `envconfig:"LISTINGQA_REDIS_ADDR"`
	Password     string        `envconfig:"LISTINGQA_REDIS_PASSWORD"`
	DB           int           `envconfig:"LISTINGQA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LISTINGQA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LISTINGQA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LISTINGQA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LISTINGQA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LISTINGQA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LISTINGQA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LISTINGQA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LISTINGQA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LISTINGQA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LISTINGQA_AUTO_MIGRATE" default:"false"`
}

type AssessmentsConfig struct {
	ReconcileBatchSize int `envconfig:"LISTINGQA_RECONCILE_BATCH_SIZE" default:"500"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"LISTINGQA_CRON_INTERVAL" default:"15m"`
	LockTTL  time.Duration `envconfig:"LISTINGQA_CRON_LOCK_TTL" default:"30m"`
	// JobTimeout should stay below LockTTL so a stuck job cannot outlive the lease.
	JobTimeout time.Duration `envconfig:"LISTINGQA_CRON_JOB_TIMEOUT" default:"10m"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"LISTINGQA_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"LISTINGQA_GCP_CREDENTIALS_JSON"`
	// EmulatorHost points the Pub/Sub client at a local emulator without auth.
	EmulatorHost string `envconfig:"LISTINGQA_PUBSUB_EMULATOR_HOST"`
}

type PubSubConfig struct {
	AssessmentTopic string `envconfig:"LISTINGQA_PUBSUB_ASSESSMENT_TOPIC" default:"listing-assessment-events"`
	// TierTopic routes seller tier events separately; empty shares AssessmentTopic.
	TierTopic string `envconfig:"LISTINGQA_PUBSUB_TIER_TOPIC"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LISTINGQA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LISTINGQA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LISTINGQA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"LISTINGQA_OUTBOX_RETENTION_DAYS" default:"30"`
	PruneBatchSize int `envconfig:"LISTINGQA_OUTBOX_PRUNE_BATCH_SIZE" default:"500"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = defaultSQLiteDSN
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
