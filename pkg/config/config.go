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
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Dispatch     DispatchConfig
	Audit        AuditConfig
	Refill       RefillConfig
	Tracking     TrackingConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SCRC_APP_ENV" required:"true"`
	Port         string `envconfig:"SCRC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SCRC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SCRC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SCRC_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SCRC_DB_DSN"`
	Driver string `envconfig:"SCRC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SCRC_DB_HOST"`
	LegacyPort     int    `envconfig:"SCRC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SCRC_DB_USER"`
	LegacyPassword string `envconfig:"SCRC_DB_PASSWORD"`
	LegacyName     string `envconfig:"SCRC_DB_NAME"`
	LegacySSLMode  string `envconfig:"SCRC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SCRC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SCRC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SCRC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SCRC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SCRC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SCRC_REDIS_ADDR"`
	Password     string        `envconfig:"SCRC_REDIS_PASSWORD"`
	DB           int           `envconfig:"SCRC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SCRC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SCRC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SCRC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SCRC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SCRC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SCRC_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SCRC_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SCRC_JWT_EXPIRATION_MINUTES" default:"480"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SCRC_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SCRC_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SCRC_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SCRC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SCRC_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DispatchTopic        string `envconfig:"SCRC_PUBSUB_DISPATCH_TOPIC" default:"scrc-dispatch-events"`
	DispatchSubscription string `envconfig:"SCRC_PUBSUB_DISPATCH_SUBSCRIPTION"`
	AuditTopic           string `envconfig:"SCRC_PUBSUB_AUDIT_TOPIC" default:"scrc-audit-events"`
	AuditSubscription    string `envconfig:"SCRC_PUBSUB_AUDIT_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SCRC_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SCRC_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SCRC_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// DispatchConfig carries the assignment engine knobs. Capacity and matrix
// rules live in the dispatch_settings table, not here.
type DispatchConfig struct {
	DefaultCapacity  int           `envconfig:"SCRC_DISPATCH_DEFAULT_CAPACITY" default:"20"`
	MaxBatchSize     int           `envconfig:"SCRC_DISPATCH_MAX_BATCH_SIZE" default:"500"`
	HighDebtFloor    int64         `envconfig:"SCRC_DISPATCH_HIGH_DEBT_FLOOR" default:"1000000"`
	RulesCacheTTL    time.Duration `envconfig:"SCRC_DISPATCH_RULES_CACHE_TTL" default:"30s"`
	SnapshotRetries  int           `envconfig:"SCRC_DISPATCH_SNAPSHOT_RETRIES" default:"1"`
	ScheduledBatch   int           `envconfig:"SCRC_DISPATCH_SCHEDULED_BATCH" default:"200"`
	ScheduledEnabled bool          `envconfig:"SCRC_DISPATCH_SCHEDULED_ENABLED" default:"true"`
}

type AuditConfig struct {
	GPSMismatchMeters  float64 `envconfig:"SCRC_AUDIT_GPS_MISMATCH_METERS" default:"200"`
	MinDurationMinutes int     `envconfig:"SCRC_AUDIT_MIN_DURATION_MINUTES" default:"5"`
	MaxDurationMinutes int     `envconfig:"SCRC_AUDIT_MAX_DURATION_MINUTES" default:"120"`
}

type RefillConfig struct {
	BacklogThreshold int `envconfig:"SCRC_REFILL_BACKLOG_THRESHOLD" default:"3"`
	CutoffHour       int `envconfig:"SCRC_REFILL_CUTOFF_HOUR" default:"16"`
	BoostCapacity    int `envconfig:"SCRC_REFILL_BOOST_CAPACITY" default:"5"`
	BatchSize        int `envconfig:"SCRC_REFILL_BATCH_SIZE" default:"5"`
}

type TrackingConfig struct {
	OnlineWindow time.Duration `envconfig:"SCRC_TRACKING_ONLINE_WINDOW" default:"10m"`
}

type CronConfig struct {
	LockTTL          time.Duration `envconfig:"SCRC_CRON_LOCK_TTL" default:"4m"`
	OutboxRetention  time.Duration `envconfig:"SCRC_CRON_OUTBOX_RETENTION" default:"168h"`
	DispatchHour     int           `envconfig:"SCRC_CRON_DISPATCH_HOUR" default:"6"`
	DispatchInterval time.Duration `envconfig:"SCRC_CRON_DISPATCH_INTERVAL" default:"24h"`
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
