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
	Orders       OrdersConfig
	Mpesa        MpesaConfig
	Payments     PaymentsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"RETAILOPS_APP_ENV" required:"true"`
	Port         string   `envconfig:"RETAILOPS_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"RETAILOPS_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"RETAILOPS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"RETAILOPS_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RETAILOPS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RETAILOPS_DB_DSN"`
	Driver string `envconfig:"RETAILOPS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RETAILOPS_DB_HOST"`
	LegacyPort     int    `envconfig:"RETAILOPS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RETAILOPS_DB_USER"`
	LegacyPassword string `envconfig:"RETAILOPS_DB_PASSWORD"`
	LegacyName     string `envconfig:"RETAILOPS_DB_NAME"`
	LegacySSLMode  string `envconfig:"RETAILOPS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RETAILOPS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RETAILOPS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RETAILOPS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RETAILOPS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RETAILOPS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RETAILOPS_REDIS_ADDR"`
	Password     string        `envconfig:"RETAILOPS_REDIS_PASSWORD"`
	DB           int           `envconfig:"RETAILOPS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RETAILOPS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RETAILOPS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RETAILOPS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RETAILOPS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RETAILOPS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RETAILOPS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RETAILOPS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RETAILOPS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RETAILOPS_AUTO_MIGRATE" default:"false"`
}

// OrdersConfig drives order numbering and commit retries.
type OrdersConfig struct {
	SalePrefix      string        `envconfig:"RETAILOPS_ORDERS_SALE_PREFIX" default:"INV"`
	PurchasePrefix  string        `envconfig:"RETAILOPS_ORDERS_PURCHASE_PREFIX" default:"PO"`
	Timezone        string        `envconfig:"RETAILOPS_ORDERS_TIMEZONE" default:"UTC"`
	CommitRetries   int           `envconfig:"RETAILOPS_ORDERS_COMMIT_RETRIES" default:"3"`
	CommitRetryBase time.Duration `envconfig:"RETAILOPS_ORDERS_COMMIT_RETRY_BASE" default:"20ms"`
}

// Location resolves the configured timezone used to scope daily sequences.
func (o OrdersConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(o.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func (o OrdersConfig) validate() error {
	if strings.TrimSpace(o.SalePrefix) == "" || strings.TrimSpace(o.PurchasePrefix) == "" {
		return fmt.Errorf("%s and %s must not be empty", EnvOrdersSalePrefix, EnvOrdersPurchasePrefix)
	}
	if strings.EqualFold(o.SalePrefix, o.PurchasePrefix) {
		return fmt.Errorf("sale and purchase prefixes must differ")
	}
	if _, err := o.Location(); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvOrdersTimezone, err)
	}
	return nil
}

// MpesaConfig carries the STK push gateway credentials. It is loaded once and
// handed to the gateway client at construction. CallbackToken rides on the
// callback URL and authenticates every callback.
type MpesaConfig struct {
	BaseURL         string        `envconfig:"RETAILOPS_MPESA_BASE_URL" default:"https://sandbox.safaricom.co.ke"`
	ConsumerKey     string        `envconfig:"RETAILOPS_MPESA_CONSUMER_KEY"`
	ConsumerSecret  string        `envconfig:"RETAILOPS_MPESA_CONSUMER_SECRET"`
	ShortCode       string        `envconfig:"RETAILOPS_MPESA_SHORTCODE"`
	PassKey         string        `envconfig:"RETAILOPS_MPESA_PASSKEY"`
	CallbackURL     string        `envconfig:"RETAILOPS_MPESA_CALLBACK_URL"`
	TransactionType string        `envconfig:"RETAILOPS_MPESA_TRANSACTION_TYPE" default:"CustomerPayBillOnline"`
	RequestTimeout  time.Duration `envconfig:"RETAILOPS_MPESA_REQUEST_TIMEOUT" default:"15s"`
	TokenExpirySkew time.Duration `envconfig:"RETAILOPS_MPESA_TOKEN_EXPIRY_SKEW" default:"60s"`
	CallbackToken   string        `envconfig:"RETAILOPS_MPESA_CALLBACK_TOKEN"`
}

// Enabled reports whether enough credentials exist to talk to the gateway.
func (m MpesaConfig) Enabled() bool {
	return m.ConsumerKey != "" && m.ConsumerSecret != "" && m.ShortCode != "" && m.PassKey != ""
}

// SignedCallbackURL returns CallbackURL carrying the callback token as the
// token query parameter.
func (m MpesaConfig) SignedCallbackURL() (string, error) {
	token := strings.TrimSpace(m.CallbackToken)
	if token == "" {
		return "", fmt.Errorf("%s is required", EnvMpesaCallbackToken)
	}
	u, err := url.Parse(strings.TrimSpace(m.CallbackURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%s must be an absolute url", EnvMpesaCallbackURL)
	}
	q := u.Query()
	q.Set(CallbackTokenParam, token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type PaymentsConfig struct {
	StaleAfter       time.Duration `envconfig:"RETAILOPS_PAYMENTS_STALE_AFTER" default:"2m"`
	ReconcileBatch   int           `envconfig:"RETAILOPS_PAYMENTS_RECONCILE_BATCH" default:"50"`
	CallbackGuardTTL time.Duration `envconfig:"RETAILOPS_PAYMENTS_CALLBACK_GUARD_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"RETAILOPS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic   string `envconfig:"RETAILOPS_PUBSUB_ORDERS_TOPIC" default:"retailops-orders"`
	PaymentsTopic string `envconfig:"RETAILOPS_PUBSUB_PAYMENTS_TOPIC" default:"retailops-payments"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"RETAILOPS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"RETAILOPS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"RETAILOPS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int    `envconfig:"RETAILOPS_OUTBOX_RETENTION_DAYS" default:"30"`
	MetricsAddr    string `envconfig:"RETAILOPS_OUTBOX_METRICS_ADDR"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"RETAILOPS_CRON_INTERVAL" default:"1m"`
	LockTTL     time.Duration `envconfig:"RETAILOPS_CRON_LOCK_TTL" default:"5m"`
	MetricsAddr string        `envconfig:"RETAILOPS_CRON_METRICS_ADDR"`
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
