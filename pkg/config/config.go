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
	DB           DBConfig
	Redis        RedisConfig
	Paytm        PaytmConfig
	Capture      CaptureConfig
	Webhook      WebhookConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Auth         AuthConfig
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
	if err := cfg.Paytm.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PAYTM_ADAPTER_APP_ENV" required:"true"`
	Port         string `envconfig:"PAYTM_ADAPTER_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PAYTM_ADAPTER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAYTM_ADAPTER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"PAYTM_ADAPTER_DB_DSN"`
	Driver string `envconfig:"PAYTM_ADAPTER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PAYTM_ADAPTER_DB_HOST"`
	LegacyPort     int    `envconfig:"PAYTM_ADAPTER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAYTM_ADAPTER_DB_USER"`
	LegacyPassword string `envconfig:"PAYTM_ADAPTER_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAYTM_ADAPTER_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAYTM_ADAPTER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAYTM_ADAPTER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAYTM_ADAPTER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAYTM_ADAPTER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAYTM_ADAPTER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYTM_ADAPTER_REDIS_URL"`
	Address      string        `envconfig:"PAYTM_ADAPTER_REDIS_ADDR"`
	Password     string        `envconfig:"PAYTM_ADAPTER_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAYTM_ADAPTER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAYTM_ADAPTER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAYTM_ADAPTER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAYTM_ADAPTER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYTM_ADAPTER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAYTM_ADAPTER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// PaytmConfig holds the merchant credentials. It is read once at startup and never reloaded.
type PaytmConfig struct {
	MerchantID     string        `envconfig:"PAYTM_ADAPTER_PAYTM_MERCHANT_ID" required:"true"`
	MerchantKey    string        `envconfig:"PAYTM_ADAPTER_PAYTM_MERCHANT_KEY" required:"true"`
	TestMode       bool          `envconfig:"PAYTM_ADAPTER_PAYTM_TEST_MODE" default:"true"`
	CallbackURL    string        `envconfig:"PAYTM_ADAPTER_PAYTM_CALLBACK_URL"`
	Website        string        `envconfig:"PAYTM_ADAPTER_PAYTM_WEBSITE"`
	ChannelID      string        `envconfig:"PAYTM_ADAPTER_PAYTM_CHANNEL_ID" default:"WEB"`
	RequestTimeout time.Duration `envconfig:"PAYTM_ADAPTER_PAYTM_REQUEST_TIMEOUT" default:"15s"`
}

// WebsiteName returns the configured website or the environment default.
func (p PaytmConfig) WebsiteName() string {
	if site := strings.TrimSpace(p.Website); site != "" {
		return site
	}
	if p.TestMode {
		return "WEBSTAGING"
	}
	return "DEFAULT"
}

func (p PaytmConfig) validate() error {
	if strings.TrimSpace(p.MerchantID) == "" {
		return fmt.Errorf("%s is required", EnvPaytmMerchantID)
	}
	if len(p.MerchantKey) != 16 {
		return fmt.Errorf("%s must be exactly 16 characters", EnvPaytmMerchantKey)
	}
	if p.CallbackURL != "" {
		if _, err := url.ParseRequestURI(p.CallbackURL); err != nil {
			return fmt.Errorf("%s is not a valid url: %w", EnvPaytmCallbackURL, err)
		}
	}
	return nil
}

type CaptureConfig struct {
	LockTTL     time.Duration `envconfig:"PAYTM_ADAPTER_CAPTURE_LOCK_TTL" default:"30s"`
	LockRetries int           `envconfig:"PAYTM_ADAPTER_CAPTURE_LOCK_RETRIES" default:"32"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"PAYTM_ADAPTER_WEBHOOK_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PAYTM_ADAPTER_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	CartEventsSubscription string `envconfig:"PAYTM_ADAPTER_PUBSUB_CART_EVENTS_SUBSCRIPTION"`
}

type AuthConfig struct {
	JWTSecret string `envconfig:"PAYTM_ADAPTER_JWT_SECRET"`
	JWTIssuer string `envconfig:"PAYTM_ADAPTER_JWT_ISSUER" default:"paytm-adapter"`
}

// Enabled reports whether the internal payments API should be mounted.
func (a AuthConfig) Enabled() bool {
	return strings.TrimSpace(a.JWTSecret) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PAYTM_ADAPTER_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PAYTM_ADAPTER_AUTO_MIGRATE" default:"false"`
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
