package config

const (
	EnvPrefix = "PAYTM_ADAPTER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "PAYTM_ADAPTER_APP_ENV"
	EnvPort     = "PAYTM_ADAPTER_APP_PORT"
	EnvLogLevel = "PAYTM_ADAPTER_LOG_LEVEL"

	EnvDBDSN  = "PAYTM_ADAPTER_DB_DSN"
	EnvDBHost = "PAYTM_ADAPTER_DB_HOST"
	EnvDBUser = "PAYTM_ADAPTER_DB_USER"
	EnvDBName = "PAYTM_ADAPTER_DB_NAME"

	EnvRedisURL = "PAYTM_ADAPTER_REDIS_URL"

	EnvPaytmMerchantID  = "PAYTM_ADAPTER_PAYTM_MERCHANT_ID"
	EnvPaytmMerchantKey = "PAYTM_ADAPTER_PAYTM_MERCHANT_KEY"
	EnvPaytmTestMode    = "PAYTM_ADAPTER_PAYTM_TEST_MODE"
	EnvPaytmCallbackURL = "PAYTM_ADAPTER_PAYTM_CALLBACK_URL"
	EnvPaytmWebsite     = "PAYTM_ADAPTER_PAYTM_WEBSITE"

	EnvCaptureLockTTL = "PAYTM_ADAPTER_CAPTURE_LOCK_TTL"

	EnvGCPProjectID        = "PAYTM_ADAPTER_GCP_PROJECT_ID"
	EnvPubSubCartEventsSub = "PAYTM_ADAPTER_PUBSUB_CART_EVENTS_SUBSCRIPTION"

	EnvJWTSecret = "PAYTM_ADAPTER_JWT_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
