package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "RETAILOPS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "RETAILOPS_APP_ENV"
	EnvPort     = "RETAILOPS_APP_PORT"
	EnvLogLevel = "RETAILOPS_LOG_LEVEL"

	EnvDBDSN  = "RETAILOPS_DB_DSN"
	EnvDBHost = "RETAILOPS_DB_HOST"
	EnvDBUser = "RETAILOPS_DB_USER"
	EnvDBName = "RETAILOPS_DB_NAME"

	EnvRedisURL = "RETAILOPS_REDIS_URL"

	EnvJWTSecret = "RETAILOPS_JWT_SECRET"
	EnvJWTIssuer = "RETAILOPS_JWT_ISSUER"

	EnvOrdersSalePrefix     = "RETAILOPS_ORDERS_SALE_PREFIX"
	EnvOrdersPurchasePrefix = "RETAILOPS_ORDERS_PURCHASE_PREFIX"
	EnvOrdersTimezone       = "RETAILOPS_ORDERS_TIMEZONE"

	EnvMpesaConsumerKey    = "RETAILOPS_MPESA_CONSUMER_KEY"
	EnvMpesaConsumerSecret = "RETAILOPS_MPESA_CONSUMER_SECRET"
	EnvMpesaShortCode      = "RETAILOPS_MPESA_SHORTCODE"
	EnvMpesaPassKey        = "RETAILOPS_MPESA_PASSKEY"
	EnvMpesaRequestTimeout = "RETAILOPS_MPESA_REQUEST_TIMEOUT"
	EnvMpesaCallbackURL    = "RETAILOPS_MPESA_CALLBACK_URL"
	EnvMpesaCallbackToken  = "RETAILOPS_MPESA_CALLBACK_TOKEN"

	// CallbackTokenParam is the query parameter carrying the callback token.
	CallbackTokenParam = "token"

	EnvGCPProjectID = "RETAILOPS_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
