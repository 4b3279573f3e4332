package config

const (
	EnvPrefix = "LENDINGLIB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "LENDINGLIB_APP_ENV"
	EnvPort     = "LENDINGLIB_APP_PORT"
	EnvLogLevel = "LENDINGLIB_LOG_LEVEL"

	EnvDBDSN  = "LENDINGLIB_DB_DSN"
	EnvDBHost = "LENDINGLIB_DB_HOST"
	EnvDBUser = "LENDINGLIB_DB_USER"
	EnvDBName = "LENDINGLIB_DB_NAME"

	EnvRedisURL = "LENDINGLIB_REDIS_URL"

	EnvJWTSecret = "LENDINGLIB_JWT_SECRET"
	EnvJWTIssuer = "LENDINGLIB_JWT_ISSUER"

	EnvUseSQLite = "LENDINGLIB_USE_SQLITE"

	EnvUrgentWindowDays  = "LENDINGLIB_AVAILABILITY_URGENT_WINDOW_DAYS"
	EnvReconcileInterval = "LENDINGLIB_AVAILABILITY_RECONCILE_INTERVAL"

	EnvCalendarTimeZone = "LENDINGLIB_CALENDAR_TIMEZONE"

	defaultSQLiteDSN = "file:lendinglib.db?cache=shared&_fk=1"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
