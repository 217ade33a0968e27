package config

const (
	EnvPrefix = "SHUTTLE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv   = "SHUTTLE_APP_ENV"
	EnvPort     = "SHUTTLE_APP_PORT"
	EnvLogLevel = "SHUTTLE_LOG_LEVEL"

	EnvDBDSN      = "SHUTTLE_DB_DSN"
	EnvDBDriver   = "SHUTTLE_DB_DRIVER"
	EnvDBHost     = "SHUTTLE_DB_HOST"
	EnvDBPort     = "SHUTTLE_DB_PORT"
	EnvDBUser     = "SHUTTLE_DB_USER"
	EnvDBPassword = "SHUTTLE_DB_PASSWORD"
	EnvDBName     = "SHUTTLE_DB_NAME"
	EnvDBSSLMode  = "SHUTTLE_DB_SSLMODE"
	EnvDBTimeout  = "SHUTTLE_DB_QUERY_TIMEOUT"

	EnvAutoMigrate = "SHUTTLE_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
