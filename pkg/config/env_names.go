package config

// EnvPrefix is passed to envconfig.Process; individual fields carry
// fully-qualified envconfig tags so the prefix is informational.
const EnvPrefix = "chamana"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "CHAMANA_APP_ENV"
	EnvPort     = "CHAMANA_APP_PORT"
	EnvRedisURL = "CHAMANA_REDIS_URL"

	EnvDBDSN  = "CHAMANA_DB_DSN"
	EnvDBHost = "CHAMANA_DB_HOST"
	EnvDBUser = "CHAMANA_DB_USER"
	EnvDBName = "CHAMANA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
