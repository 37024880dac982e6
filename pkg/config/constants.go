package config

const (
	EnvPrefix = "SCRC"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "SCRC_DB_DSN"
	EnvDBHost = "SCRC_DB_HOST"
	EnvDBUser = "SCRC_DB_USER"
	EnvDBName = "SCRC_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
