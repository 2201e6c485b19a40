package config

import "github.com/rs/zerolog/log"

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Store
}

func New() Config {
	return mainConfig{}
}

// WarnInsecureDefaults logs every setting that is still on a development default.
func WarnInsecureDefaults(c Config) {
	if c.GetSecretKey() == defaultSecretKey {
		log.Warn().Msg("Using default SECRET_KEY! Change this in production!")
	}
	if c.GetSessionSecret() == defaultSessionSecret {
		log.Warn().Msg("Using default SESSION_SECRET! Change this in production!")
	}
	if c.GetClientID() == "" || c.GetClientSecret() == "" {
		log.Warn().Msg("OAUTH_CLIENT_ID or OAUTH_CLIENT_SECRET is not set, login will fail at the provider")
	}
	if !c.GetSecureCookies() && c.GetEnv() != "DEV" {
		log.Warn().Str("env", c.GetEnv()).Msg("SECURE_COOKIES is off outside DEV")
	}
}
