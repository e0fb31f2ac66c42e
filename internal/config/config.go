package config

import "time"

type Config interface {
	EnvConfig
	ServicesConfig
	CredentialConfig
	TokenConfig
	CorsConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetDataFolder() string
}

// ServicesConfig locates the three backend services and bounds each call.
type ServicesConfig interface {
	GetAuthURL() string
	GetUserURL() string
	GetCourseURL() string
	GetRequestTimeout() time.Duration
	GetAuthPort() string
	GetUserPort() string
	GetCoursePort() string
}

// CredentialConfig controls how the refresh token is persisted on the client.
type CredentialConfig interface {
	GetRefreshTokenTTL() time.Duration
	GetRefreshCookieName() string
	GetSecureCookies() bool
	GetCredentialStore() string
	GetCredentialFile() string
	GetRedisAddr() string
}

// TokenConfig controls the tokens issued by the development backend.
type TokenConfig interface {
	GetIssuer() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Services
	Credentials
	Tokens
	Cors
}

// New returns a configuration backed by environment variables only.
func New() Config {
	return newConfig(nil)
}

func newConfig(v values) Config {
	return mainConfig{
		EnvVars:     EnvVars{v},
		Services:    Services{v},
		Credentials: Credentials{v},
		Tokens:      Tokens{v},
		Cors:        Cors{v},
	}
}
