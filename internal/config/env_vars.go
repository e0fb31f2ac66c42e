package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar        = "APP_TITLE"
	envVar            = "ENV"
	logLevelVar       = "LOG_LEVEL"
	folderEnvVar      = "DATA_FOLDER"
	authURLVar        = "API_AUTH"
	userURLVar        = "API_USER"
	courseURLVar      = "API_COURSE"
	requestTimeoutVar = "REQUEST_TIMEOUT"
	authPortVar       = "AUTH_PORT"
	userPortVar       = "USER_PORT"
	coursePortVar     = "COURSE_PORT"

	refreshTTLVar        = "REFRESH_TOKEN_TTL"
	refreshCookieVar     = "REFRESH_COOKIE_NAME"
	secureCookiesVar     = "COOKIE_SECURE"
	credentialStoreVar   = "CREDENTIAL_STORE"
	credentialFileVar    = "CREDENTIAL_FILE"
	redisAddrVar         = "REDIS_ADDR"
	issuerVar            = "TOKEN_ISSUER"
	accessTokenExpiryVar = "ACCESS_TOKEN_EXPIRY"
	refreshLengthVar     = "REFRESH_TOKEN_LENGTH"
	allowedOriginsVar    = "ALLOWED_ORIGINS"
)

// values holds settings loaded from a config file. Environment variables
// always take precedence over them.
type values map[string]string

func (v values) get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, ok := v[key]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (v values) duration(key string, defaultValue time.Duration) time.Duration {
	raw := v.get(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func (v values) bool(key string, defaultValue bool) bool {
	raw := v.get(key, "")
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return b
}

func (v values) int(key string, defaultValue int) int {
	raw := v.get(key, "")
	if raw == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(raw)
	if err != nil || i <= 0 {
		return defaultValue
	}
	return i
}

type EnvVars struct{ values }

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.get(appNameVar, "Sahasik")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.get(envVar, "DEV"))
}

func (e EnvVars) GetLogLevel() string {
	return e.get(logLevelVar, "info")
}

func (e EnvVars) GetDataFolder() string {
	if folder := e.get(folderEnvVar, ""); folder != "" {
		return folder
	}
	if home, err := os.UserConfigDir(); err == nil {
		return filepath.Join(home, "sahasik")
	}
	return "./data"
}

type Services struct{ values }

var _ ServicesConfig = Services{}

// GetAuthURL returns the auth service base URL including the API prefix
func (s Services) GetAuthURL() string {
	return apiBase(s.get(authURLVar, "http://localhost:8080"))
}

func (s Services) GetUserURL() string {
	return apiBase(s.get(userURLVar, "http://localhost:8081"))
}

func (s Services) GetCourseURL() string {
	return apiBase(s.get(courseURLVar, "http://localhost:8082"))
}

func (s Services) GetRequestTimeout() time.Duration {
	return s.duration(requestTimeoutVar, 10*time.Second)
}

func (s Services) GetAuthPort() string {
	return port(s.get(authPortVar, "8080"))
}

func (s Services) GetUserPort() string {
	return port(s.get(userPortVar, "8081"))
}

func (s Services) GetCoursePort() string {
	return port(s.get(coursePortVar, "8082"))
}

type Credentials struct{ values }

var _ CredentialConfig = Credentials{}

func (c Credentials) GetRefreshTokenTTL() time.Duration {
	return c.duration(refreshTTLVar, 7*24*time.Hour) // 7 days
}

func (c Credentials) GetRefreshCookieName() string {
	return c.get(refreshCookieVar, "refresh_token")
}

func (c Credentials) GetSecureCookies() bool {
	return c.bool(secureCookiesVar, true)
}

// GetCredentialStore returns one of "file", "memory" or "redis"
func (c Credentials) GetCredentialStore() string {
	return strings.ToLower(c.get(credentialStoreVar, "file"))
}

func (c Credentials) GetCredentialFile() string {
	return c.get(credentialFileVar, filepath.Join(EnvVars(c).GetDataFolder(), "credentials.json"))
}

func (c Credentials) GetRedisAddr() string {
	return c.get(redisAddrVar, "localhost:6379")
}

type Tokens struct{ values }

var _ TokenConfig = Tokens{}

func (t Tokens) GetIssuer() string {
	return strings.TrimSuffix(t.get(issuerVar, "http://localhost:8080"), "/")
}

func (t Tokens) GetAccessTokenExpiry() time.Duration {
	return t.duration(accessTokenExpiryVar, 15*time.Minute)
}

func (t Tokens) GetRefreshTokenExpiry() time.Duration {
	return Credentials(t).GetRefreshTokenTTL()
}

func (t Tokens) GetRefreshTokenLength() int {
	return t.int(refreshLengthVar, 32) // 32 bytes = 256 bits
}

func apiBase(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + "/api/v1"
}

func port(p string) string {
	if !strings.HasPrefix(p, ":") {
		p = fmt.Sprintf(":%s", p)
	}
	return p
}

func GetEnv(envVar, defaultValue string) string {
	return values(nil).get(envVar, defaultValue)
}
