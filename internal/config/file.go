package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFileVar names the environment variable pointing at an optional YAML config file
const ConfigFileVar = "SAHASIK_CONFIG"

type fileConfig struct {
	AppName  string `yaml:"app_name"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_folder"`

	Services struct {
		Auth    string `yaml:"auth"`
		User    string `yaml:"user"`
		Course  string `yaml:"course"`
		Timeout string `yaml:"timeout"`
	} `yaml:"services"`

	Credentials struct {
		RefreshTTL string `yaml:"refresh_ttl"`
		CookieName string `yaml:"cookie_name"`
		Secure     *bool  `yaml:"secure"`
		Store      string `yaml:"store"`
		File       string `yaml:"file"`
		RedisAddr  string `yaml:"redis_addr"`
	} `yaml:"credentials"`

	Server struct {
		AuthPort          string   `yaml:"auth_port"`
		UserPort          string   `yaml:"user_port"`
		CoursePort        string   `yaml:"course_port"`
		Issuer            string   `yaml:"issuer"`
		AccessTokenExpiry string   `yaml:"access_token_expiry"`
		AllowedOrigins    []string `yaml:"allowed_origins"`
	} `yaml:"server"`
}

// Load reads a YAML config file. Environment variables override anything in it.
// An empty path falls back to SAHASIK_CONFIG and then to environment only.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(ConfigFileVar)
	}
	if path == "" {
		return New(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[config.Load] failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML content
func Parse(data []byte) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("[config.Parse] invalid yaml: %w", err)
	}
	return newConfig(fc.values()), nil
}

func (fc fileConfig) values() values {
	v := values{
		appNameVar:           fc.AppName,
		envVar:               fc.Env,
		logLevelVar:          fc.LogLevel,
		folderEnvVar:         fc.DataDir,
		authURLVar:           fc.Services.Auth,
		userURLVar:           fc.Services.User,
		courseURLVar:         fc.Services.Course,
		requestTimeoutVar:    fc.Services.Timeout,
		refreshTTLVar:        fc.Credentials.RefreshTTL,
		refreshCookieVar:     fc.Credentials.CookieName,
		credentialStoreVar:   fc.Credentials.Store,
		credentialFileVar:    fc.Credentials.File,
		redisAddrVar:         fc.Credentials.RedisAddr,
		authPortVar:          fc.Server.AuthPort,
		userPortVar:          fc.Server.UserPort,
		coursePortVar:        fc.Server.CoursePort,
		issuerVar:            fc.Server.Issuer,
		accessTokenExpiryVar: fc.Server.AccessTokenExpiry,
		allowedOriginsVar:    strings.Join(fc.Server.AllowedOrigins, ","),
	}
	if fc.Credentials.Secure != nil {
		v[secureCookiesVar] = strconv.FormatBool(*fc.Credentials.Secure)
	}
	return v
}
