package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config interface {
	EnvConfig
	IdentityConfig
	StorageConfig
	CorsConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

// IdentityConfig describes how to reach the Identity Toolkit endpoints.
type IdentityConfig interface {
	GetAPIKey() string
	GetProjectID() string
	GetIdentityBaseURL() string
	GetSecureTokenURL() string
	GetIdentityTimeout() time.Duration
}

// StorageConfig selects the durable session storage backend.
type StorageConfig interface {
	GetStorageBackend() string
	GetDataFolder() string
	GetStorageSecret() string
	GetSQLitePath() string
	GetRedisAddr() string
	GetRedisDB() int
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
}

// New returns a Config backed only by environment variables.
func New() Config {
	return mainConfig{}
}

// Load returns a Config backed by environment variables, falling back to the
// values of a flat YAML file keyed by variable name. An empty path behaves
// like New.
func Load(path string) (Config, error) {
	if path == "" {
		return New(), nil
	}
	overlay, err := ReadOverlay(path)
	if err != nil {
		return nil, err
	}
	return mainConfig{EnvVars: EnvVars{overlay: overlay}}, nil
}

// Overlay holds file-provided values keyed by environment variable name.
type Overlay map[string]string

// ReadOverlay parses a YAML file such as
//
//	PORT: "9090"
//	FIREBASE_API_KEY: abc
func ReadOverlay(path string) (Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[config ReadOverlay] failed to read config file: %w", err)
	}
	overlay := Overlay{}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("[config ReadOverlay] failed to parse config file: %w", err)
	}
	return overlay, nil
}
