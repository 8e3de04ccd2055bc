package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	envVar            = "ENV"
	logLevelVar       = "LOG_LEVEL"
	apiKeyVar         = "FIREBASE_API_KEY"
	projectIDVar      = "FIREBASE_PROJECT_ID"
	identityBaseVar   = "IDENTITY_BASE_URL"
	secureTokenVar    = "SECURE_TOKEN_URL"
	identityTimeout   = "IDENTITY_TIMEOUT"
	storageBackendVar = "STORAGE_BACKEND"
	folderEnvVar      = "FOLDER"
	storageSecretVar  = "STORAGE_SECRET"
	redisAddrVar      = "REDIS_ADDR"
	redisDBVar        = "REDIS_DB"
	sqlitePathVar     = "SQLITE_PATH"
)

const (
	DefaultIdentityBaseURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultSecureTokenURL  = "https://securetoken.googleapis.com/v1/token"
)

type EnvVars struct {
	overlay Overlay
}

var _ EnvConfig = EnvVars{}
var _ IdentityConfig = EnvVars{}
var _ StorageConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.lookup(portEnvVar, "8080")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.lookup(appNameVar, "Chat Auth")
}

func (e EnvVars) GetEnv() string {
	return e.lookup(envVar, "DEV")
}

func (e EnvVars) GetLogLevel() string {
	return e.lookup(logLevelVar, "info")
}

func (e EnvVars) GetAPIKey() string {
	return e.lookup(apiKeyVar, "")
}

// GetProjectID implements IdentityConfig. An empty project id disables ID
// token verification.
func (e EnvVars) GetProjectID() string {
	return e.lookup(projectIDVar, "")
}

func (e EnvVars) GetIdentityBaseURL() string {
	return e.lookup(identityBaseVar, DefaultIdentityBaseURL)
}

func (e EnvVars) GetSecureTokenURL() string {
	return e.lookup(secureTokenVar, DefaultSecureTokenURL)
}

// GetIdentityTimeout returns the HTTP client timeout for identity calls.
// Zero means no timeout.
func (e EnvVars) GetIdentityTimeout() time.Duration {
	d, err := time.ParseDuration(e.lookup(identityTimeout, "0s"))
	if err != nil {
		return 0
	}
	return d
}

// GetStorageBackend returns one of "memory", "file", "sqlite" or "redis".
func (e EnvVars) GetStorageBackend() string {
	return e.lookup(storageBackendVar, "file")
}

func (e EnvVars) GetDataFolder() string {
	return e.lookup(folderEnvVar, "./data")
}

func (e EnvVars) GetStorageSecret() string {
	return e.lookup(storageSecretVar, "")
}

// GetSQLitePath defaults to chatauth.db inside the data folder.
func (e EnvVars) GetSQLitePath() string {
	return e.lookup(sqlitePathVar, filepath.Join(e.GetDataFolder(), "chatauth.db"))
}

func (e EnvVars) GetRedisAddr() string {
	return e.lookup(redisAddrVar, "localhost:6379")
}

func (e EnvVars) GetRedisDB() int {
	db, err := strconv.Atoi(e.lookup(redisDBVar, "0"))
	if err != nil {
		return 0
	}
	return db
}

func (e EnvVars) lookup(name, defaultValue string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	if value := e.overlay[name]; value != "" {
		return value
	}
	return defaultValue
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
