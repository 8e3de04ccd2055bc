package config

import "time"

const (
	cookieNameVar   = "CLIENT_COOKIE_NAME"
	cookieMaxAgeVar = "CLIENT_COOKIE_MAX_AGE"
	idleTimeoutVar  = "SESSION_IDLE_TIMEOUT"

	defaultCookieMaxAge = 30 * 24 * time.Hour
	defaultIdleTimeout  = 30 * time.Minute
)

type SecurityConfig interface {
	GetClientCookieName() string
	GetClientCookieMaxAge() time.Duration
	GetSessionIdleTimeout() time.Duration
}

var _ SecurityConfig = EnvVars{}

// GetClientCookieName is the cookie that binds a browser to its session store.
func (e EnvVars) GetClientCookieName() string {
	return e.lookup(cookieNameVar, "chat_client_id")
}

func (e EnvVars) GetClientCookieMaxAge() time.Duration {
	d, err := time.ParseDuration(e.lookup(cookieMaxAgeVar, ""))
	if err != nil || d <= 0 {
		return defaultCookieMaxAge
	}
	return d
}

// GetSessionIdleTimeout is how long an unused client session stays in server
// memory. It is restored from storage on the next request.
func (e EnvVars) GetSessionIdleTimeout() time.Duration {
	d, err := time.ParseDuration(e.lookup(idleTimeoutVar, ""))
	if err != nil || d <= 0 {
		return defaultIdleTimeout
	}
	return d
}
