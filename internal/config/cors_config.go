package config

import (
	"sort"
	"strings"
)

const (
	allowedOriginsVar = "ALLOWED_ORIGINS"
	allowedMethodsVar = "ALLOWED_METHODS"
	allowedHeadersVar = "ALLOWED_HEADERS"

	defaultAllowedOrigins = "http://localhost:5173"
)

var _ CorsConfig = EnvVars{}

type AllowedOrigins map[string]struct{}

// ParseAllowedOrigins splits a comma separated origin list.
func ParseAllowedOrigins(list string) AllowedOrigins {
	origins := AllowedOrigins{}
	for _, origin := range strings.Split(list, ",") {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			origins[origin] = struct{}{}
		}
	}
	return origins
}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	origins := make([]string, 0, len(a))
	for k := range a {
		origins = append(origins, k)
	}
	sort.Strings(origins)
	return strings.Join(origins, ", ")
}

// GetAllowedOrigins reads ALLOWED_ORIGINS; the default is the local front-end
// dev server.
func (e EnvVars) GetAllowedOrigins() AllowedOrigins {
	return ParseAllowedOrigins(e.lookup(allowedOriginsVar, defaultAllowedOrigins))
}

func (e EnvVars) GetAllowedMethods() string {
	return e.lookup(allowedMethodsVar, "GET, POST, OPTIONS")
}

func (e EnvVars) GetAllowedHeaders() string {
	return e.lookup(allowedHeadersVar, "Content-Type, Authorization, HX-Request, HX-Current-URL")
}
