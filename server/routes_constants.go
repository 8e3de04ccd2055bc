package server

import "github.com/jrsteele09/go-chat-auth/guard"

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Page Routes
	RouteIndex      = guard.PathIndex
	RouteAuthLogin  = guard.PathLogin
	RouteAuthSignUp = guard.PathSignUp
	RouteAuthLogout = "/auth/logout"
	RouteChat       = guard.PathChat

	// API Routes
	RouteAPILogin   = "/api/login"
	RouteAPISignUp  = "/api/sign-up"
	RouteAPILogout  = "/api/logout"
	RouteAPIRefresh = "/api/refresh"
	RouteAPISession = "/api/session"
	RouteAPIPrefix  = "/api/"

	RouteMetrics = "/metrics"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
)
