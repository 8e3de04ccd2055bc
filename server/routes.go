package server

import (
	"net/http"
	"strings"
)

func (s *Server) initRoutes() {
	pageMiddleware := s.HTMLMiddleWare(s.guard.Middleware(isAuthenticated))

	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), pageMiddleware...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteAuthLogin, ChainMiddleware(s.LoginPageHandler(), pageMiddleware...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), pageMiddleware...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// SIGN UP
	s.RegisterRouteHandler("GET "+RouteAuthSignUp, ChainMiddleware(s.SignupGetHandler(), pageMiddleware...))
	s.RegisterRouteHandler("POST "+RouteAuthSignUp, ChainMiddleware(s.SignupPostHandler(), pageMiddleware...))

	// CHAT
	s.RegisterRouteHandler("GET "+RouteChat, ChainMiddleware(s.ChatHandler(), pageMiddleware...))

	// API routes
	s.RegisterRouteHandler("POST "+RouteAPILogin, ChainMiddleware(s.APILoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPISignUp, ChainMiddleware(s.APISignUpHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPILogout, ChainMiddleware(s.APILogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIRefresh, ChainMiddleware(s.APIRefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.APISessionHandler(), s.APIMiddleware()...))
	// Preflight requests are answered by CorsMiddleware
	s.RegisterRouteHandler("OPTIONS "+RouteAPIPrefix, ChainMiddleware(http.NotFound, s.CorsMiddleware))

	if s.metrics != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, ChainMiddleware(s.metrics.ServeHTTP, s.LoggingMiddleware, s.RecoverMiddleware))
	}

	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.serveFileHandler(), s.StaticMiddleware()...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.URL.Path, "/")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		err := StreamFile(w, r, filePath)
		if err != nil {
			logError("GET", filePath, err.Error())
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}
