package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-chat-auth/guard"
	"github.com/jrsteele09/go-chat-auth/identity"
	"github.com/jrsteele09/go-chat-auth/internal/config"
	"github.com/jrsteele09/go-chat-auth/session"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	registry *session.Registry
	guard    *guard.Guard
	verifier *identity.Verifier // Optional; claims are only peeked when nil
	metrics  http.Handler       // Optional; served on RouteMetrics
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithVerifier checks ID token signatures before claims are returned.
func WithVerifier(verifier *identity.Verifier) Option {
	return func(s *Server) {
		s.verifier = verifier
	}
}

// WithMetricsHandler exposes handler on RouteMetrics.
func WithMetricsHandler(handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = handler
	}
}

func New(config config.Config, registry *session.Registry, options ...Option) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("[Server New] session registry is required")
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		registry: registry,
		guard:    guard.New(guard.DefaultTable),
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

// Routes returns the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func colouredMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colouredMethod(method), path)
}

func logError(method, path, error string) {
	log.Error().Msgf("[%-19s] %s %s", colouredMethod(method), path, Red+error+ResetColor)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
