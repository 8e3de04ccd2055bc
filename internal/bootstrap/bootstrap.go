// Package bootstrap builds the long-lived services from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-chat-auth/identity"
	"github.com/jrsteele09/go-chat-auth/internal/config"
	"github.com/jrsteele09/go-chat-auth/internal/errors"
	"github.com/jrsteele09/go-chat-auth/internal/metrics"
	"github.com/jrsteele09/go-chat-auth/session"
	"github.com/jrsteele09/go-chat-auth/storage"
	"github.com/jrsteele09/go-chat-auth/storage/filestore"
	"github.com/jrsteele09/go-chat-auth/storage/inmemory"
	"github.com/jrsteele09/go-chat-auth/storage/redisstore"
	"github.com/jrsteele09/go-chat-auth/storage/sqlitestore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Services holds everything the server and the CLI need.
type Services struct {
	Config   config.Config
	Repo     storage.Repo
	Identity *identity.Client
	Verifier *identity.Verifier // nil when no project id is configured
	Registry *session.Registry
	Metrics  *metrics.Metrics

	closers []func() error
}

// New wires storage, the identity client, the optional token verifier, the
// session registry and its metrics.
func New(ctx context.Context, cfg config.Config) (*Services, error) {
	repo, closeRepo, err := NewStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc := &Services{Config: cfg, Repo: repo}
	if closeRepo != nil {
		svc.closers = append(svc.closers, closeRepo)
	}

	svc.Identity, err = identity.NewClient(cfg)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("[bootstrap New] %w", err)
	}

	if projectID := cfg.GetProjectID(); projectID != "" {
		verifier, err := identity.NewVerifier(ctx, projectID)
		if err != nil {
			log.Warn().Err(err).Str("project", projectID).Msg("ID token verification disabled")
		} else {
			svc.Verifier = verifier
		}
	}

	svc.Metrics = metrics.New()
	svc.Registry, err = session.NewRegistry(svc.Identity, repo,
		session.WithStoreOptions(session.WithObserver(svc.Metrics)),
		session.WithIdleTimeout(cfg.GetSessionIdleTimeout()),
	)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("[bootstrap New] %w", err)
	}
	svc.Metrics.TrackSessions(svc.Registry.Len)
	return svc, nil
}

// Close releases storage connections.
func (s *Services) Close() error {
	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// NewStorage opens the configured storage backend. The returned close
// function may be nil.
func NewStorage(ctx context.Context, cfg config.StorageConfig) (storage.Repo, func() error, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.GetStorageBackend()))
	switch backend {
	case BackendMemory:
		return inmemory.New(), nil, nil

	case BackendFile, "":
		var options []filestore.Option
		if secret := cfg.GetStorageSecret(); secret != "" {
			options = append(options, filestore.WithSecret(secret))
		}
		store, err := filestore.New(cfg.GetDataFolder(), options...)
		if err != nil {
			return nil, nil, fmt.Errorf("[bootstrap NewStorage] %w", err)
		}
		log.Info().Str("folder", cfg.GetDataFolder()).Bool("sealed", len(options) > 0).Msg("Using file storage")
		return store, nil, nil

	case BackendSQLite:
		path := cfg.GetSQLitePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("[bootstrap NewStorage] %w: %w", errors.ErrStorage, err)
		}
		store, err := sqlitestore.Open(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("[bootstrap NewStorage] %w", err)
		}
		log.Info().Str("path", path).Msg("Using sqlite storage")
		return store, store.Close, nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.GetRedisAddr(),
			DB:   cfg.GetRedisDB(),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("[bootstrap NewStorage] %w: redis %s: %w", errors.ErrStorage, cfg.GetRedisAddr(), err)
		}
		log.Info().Str("addr", cfg.GetRedisAddr()).Int("db", cfg.GetRedisDB()).Msg("Using redis storage")
		return redisstore.New(client, ""), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("[bootstrap NewStorage] %w: unknown storage backend %q", errors.ErrInvalidConfig, backend)
	}
}
