package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-chat-auth/internal/errors"
	"github.com/jrsteele09/go-chat-auth/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultIdleTimeout is how long an unused store stays in memory.
const DefaultIdleTimeout = 30 * time.Minute

type entry struct {
	store    *Store
	refs     int
	lastUsed time.Time
}

// Registry hands out one Store per client id. A store is restored from
// durable storage the first time its client is seen, and held in memory only
// while it is in use or still carries a session or an error.
type Registry struct {
	identity    Authenticator
	repo        storage.Repo
	options     []Option
	idleTimeout time.Duration
	now         func() time.Time
	loads       singleflight.Group

	mu        sync.Mutex
	stores    map[string]*entry
	lastSweep time.Time
}

// RegistryOption defines a function type to modify the Registry instance.
type RegistryOption func(*Registry)

// WithStoreOptions applies options to every store the registry creates.
func WithStoreOptions(options ...Option) RegistryOption {
	return func(r *Registry) {
		r.options = append(r.options, options...)
	}
}

// WithIdleTimeout evicts unreferenced stores not used for d. Zero or less
// keeps them until they are released empty.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.idleTimeout = d
	}
}

// WithClock replaces time.Now for idle accounting.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(authenticator Authenticator, repo storage.Repo, options ...RegistryOption) (*Registry, error) {
	if authenticator == nil {
		return nil, errors.New("[session NewRegistry] authenticator is required")
	}
	if repo == nil {
		return nil, errors.New("[session NewRegistry] storage repo is required")
	}
	r := &Registry{
		identity:    authenticator,
		repo:        repo,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		stores:      make(map[string]*entry),
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Get returns the store for clientID, restoring it from durable storage when
// it is not in memory. A failed restore is returned and nothing is cached, so
// the next Get tries again. Every successful Get must be paired with Release.
func (r *Registry) Get(ctx context.Context, clientID string) (*Store, error) {
	if clientID == "" {
		return nil, errors.New("[session Registry.Get] client id is required")
	}
	if store := r.acquire(clientID, nil); store != nil {
		return store, nil
	}

	loaded, err, _ := r.loads.Do(clientID, func() (any, error) {
		store, err := NewStore(r.identity, r.repo, clientID, r.options...)
		if err != nil {
			return nil, err
		}
		// Waiters share this load; one of them going away must not fail the rest.
		if err := store.Restore(context.WithoutCancel(ctx)); err != nil {
			return nil, err
		}
		return store, nil
	})
	if err != nil {
		log.Err(err).Str("namespace", clientID).Msg("Failed to restore session")
		return nil, fmt.Errorf("[session Registry.Get] %w", err)
	}
	return r.acquire(clientID, loaded.(*Store)), nil
}

// acquire takes a reference on the cached store for clientID, caching loaded
// when nothing is held. It returns nil when nothing is cached and loaded is nil.
func (r *Registry) acquire(clientID string, loaded *Store) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)

	e, ok := r.stores[clientID]
	if !ok {
		if loaded == nil {
			return nil
		}
		e = &entry{store: loaded}
		r.stores[clientID] = e
	}
	e.refs++
	e.lastUsed = now
	return e.store
}

// Release gives back the reference taken by Get. An unreferenced store with
// no session, no error and no attempt in flight leaves memory at once.
func (r *Registry) Release(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.stores[clientID]
	if !ok {
		return
	}
	if e.refs > 0 {
		e.refs--
	}
	e.lastUsed = r.now()
	if e.refs == 0 && e.store.idle() {
		delete(r.stores, clientID)
	}
}

// sweep evicts unreferenced stores idle for longer than the timeout. It runs
// at most twice per timeout. r.mu must be held.
func (r *Registry) sweep(now time.Time) {
	if r.idleTimeout <= 0 || now.Sub(r.lastSweep) < r.idleTimeout/2 {
		return
	}
	r.lastSweep = now
	for clientID, e := range r.stores {
		if e.refs == 0 && now.Sub(e.lastUsed) >= r.idleTimeout {
			delete(r.stores, clientID)
		}
	}
}

// Len returns the number of stores held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
