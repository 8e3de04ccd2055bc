package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-chat-auth/storage"
)

var _ storage.Repo = (*Repo)(nil)

// Repo is an in-memory implementation of storage.Repo. Values do not survive
// a restart.
type Repo struct {
	mu     sync.RWMutex
	values map[string]map[string]string // namespace -> key -> value
}

func New() *Repo {
	return &Repo{
		values: make(map[string]map[string]string),
	}
}

func (r *Repo) Set(_ context.Context, namespace, key, value string) error {
	if err := storage.CheckKey(namespace, key); err != nil {
		return fmt.Errorf("[inmemory Set] %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.values[namespace]; !ok {
		r.values[namespace] = make(map[string]string)
	}
	r.values[namespace][key] = value
	return nil
}

func (r *Repo) Get(_ context.Context, namespace, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.values[namespace][key]
	if !ok {
		return "", fmt.Errorf("[inmemory Get] %s/%s: %w", namespace, key, storage.ErrNotFound)
	}
	return value, nil
}

func (r *Repo) Delete(_ context.Context, namespace string, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, ok := r.values[namespace]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(values, key)
	}

	// Clean up empty namespace map
	if len(values) == 0 {
		delete(r.values, namespace)
	}
	return nil
}
