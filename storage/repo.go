package storage

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-chat-auth/internal/errors"
)

// Keys written for a signed in session. They mirror the browser's
// localStorage layout so an existing front-end can share the data.
const (
	KeyUserToken    = "userToken"
	KeyRefreshToken = "refreshToken"
	KeyEmail        = "email"
	KeyExpiresIn    = "expiresIn"
)

// SessionKeys lists every key owned by a session, in write order.
var SessionKeys = []string{KeyUserToken, KeyRefreshToken, KeyEmail, KeyExpiresIn}

// ErrNotFound is returned by Get when the key has never been set.
var ErrNotFound = errors.ErrNotFound

// ErrInvalidKey is returned by Set for an empty namespace or key.
var ErrInvalidKey = errors.ErrInvalidKey

// CheckKey rejects empty namespaces and keys. Every backend calls it before
// writing.
func CheckKey(namespace, key string) error {
	if namespace == "" || key == "" {
		return fmt.Errorf("%w: namespace=%q key=%q", ErrInvalidKey, namespace, key)
	}
	return nil
}

// Repo is durable string key/value storage partitioned by namespace.
// A namespace is one client (a browser or the CLI).
type Repo interface {
	// Set stores value under key
	Set(ctx context.Context, namespace, key, value string) error

	// Get returns the stored value or ErrNotFound
	Get(ctx context.Context, namespace, key string) (string, error)

	// Delete removes keys; missing keys are ignored
	Delete(ctx context.Context, namespace string, keys ...string) error
}
