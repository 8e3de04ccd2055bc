package filestore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-chat-auth/internal/errors"
	"github.com/jrsteele09/go-chat-auth/storage"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	nonceSize = 24
	keyInfo   = "chatauth filestore secretbox v1"
)

var _ storage.Repo = (*Store)(nil)

// Store keeps one JSON document per namespace under a data folder.
type Store struct {
	dir string
	key *[32]byte // nil when values are stored in clear text
	mu  sync.Mutex
}

// Option defines a function type to modify the Store instance.
type Option func(*Store)

// WithSecret seals every value with secretbox using a key derived from secret
// with HKDF-SHA256.
func WithSecret(secret string) Option {
	return func(s *Store) {
		if secret == "" {
			return
		}
		s.key = DeriveKey(secret)
	}
}

// DeriveKey expands secret into a secretbox key.
func DeriveKey(secret string) *[32]byte {
	var key [32]byte
	// A 32 byte read from HKDF-SHA256 cannot fail.
	_, _ = io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key[:])
	return &key
}

// New creates the data folder if needed.
func New(dir string, options ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("[filestore New] %w: %w", errors.ErrStorage, err)
	}
	s := &Store{dir: dir}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Store) Set(_ context.Context, namespace, key, value string) error {
	if err := storage.CheckKey(namespace, key); err != nil {
		return fmt.Errorf("[filestore Set] %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(namespace)
	if err != nil {
		return err
	}
	sealed, err := s.seal(value)
	if err != nil {
		return err
	}
	doc[key] = sealed
	return s.write(namespace, doc)
}

func (s *Store) Get(_ context.Context, namespace, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(namespace)
	if err != nil {
		return "", err
	}
	sealed, ok := doc[key]
	if !ok {
		return "", fmt.Errorf("[filestore Get] %s/%s: %w", namespace, key, storage.ErrNotFound)
	}
	return s.open(sealed)
}

func (s *Store) Delete(_ context.Context, namespace string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(namespace)
	if err != nil {
		return err
	}
	for _, key := range keys {
		delete(doc, key)
	}
	if len(doc) == 0 {
		if err := os.Remove(s.path(namespace)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("[filestore Delete] %w: %w", errors.ErrStorage, err)
		}
		return nil
	}
	return s.write(namespace, doc)
}

// path maps a namespace to a file name that cannot escape the data folder.
func (s *Store) path(namespace string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(namespace))
	return filepath.Join(s.dir, name+".json")
}

func (s *Store) read(namespace string) (map[string]string, error) {
	data, err := os.ReadFile(s.path(namespace))
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[filestore read] %w: %w", errors.ErrStorage, err)
	}
	doc := map[string]string{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("[filestore read] %w: corrupt document %s: %w", errors.ErrStorage, namespace, err)
	}
	return doc, nil
}

// write replaces the namespace document atomically.
func (s *Store) write(namespace string, doc map[string]string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("[filestore write] %w: %w", errors.ErrStorage, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("[filestore write] %w: %w", errors.ErrStorage, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestore write] %w: %w", errors.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[filestore write] %w: %w", errors.ErrStorage, err)
	}
	if err := os.Rename(tmp.Name(), s.path(namespace)); err != nil {
		return fmt.Errorf("[filestore write] %w: %w", errors.ErrStorage, err)
	}
	return nil
}

func (s *Store) seal(value string) (string, error) {
	if s.key == nil {
		return value, nil
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("[filestore seal] %w: %w", errors.ErrStorage, err)
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, s.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

func (s *Store) open(sealed string) (string, error) {
	if s.key == nil {
		return sealed, nil
	}
	box, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(box) < nonceSize {
		return "", fmt.Errorf("[filestore open] %w: malformed sealed value", errors.ErrStorage)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, s.key)
	if !ok {
		return "", fmt.Errorf("[filestore open] %w: value failed authentication", errors.ErrStorage)
	}
	return string(plain), nil
}
