package redisstore

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-chat-auth/internal/errors"
	"github.com/jrsteele09/go-chat-auth/storage"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "chatauth:session:"

var _ storage.Repo = (*Store)(nil)

// Store keeps each namespace in one redis hash.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New wraps an existing client. An empty prefix uses "chatauth:session:".
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) key(namespace string) string {
	return s.prefix + namespace
}

func (s *Store) Set(ctx context.Context, namespace, key, value string) error {
	if err := storage.CheckKey(namespace, key); err != nil {
		return fmt.Errorf("[redisstore Set] %w", err)
	}
	if err := s.redis.HSet(ctx, s.key(namespace), key, value).Err(); err != nil {
		return fmt.Errorf("[redisstore Set] %w: %w", errors.ErrStorage, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, namespace, key string) (string, error) {
	value, err := s.redis.HGet(ctx, s.key(namespace), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("[redisstore Get] %s/%s: %w", namespace, key, storage.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("[redisstore Get] %w: %w", errors.ErrStorage, err)
	}
	return value, nil
}

func (s *Store) Delete(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.redis.HDel(ctx, s.key(namespace), keys...).Err(); err != nil {
		return fmt.Errorf("[redisstore Delete] %w: %w", errors.ErrStorage, err)
	}
	return nil
}
