// Package session keeps short-lived conversation context so terse follow-ups
// ("what about last month?") can reuse the intent resolved just before.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "aletabank-assistant/internal/common/errors"
	"aletabank-assistant/internal/common/logger"
)

// Store persists per-session conversation context.
type Store interface {
	// LastIntent returns the intent last resolved in the session, or empty
	// when the session is new or expired.
	LastIntent(ctx context.Context, sessionID string) (string, error)

	// SetLastIntent records the intent just resolved, refreshing the TTL.
	SetLastIntent(ctx context.Context, sessionID, intentID string) error
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

func NewRedisStore(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, log: log}
}

func key(sessionID string) string {
	return "session:" + sessionID + ":last_intent"
}

func (s *RedisStore) LastIntent(ctx context.Context, sessionID string) (string, error) {
	val, err := s.client.Get(ctx, key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.NewSessionStoreError(err)
	}
	return val, nil
}

func (s *RedisStore) SetLastIntent(ctx context.Context, sessionID, intentID string) error {
	if err := s.client.Set(ctx, key(sessionID), intentID, s.ttl).Err(); err != nil {
		return apperrors.NewSessionStoreError(err)
	}
	return nil
}
