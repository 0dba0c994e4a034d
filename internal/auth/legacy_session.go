package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const legacySessionPrefix = "legacy_handler_session:"

// LegacySessionStore keeps the backward-compatible handler sessions in
// redis. It is the alternate actor-resolution strategy: a session token
// resolves to a user id that the middleware turns into an actor with the
// LegacySession flag set.
type LegacySessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLegacySessionStore builds the store.
func NewLegacySessionStore(client *redis.Client, ttl time.Duration) *LegacySessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &LegacySessionStore{client: client, ttl: ttl}
}

// CreateSession registers a new session for the user and returns its token.
func (s *LegacySessionStore) CreateSession(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, legacySessionPrefix+token, userID, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the user id bound to the session token. Unknown or
// expired tokens return redis.Nil.
func (s *LegacySessionStore) Resolve(ctx context.Context, token string) (string, error) {
	return s.client.Get(ctx, legacySessionPrefix+token).Result()
}

// Revoke drops the session.
func (s *LegacySessionStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, legacySessionPrefix+token).Err()
}
