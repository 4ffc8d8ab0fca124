package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/helpdesk-labs/ticketing/internal/domain"
)

// ErrSessionNotFound is returned when a handle is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps sessions keyed by their opaque handle.
type SessionStore interface {
	Save(ctx context.Context, session domain.Session) error
	Lookup(ctx context.Context, handle string) (domain.Session, error)
	Delete(ctx context.Context, handle string) error
}

type sessionRecord struct {
	UserID      int64       `json:"user_id"`
	DisplayName string      `json:"display_name"`
	Role        domain.Role `json:"role"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// RedisSessionStore stores sessions as JSON values with a TTL.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore wraps an existing client.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: "session:"}
}

func (s *RedisSessionStore) key(handle string) string {
	return s.prefix + handle
}

// Save writes the session; the key expires with the session.
func (s *RedisSessionStore) Save(ctx context.Context, session domain.Session) error {
	record := sessionRecord{
		UserID:      session.Principal.ID,
		DisplayName: session.Principal.DisplayName,
		Role:        session.Principal.Role,
		CreatedAt:   session.CreatedAt,
		ExpiresAt:   session.ExpiresAt,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := session.ExpiresAt.Sub(session.CreatedAt)
	if ttl <= 0 {
		return fmt.Errorf("session %q already expired", session.Handle)
	}
	if err := s.client.Set(ctx, s.key(session.Handle), data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Lookup returns the session bound to handle.
func (s *RedisSessionStore) Lookup(ctx context.Context, handle string) (domain.Session, error) {
	data, err := s.client.Get(ctx, s.key(handle)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("lookup session: %w", err)
	}

	var record sessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return domain.Session{
		Handle: handle,
		Principal: domain.Principal{
			ID:          record.UserID,
			DisplayName: record.DisplayName,
			Role:        record.Role,
		},
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// Delete removes the session. Deleting an unknown handle is not an error.
func (s *RedisSessionStore) Delete(ctx context.Context, handle string) error {
	if err := s.client.Del(ctx, s.key(handle)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
