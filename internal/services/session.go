package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cgportal/feedback-backend/internal/models"
)

const (
	// SessionKeyPrefix is the Redis key prefix for sessions
	SessionKeyPrefix     = "session:"
	// UserSessionKeyPrefix is the Redis key prefix for user->session mapping
	UserSessionKeyPrefix = "user_session:"
	DefaultSessionTTL    = 24 * time.Hour
)

var ErrSessionNotFound = errors.New("session not found")

// Principal is the identity stored behind a session token.
type Principal struct {
	UserID   string          `json:"userId"`
	Username string          `json:"username"`
	Type     models.UserType `json:"type"`
}

type SessionStore interface {
	// Create replaces any existing session for the user and returns a new token.
	Create(ctx context.Context, p Principal) (string, error)
	Lookup(ctx context.Context, token string) (*Principal, error)
	Invalidate(ctx context.Context, token string) error
	// InvalidateUser drops the session of a disabled, deleted or re-keyed user.
	InvalidateUser(ctx context.Context, userID string) error
}

// RedisSessions keeps one session per user: session:<token> holds the
// principal and user_session:<userID> points back at the live token.
type RedisSessions struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessions{client: client, ttl: ttl}
}

func (s *RedisSessions) Create(ctx context.Context, p Principal) (string, error) {
	// Invalidate any existing session for this user so the TTL restarts from this login
	_ = s.InvalidateUser(ctx, p.UserID)

	payload, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+token, payload, s.ttl)
	pipe.Set(ctx, UserSessionKeyPrefix+p.UserID, token, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (s *RedisSessions) Lookup(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	val, err := s.client.Get(ctx, SessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var p Principal
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &p, nil
}

func (s *RedisSessions) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sessionKey := SessionKeyPrefix + token

	// Get user ID before deleting
	if p, err := s.Lookup(ctx, token); err == nil && p.UserID != "" {
		s.client.Del(ctx, UserSessionKeyPrefix+p.UserID)
	}
	return s.client.Del(ctx, sessionKey).Err()
}

func (s *RedisSessions) InvalidateUser(ctx context.Context, userID string) error {
	userSessionKey := UserSessionKeyPrefix + userID

	token, err := s.client.Get(ctx, userSessionKey).Result()
	if err == nil && token != "" {
		s.client.Del(ctx, SessionKeyPrefix+token)
	}
	return s.client.Del(ctx, userSessionKey).Err()
}
