package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hadirku/internal/model"
)

const keyPrefix = "hadirku:session:"

// Redis is the networked manager. Idle expiry rides on key TTLs, refreshed
// on every Get, so expiry works even across multiple app instances.
type Redis struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedis connects with short timeouts so a dead Redis fails fast.
func NewRedis(addr string, timeout time.Duration) *Redis {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{client: client, timeout: timeout}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}

// Create registers a fresh session under the idle TTL.
func (r *Redis) Create(ctx context.Context, user model.User) (Session, error) {
	now := time.Now().UTC()
	s := Session{
		ID:        uuid.NewString(),
		User:      user,
		CreatedAt: now,
		LastSeen:  now,
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return Session{}, err
	}
	if err := r.client.Set(ctx, keyPrefix+s.ID, raw, r.timeout).Err(); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Get returns a live session, refreshing its TTL.
func (r *Redis) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	s.LastSeen = time.Now().UTC()
	if updated, err := json.Marshal(s); err == nil {
		_ = r.client.Set(ctx, keyPrefix+id, updated, r.timeout).Err()
	}
	return &s, nil
}

// Destroy removes a session; absent ids are a no-op.
func (r *Redis) Destroy(ctx context.Context, id string) error {
	return r.client.Del(ctx, keyPrefix+id).Err()
}

// Close closes the client.
func (r *Redis) Close() error { return r.client.Close() }
