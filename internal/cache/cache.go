package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"happythoughts/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	ThoughtKeyPrefix = "thought:"
	TokenKeyPrefix   = "user:token:"
)

const (
	ThoughtTTL = 30 * time.Minute
	UserTTL    = 5 * time.Minute

	// InvalidatedTTL bounds how long Aside refuses to refill a key after a write.
	// It must outlast any request that read the row before the write committed.
	InvalidatedTTL = 10 * time.Second
)

// invalidated marks a key whose value changed. Get reports it as a miss and
// Aside cannot fill over it until it expires.
const invalidated = "\x00invalidated"

func ThoughtKey(id string) string {
	return ThoughtKeyPrefix + id
}

// TokenKey hashes the access token so raw credentials never appear in Redis keys.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return TokenKeyPrefix + hex.EncodeToString(sum[:])
}

// ErrDisabled is returned by Get when no Redis client is configured.
var ErrDisabled = errors.New("cache disabled")

// Store is a JSON cache over Redis. A Store with a nil client is a no-op:
// reads miss and writes are dropped.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Enabled reports whether a Redis client backs the store.
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// Get decodes the cached value at key into dest. It returns redis.Nil on a miss,
// including a key marked by Invalidate.
func (s *Store) Get(ctx context.Context, key string, dest any) error {
	if !s.Enabled() {
		return ErrDisabled
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	if string(raw) == invalidated {
		return redis.Nil
	}
	return json.Unmarshal(raw, dest)
}

// Set stores value at key as JSON. Failures are logged, never returned.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache marshal failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := s.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Invalidate replaces the value at key with a marker for InvalidatedTTL, so a
// reader that loaded the old row before the write cannot cache it again.
// Failures are logged, never returned.
func (s *Store) Invalidate(ctx context.Context, key string) {
	if !s.Enabled() {
		return
	}
	if err := s.client.Set(ctx, key, invalidated, InvalidatedTTL).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidate failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// fill stores value at key only when the key is absent.
func (s *Store) fill(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache marshal failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := s.client.SetNX(ctx, key, raw, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache fill failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Aside reads key into dest, or runs load to fill dest and caches the result
// unless the key was set or invalidated in the meantime.
// Redis errors fall through to load; only load errors are returned.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func() error) error {
	if s.Enabled() {
		err := s.Get(ctx, key, dest)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	if err := load(); err != nil {
		return err
	}

	if s.Enabled() {
		s.fill(ctx, key, dest, ttl)
	}
	return nil
}
