package persist

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore caches account documents so a fresh session can load even when
// the primary store is unreachable. Entries expire; Redis is a fallback, not
// the system of record.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Name() string { return "redis" }

func key(userID string) string { return "schedcore:doc:" + userID }

func (s *RedisStore) Save(ctx context.Context, userID string, doc []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.rdb.Set(ctx, key(userID), doc, s.ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, userID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	raw, err := s.rdb.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// ReadyCheck pings Redis for the /readyz probe.
func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if rdb == nil {
			return errors.New("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
}
