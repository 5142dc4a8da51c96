package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces OTP keys in a shared Redis.
const DefaultKeyPrefix = "otp:"

// RedisStore keeps codes in Redis and lets Redis expire them.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore creates a Redis-backed store. An empty prefix uses DefaultKeyPrefix.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(phone string) string {
	return s.prefix + phone
}

// Save stores code for phone with ttl.
func (s *RedisStore) Save(ctx context.Context, phone, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(phone), code, ttl).Err(); err != nil {
		return fmt.Errorf("saving otp: %w", err)
	}
	return nil
}

// consumeScript deletes KEYS[1] only when it holds ARGV[1].
// It returns 1 on a match, 0 on a mismatch and -1 when the key is absent.
var consumeScript = redis.NewScript(`
local pending = redis.call("GET", KEYS[1])
if not pending then
	return -1
end
if pending ~= ARGV[1] then
	return 0
end
redis.call("DEL", KEYS[1])
return 1
`)

// Consume checks and removes the pending code for phone in a single script call.
func (s *RedisStore) Consume(ctx context.Context, phone, code string) error {
	result, err := consumeScript.Run(ctx, s.client, []string{s.key(phone)}, code).Int()
	if err != nil {
		return fmt.Errorf("consuming otp: %w", err)
	}

	switch result {
	case 1:
		return nil
	case 0:
		return ErrCodeMismatch
	default:
		return ErrCodeNotFound
	}
}

// Delete removes the pending code for phone.
func (s *RedisStore) Delete(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, s.key(phone)).Err(); err != nil {
		return fmt.Errorf("deleting otp: %w", err)
	}
	return nil
}
