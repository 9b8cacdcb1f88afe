package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces session keys.
const DefaultPrefix = "crmpanel:session:"

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithTTL refreshes the expiry of every written key. Zero disables expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// RedisStore keeps session state in redis: plain values as strings, lists
// as redis lists and counters via INCR.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// DialRedis parses a redis URL, connects and verifies the connection.
func DialRedis(ctx context.Context, url string, opts ...RedisOption) (*RedisStore, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("session: parse redis url: %w", err)
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session: redis ping: %w", err)
	}
	return NewRedisStore(client, opts...), nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(sid, key string) string {
	return s.prefix + sid + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, sid, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(sid, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("session: get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, sid, key, value string) error {
	if err := s.client.Set(ctx, s.key(sid, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sid, key string) error {
	if err := s.client.Del(ctx, s.key(sid, key)).Err(); err != nil {
		return fmt.Errorf("session: delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, sid, key string) ([]string, error) {
	values, err := s.client.LRange(ctx, s.key(sid, key), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session: list %s: %w", key, err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func (s *RedisStore) SetList(ctx context.Context, sid, key string, values []string) error {
	k := s.key(sid, key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		if len(values) == 0 {
			return nil
		}
		args := make([]any, len(values))
		for i, v := range values {
			args[i] = v
		}
		pipe.RPush(ctx, k, args...)
		if s.ttl > 0 {
			pipe.Expire(ctx, k, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: set list %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Incr(ctx context.Context, sid, key string) (int64, error) {
	k := s.key(sid, key)
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		if s.ttl > 0 {
			pipe.Expire(ctx, k, s.ttl)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("session: incr %s: %w", key, err)
	}
	return incr.Val(), nil
}
