package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache backed by a Redis server
type Redis struct {
	client redis.UniversalClient
	opts   Options
}

// DialRedis connects to addr, given as host:port or as a redis:// URL, and
// pings the server. A non-empty password overrides the one in the URL.
func DialRedis(ctx context.Context, addr, password string, opts Options) (*Redis, error) {
	ro, err := redisOptions(addr, password)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(ro)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping %s: %w", ro.Addr, err)
	}
	return NewRedis(client, opts), nil
}

func redisOptions(addr, password string) (*redis.Options, error) {
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr, Password: password}, nil
	}
	ro, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if password != "" {
		ro.Password = password
	}
	return ro, nil
}

// NewRedis wraps an existing client
func NewRedis(client redis.UniversalClient, opts Options) *Redis {
	return &Redis{client: client, opts: opts.normalize()}
}

func (r *Redis) key(k string) string {
	return r.opts.Namespace + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, miss(key)
	}
	return value, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, r.opts.expiry(ttl)).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.client.Unlink(ctx, full...).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
