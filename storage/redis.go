package storage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage persists every key as a plain redis string without expiry.
type RedisStorage struct {
	rdb    *redis.Client
	prefix string
	closed atomic.Bool
}

type RedisOptions struct {
	// URL wins over Addr when both are set, e.g. redis://localhost:6379/0
	URL      string
	Addr     string
	Password string
	DB       int
	Prefix   string

	ConnectTimeout time.Duration
}

func NewRedisStorage(ctx context.Context, opts RedisOptions) (*RedisStorage, error) {
	var redisOpts *redis.Options
	switch {
	case opts.URL != "":
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		redisOpts = parsed
	case opts.Addr != "":
		redisOpts = &redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}
	default:
		return nil, errors.New("redis address is required")
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	redisOpts.DialTimeout = opts.ConnectTimeout

	return NewRedisStorageFromClient(ctx, redis.NewClient(redisOpts), opts.Prefix)
}

// NewRedisStorageFromClient takes ownership of conn and closes it on failure.
func NewRedisStorageFromClient(ctx context.Context, conn *redis.Client, prefix string) (*RedisStorage, error) {
	if conn == nil {
		return nil, errors.New("conn must be non-nil")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("redis is not working: %w", err)
	}
	return &RedisStorage{rdb: conn, prefix: prefix}, nil
}

func (r *RedisStorage) key(key string) string {
	return r.prefix + key
}

func (r *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	val, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if err := r.rdb.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.rdb.Close()
}
