// Package storage is the key-value port every collection of the shop is persisted through.
// Values are opaque bytes; the repository layer owns their JSON shape.
package storage

import (
	"context"
	"fmt"
)

// Storage must be safe for concurrent use.
type Storage interface {
	// Get returns ErrKeyNotFound when the key was never set or has been deleted.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete of a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrKeyNotFound Error = "key not found"
	ErrClosed      Error = "storage closed"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options selects and configures a backend for Open.
type Options struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisPrefix   string
	PostgresDSN   string
	SQLitePath    string
}

func Open(ctx context.Context, opts Options) (Storage, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemoryStorage(), nil
	case DriverRedis:
		r, err := NewRedisStorage(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			Prefix:   opts.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	case DriverPostgres, DriverSQLite:
		driverName := "postgres"
		dsn := opts.PostgresDSN
		if opts.Driver == DriverSQLite {
			driverName, dsn = "sqlite3", opts.SQLitePath
		}
		s, err := NewSQLStorage(ctx, driverName, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
}
