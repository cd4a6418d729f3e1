package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pressly/goose/v3"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLStorage keeps the collections in a single kv_store table.
type SQLStorage struct {
	db     *sql.DB
	closed atomic.Bool
}

// NewSQLStorage opens driverName ("postgres" or "sqlite3"), verifies the connection
// and runs the embedded migrations.
func NewSQLStorage(ctx context.Context, driverName, dsn string) (*SQLStorage, error) {
	if dsn == "" {
		return nil, errors.New("dsn must be non-empty")
	}
	if driverName == "sqlite3" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driverName == "sqlite3" {
		// one writer; an in-memory database also lives only as long as its connection
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQLStorageFromDB(ctx, db, driverName)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLStorageFromDB(ctx context.Context, conn *sql.DB, driverName string) (*SQLStorage, error) {
	if conn == nil {
		return nil, errors.New("conn must be non-nil")
	}
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if err := Migrate(ctx, conn, driverName); err != nil {
		return nil, err
	}
	return &SQLStorage{db: conn}, nil
}

// Migrate runs all pending migrations of the kv_store schema.
func Migrate(ctx context.Context, db *sql.DB, driverName string) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(driverName); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func (s *SQLStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT item_value FROM kv_store WHERE item_key = $1", key).Scan(&val)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return []byte(val), nil
}

func (s *SQLStorage) Set(ctx context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv_store (item_key, item_value, updated_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (item_key) DO UPDATE SET item_value = excluded.item_value, updated_at = excluded.updated_at",
		key, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *SQLStorage) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_store WHERE item_key = $1", key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLStorage) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
