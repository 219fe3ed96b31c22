package storage

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by drivers used after Close.
var ErrClosed = errors.New("storage closed")

// KV is the persistence contract the template store depends on.
//
// Get reports ok=false (and a nil error) when the key is absent.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Config configures storage.
//
// Driver values:
//   - "memory": process-local map (tests, dry runs)
//   - "file": one JSON file per key under Path (a directory)
//   - "sqlite": SQLite database file at Path
//   - "redis": Redis at Addr, keys namespaced by Prefix
//   - "postgres": PostgreSQL at DSN
//
// If Driver is empty, "file" is used.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default

	Addr     string // redis
	Password string // redis
	DB       int    // redis
	Prefix   string // redis key prefix

	DSN string // postgres
}
