// Package kvstore persists small string values under fixed keys. Multi-key
// writes and removals are all-or-nothing in every backend.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCorrupt     = errors.New("kvstore: stored data is corrupt")
	ErrUnsupported = errors.New("kvstore: unsupported store dsn")
)

type Store interface {
	// MultiGet returns the values present for keys; missing keys are absent from the map.
	MultiGet(ctx context.Context, keys ...string) (map[string]string, error)
	MultiSet(ctx context.Context, pairs map[string]string) error
	MultiRemove(ctx context.Context, keys ...string) error
	Close() error
}

// Open picks a backend from dsn:
//
//	""  or "memory:"        in-process map
//	"file:///path" or path   JSON file
//	"sqlite:///path"         SQLite database
//	"redis://..."            Redis
//	"postgres://..."         PostgreSQL
func Open(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "" || dsn == "memory:":
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "file://"):
		return NewFileStore(strings.TrimPrefix(dsn, "file://")), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return OpenRedis(ctx, dsn, DefaultRedisPrefix)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn)
	case strings.Contains(dsn, "://"):
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, dsn)
	default:
		return NewFileStore(dsn), nil
	}
}

func ReadyCheck(s Store) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.MultiGet(ctx, "readyz")
		return err
	}
}
