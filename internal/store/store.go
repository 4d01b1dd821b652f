// Package store holds the shared key-value storage the poller writes and the
// viewer reads. Values are replaced whole; there are no field-level writes.
package store

import (
	"context"
	"fmt"
)

const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// KV is an application-scoped key-value store.
type KV interface {
	// Get returns the value under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

type Options struct {
	Driver     string
	SQLitePath string
	RedisAddr  string
	RedisDB    int
}

// Open returns the backend selected by opts.Driver.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		s, err := OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverRedis:
		r, err := OpenRedis(ctx, opts.RedisAddr, opts.RedisDB)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown store driver: %q", opts.Driver)
	}
}
