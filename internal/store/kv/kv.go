// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package kv provides key-value blob backends for the persisted store:
// a directory of JSON files, a SQLite table, or a Redis keyspace.
//
// Values are replaced whole on every Put. There are no partial updates,
// transactions, or versions.
package kv

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdiddy/omnisense/pkg/types"
)

// Backend stores opaque byte values under string keys.
type Backend interface {
	// Get returns the value for key. ok is false when the key is absent;
	// absence is not an error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Open builds the backend selected by cfg.
func Open(cfg types.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case types.StorageFile, "":
		return NewFileBackend(cfg.DataDir)
	case types.StorageSQLite:
		return OpenSQLite(filepath.Join(cfg.DataDir, sqliteFile))
	case types.StorageRedis:
		return NewRedisBackend(cfg.RedisAddr, cfg.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q: use file, sqlite, or redis", cfg.Backend)
	}
}

// validateKey rejects keys that would escape a file backend's directory.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}
