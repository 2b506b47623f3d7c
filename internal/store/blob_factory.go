package store

import (
	"context"
	"fmt"
	"strings"
)

// Backend names accepted by NewBlobStore.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// BackendOptions selects and configures a BlobStore backend.
type BackendOptions struct {
	Backend    string
	Dir        string
	RedisURL   string
	SQLitePath string
}

// NewBlobStore opens the backend named by opts.Backend.
func NewBlobStore(ctx context.Context, opts BackendOptions) (BlobStore, error) {
	switch strings.ToLower(opts.Backend) {
	case BackendFile, "":
		return NewFileBlobStore(opts.Dir)
	case BackendRedis:
		return NewRedisBlobStore(ctx, opts.RedisURL)
	case BackendSQLite:
		return NewSQLiteBlobStore(opts.SQLitePath)
	case BackendMemory:
		return NewMemoryBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
