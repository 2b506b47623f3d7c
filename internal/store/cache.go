package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	merrors "github.com/Aman-CERP/menusearch/internal/errors"
)

// ArtifactVersion is bumped whenever the encoded Artifact layout changes.
// Artifacts of another version are treated as corrupt and rebuilt.
const ArtifactVersion = 1

// Artifact is what the cache stores for one context: the index (which
// carries its document list) and the content hash it was built from.
type Artifact struct {
	Version int
	Key     Key
	Hash    string
	BuiltAt time.Time
	Index   *BM25Index
}

// Cache reads and writes artifacts on a BlobStore.
type Cache struct {
	blobs BlobStore
}

// NewCache wraps blobs.
func NewCache(blobs BlobStore) *Cache {
	return &Cache{blobs: blobs}
}

// Blobs returns the underlying BlobStore.
func (c *Cache) Blobs() BlobStore { return c.blobs }

// Load returns the stored artifact for key without checking its hash.
// A missing entry is ErrCodeCacheMiss; an unreadable one ErrCodeCacheRead or
// ErrCodeCorruptIndex.
func (c *Cache) Load(ctx context.Context, key Key) (*Artifact, error) {
	data, err := c.blobs.Read(ctx, key.BlobName())
	if errors.Is(err, ErrNotFound) {
		return nil, merrors.New(merrors.ErrCodeCacheMiss, "no cached index", nil).
			WithDetail("key", key.String())
	}
	if err != nil {
		return nil, merrors.CacheError(merrors.ErrCodeCacheRead, "read cached index", err).
			WithDetail("key", key.String())
	}

	art, err := decodeArtifact(data)
	if err != nil {
		return nil, merrors.CacheError(merrors.ErrCodeCorruptIndex, "decode cached index", err).
			WithDetail("key", key.String())
	}
	if art.Key != key {
		return nil, merrors.CacheError(merrors.ErrCodeCorruptIndex,
			fmt.Sprintf("cached index belongs to %s", art.Key), nil).
			WithDetail("key", key.String())
	}
	return art, nil
}

// Get returns the stored artifact only if it was built from content with
// the given hash. A stale entry is reported as ErrCodeCacheMiss.
func (c *Cache) Get(ctx context.Context, key Key, hash string) (*Artifact, error) {
	art, err := c.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if art.Hash != hash {
		return nil, merrors.New(merrors.ErrCodeCacheMiss, "cached index is stale", nil).
			WithDetail("key", key.String()).
			WithDetail("cached_hash", art.Hash).
			WithDetail("hash", hash)
	}
	return art, nil
}

// Put persists art under its key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, art *Artifact) error {
	data, err := encodeArtifact(art)
	if err != nil {
		return merrors.CacheError(merrors.ErrCodeCacheWrite, "encode index", err).
			WithDetail("key", art.Key.String())
	}
	if err := c.blobs.Write(ctx, art.Key.BlobName(), data); err != nil {
		return merrors.CacheError(merrors.ErrCodeCacheWrite, "persist index", err).
			WithDetail("key", art.Key.String())
	}
	return nil
}

// Invalidate removes the entry for key.
func (c *Cache) Invalidate(ctx context.Context, key Key) error {
	if err := c.blobs.Delete(ctx, key.BlobName()); err != nil {
		return merrors.CacheError(merrors.ErrCodeCacheWrite, "delete cached index", err).
			WithDetail("key", key.String())
	}
	return nil
}

func encodeArtifact(art *Artifact) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(art); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeArtifact(data []byte) (*Artifact, error) {
	var art Artifact
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&art); err != nil {
		return nil, err
	}
	if art.Version != ArtifactVersion {
		return nil, fmt.Errorf("artifact version %d, want %d", art.Version, ArtifactVersion)
	}
	if art.Index == nil || len(art.Index.TermFreqs) != len(art.Index.Docs) ||
		len(art.Index.DocLengths) != len(art.Index.Docs) {
		return nil, errors.New("artifact index is incomplete")
	}
	return &art, nil
}
