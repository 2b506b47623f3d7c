package store

import (
	"context"
	"log/slog"
	"time"

	merrors "github.com/Aman-CERP/menusearch/internal/errors"
)

// BuildResult is the outcome of Indexer.BuildOrLoad.
type BuildResult struct {
	Artifact *Artifact

	// Reused is true when the cached artifact matched the content hash.
	Reused bool

	// Persisted is false when the artifact could not be written and is
	// only available in memory for this call.
	Persisted bool
}

// Indexer turns catalog snapshots into cached BM25 indexes.
type Indexer struct {
	cache  *Cache
	config BM25Config
	logger *slog.Logger
	now    func() time.Time
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithBM25Config overrides the BM25 parameters used for new builds.
func WithBM25Config(cfg BM25Config) IndexerOption {
	return func(ix *Indexer) {
		ix.config = cfg
	}
}

// WithIndexerLogger sets the logger.
func WithIndexerLogger(logger *slog.Logger) IndexerOption {
	return func(ix *Indexer) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// NewIndexer creates an Indexer over cache.
func NewIndexer(cache *Cache, opts ...IndexerOption) *Indexer {
	ix := &Indexer{
		cache:  cache,
		config: DefaultBM25Config(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Cache returns the artifact cache.
func (ix *Indexer) Cache() *Cache { return ix.cache }

// BuildOrLoad returns the index for key built from docs. A cached artifact
// with the same content hash is reused; otherwise the index is rebuilt and
// persisted. Cache failures are logged and never returned: the caller gets
// the in-memory index. Only context cancellation is an error.
func (ix *Indexer) BuildOrLoad(ctx context.Context, key Key, docs []string) (BuildResult, error) {
	if err := ctx.Err(); err != nil {
		return BuildResult{}, err
	}

	hash := ContentHash(docs)

	art, err := ix.cache.Get(ctx, key, hash)
	if err == nil && art.Index.Config != ix.config {
		ix.logger.Info("bm25_index_config_changed", slog.String("key", key.String()))
	} else if err == nil {
		ix.logger.Debug("bm25_index_reused",
			slog.String("key", key.String()),
			slog.String("hash", hash))
		return BuildResult{Artifact: art, Reused: true, Persisted: true}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return BuildResult{}, ctxErr
	}
	if err != nil && !merrors.HasCode(err, merrors.ErrCodeCacheMiss) {
		ix.logger.Warn("bm25_index_cache_unreadable", merrors.LogAttrs(err)...)
	}

	start := ix.now()
	art = &Artifact{
		Version: ArtifactVersion,
		Key:     key,
		Hash:    hash,
		BuiltAt: start,
		Index:   NewBM25Index(docs, ix.config),
	}

	result := BuildResult{Artifact: art, Persisted: true}
	if err := ix.cache.Put(ctx, art); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return BuildResult{}, ctxErr
		}
		ix.logger.Warn("bm25_index_persist_failed", merrors.LogAttrs(err)...)
		result.Persisted = false
	}

	ix.logger.Info("bm25_index_built",
		slog.String("key", key.String()),
		slog.String("hash", hash),
		slog.Int("documents", len(docs)),
		slog.Bool("persisted", result.Persisted),
		slog.Duration("duration", ix.now().Sub(start)))

	return result, nil
}

// Load returns the persisted artifact for key, whatever content it was built from.
func (ix *Indexer) Load(ctx context.Context, key Key) (*Artifact, error) {
	return ix.cache.Load(ctx, key)
}

// Invalidate drops the persisted artifact for key.
func (ix *Indexer) Invalidate(ctx context.Context, key Key) error {
	return ix.cache.Invalidate(ctx, key)
}
