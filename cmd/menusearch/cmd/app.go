package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Aman-CERP/menusearch/internal/config"
	"github.com/Aman-CERP/menusearch/internal/embed"
	"github.com/Aman-CERP/menusearch/internal/logging"
	"github.com/Aman-CERP/menusearch/internal/menu"
	"github.com/Aman-CERP/menusearch/internal/search"
	"github.com/Aman-CERP/menusearch/internal/store"
	"github.com/Aman-CERP/menusearch/internal/telemetry"
)

// appOptions are per-command overrides applied on top of the configuration.
type appOptions struct {
	rerank  *bool
	metrics bool
}

// app is the wired service graph shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	blobs    store.BlobStore
	indexer  *store.Indexer
	provider *menu.FileProvider
	embedder embed.Embedder
	metrics  *telemetry.Metrics
	stats    *telemetry.QueryStats
	service  *search.Service

	closers []func()
}

// loadConfig reads the configuration and applies the global flags.
func loadConfig(g *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(".", g.configPath)
	if err != nil {
		return nil, err
	}
	if g.catalog != "" {
		cfg.Catalog.Path = g.catalog
	}
	if g.namespace != "" {
		cfg.Namespace = g.namespace
	}
	if g.backend != "" {
		cfg.Cache.Backend = g.backend
	}
	if g.stemmer != "" {
		cfg.Search.Stemmer = g.stemmer
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if g.logFile != "" {
		cfg.Logging.File = g.logFile
	}
	if g.debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newApp builds the service graph. Callers must Close the app.
func newApp(ctx context.Context, g *globalOptions, opts appOptions, stderr io.Writer) (*app, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	if opts.rerank != nil {
		cfg.Rerank.Enabled = *opts.rerank
	}

	a := &app{cfg: cfg}
	ready := false
	defer func() {
		if !ready {
			a.Close()
		}
	}()

	logger, cleanup, err := logging.Setup(logging.Config{
		Level:     cfg.Logging.Level,
		FilePath:  cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
		JSON:      cfg.Logging.JSON,
	}, stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	a.logger = logger
	a.closers = append(a.closers, cleanup)

	a.blobs, err = store.NewBlobStore(ctx, store.BackendOptions{
		Backend:    cfg.Cache.Backend,
		Dir:        cfg.Cache.Dir,
		RedisURL:   cfg.Cache.RedisURL,
		SQLitePath: cfg.Cache.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache: %w", cfg.Cache.Backend, err)
	}
	a.closers = append(a.closers, func() { _ = a.blobs.Close() })

	bm25 := store.DefaultBM25Config()
	bm25.K1 = cfg.Search.K1
	bm25.B = cfg.Search.B
	a.indexer = store.NewIndexer(store.NewCache(a.blobs),
		store.WithBM25Config(bm25),
		store.WithIndexerLogger(logger))

	a.provider = menu.NewFileProvider(cfg.Catalog.Path,
		menu.WithItems(cfg.Catalog.Items),
		menu.WithLogger(logger))

	a.stats = telemetry.NewQueryStats(telemetry.QueryStatsConfig{})
	if opts.metrics || cfg.Metrics.Enabled {
		a.metrics = telemetry.NewMetrics()
	}

	engineOpts := []search.EngineOption{search.WithEngineLogger(logger)}
	if cfg.Rerank.Enabled {
		a.embedder, err = embed.NewEmbedder(embed.Config{
			Provider:   cfg.Rerank.Provider,
			Model:      cfg.Rerank.Model,
			OllamaHost: cfg.Rerank.OllamaHost,
			CacheSize:  cfg.Rerank.CacheSize,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = a.embedder.Close() })
		engineOpts = append(engineOpts, search.WithReranker(search.NewSemanticReranker(ctx, a.embedder, logger)))
	}

	a.service = search.NewService(a.provider, a.indexer,
		search.WithNamespace(cfg.Namespace),
		search.WithStemmer(search.NewStemmer(cfg.Search.Stemmer)),
		search.WithEngine(search.NewEngine(engineOpts...)),
		search.WithRerank(cfg.Rerank.Enabled, cfg.Rerank.TopN),
		search.WithRRFConstant(cfg.Search.RRFConstant),
		search.WithDefaultTopN(cfg.Search.DefaultTopN),
		search.WithMinCandidates(cfg.Search.MinCandidates),
		search.WithMemo(cfg.Cache.LRUSize, cfg.Cache.MemoTTL),
		search.WithServiceLogger(logger),
		search.WithMetrics(a.metrics),
		search.WithQueryStats(a.stats),
	)

	logger.Debug("menusearch_initialized",
		slog.String("namespace", cfg.Namespace),
		slog.String("catalog", cfg.Catalog.Path),
		slog.String("backend", cfg.Cache.Backend),
		slog.String("stemmer", cfg.Search.Stemmer),
		slog.Bool("rerank", cfg.Rerank.Enabled))
	ready = true
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
