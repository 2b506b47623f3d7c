package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	merrors "github.com/Aman-CERP/menusearch/internal/errors"
	"github.com/Aman-CERP/menusearch/internal/menu"
	"github.com/Aman-CERP/menusearch/internal/store"
	"github.com/Aman-CERP/menusearch/internal/telemetry"
)

// Service defaults.
const (
	DefaultTopN          = 5
	DefaultMinCandidates = 10
	DefaultMemoSize      = 256
)

// ErrIndexUnavailable is returned by SimpleSearch when no index could be
// built or loaded for the requested order type. Match it with errors.Is.
var ErrIndexUnavailable = merrors.New(merrors.ErrCodeIndexUnavailable, "search index unavailable", nil)

// SyncResult is the outcome of syncing one order type.
type SyncResult struct {
	OrderType string
	Key       store.Key
	Documents int
	// Outcome is one of the telemetry.Build* values.
	Outcome string
	Err     error
}

// SyncReport summarizes a SyncIndexes run.
type SyncReport struct {
	Results  []SyncResult
	Duration time.Duration
}

// Failed returns the number of order types that could not be indexed.
func (r SyncReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Service is the menu search entry point. It keeps one index per order
// type of its namespace, runs literal and stemmed query variants against it
// and fuses the results.
type Service struct {
	provider  menu.Provider
	indexer   *store.Indexer
	engine    *Engine
	stemmer   Stemmer
	variants  *VariantGenerator
	fusion    *RRFFusion
	namespace string

	defaultTopN   int
	minCandidates int
	rerank        bool
	rerankTopN    int

	memoSize int
	memoTTL  time.Duration
	memo     *expirable.LRU[store.Key, *store.Artifact]
	group    singleflight.Group

	logger  *slog.Logger
	metrics *telemetry.Metrics
	stats   *telemetry.QueryStats
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithNamespace sets the namespace of every index key. Defaults to "default".
func WithNamespace(ns string) ServiceOption {
	return func(s *Service) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// WithStemmer sets the stemmer used for the stemmed query variant.
func WithStemmer(st Stemmer) ServiceOption {
	return func(s *Service) {
		s.stemmer = st
	}
}

// WithEngine replaces the single-index search engine.
func WithEngine(e *Engine) ServiceOption {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithRerank reranks the first topN fused results (0 = all) with the
// engine's reranker.
func WithRerank(enabled bool, topN int) ServiceOption {
	return func(s *Service) {
		s.rerank = enabled
		s.rerankTopN = topN
	}
}

// WithRRFConstant sets the fusion constant k.
func WithRRFConstant(k int) ServiceOption {
	return func(s *Service) {
		s.fusion = NewRRFFusionWithK(k)
	}
}

// WithDefaultTopN sets the result count used when SimpleSearch gets topN <= 0.
func WithDefaultTopN(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.defaultTopN = n
		}
	}
}

// WithMinCandidates sets the lower bound of per-variant over-fetch.
func WithMinCandidates(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.minCandidates = n
		}
	}
}

// WithMemo sizes the in-process index memo. A ttl of 0 keeps entries until
// evicted or replaced by a sync; a positive ttl forces a periodic content
// check against the provider.
func WithMemo(size int, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.memoSize = size
		}
		s.memoTTL = ttl
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables Prometheus collectors.
func WithMetrics(m *telemetry.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithQueryStats enables in-process query statistics.
func WithQueryStats(st *telemetry.QueryStats) ServiceOption {
	return func(s *Service) { s.stats = st }
}

// NewService creates a Service over provider and indexer.
func NewService(provider menu.Provider, indexer *store.Indexer, opts ...ServiceOption) *Service {
	s := &Service{
		provider:      provider,
		indexer:       indexer,
		fusion:        NewRRFFusion(),
		namespace:     "default",
		defaultTopN:   DefaultTopN,
		minCandidates: DefaultMinCandidates,
		memoSize:      DefaultMemoSize,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stemmer == nil {
		s.stemmer = SnowballStemmer{}
	}
	s.variants = NewVariantGenerator(s.stemmer, s.logger)
	if s.engine == nil {
		s.engine = NewEngine(WithEngineLogger(s.logger))
	}
	s.memo = expirable.NewLRU[store.Key, *store.Artifact](s.memoSize, nil, s.memoTTL)
	return s
}

// Namespace returns the namespace of the service's index keys.
func (s *Service) Namespace() string { return s.namespace }

// Key returns the index key of orderType.
func (s *Service) Key(orderType string) store.Key {
	return store.Key{Namespace: s.namespace, OrderType: store.SnakeCase(orderType)}
}

// SyncIndexes rebuilds the index of every order type the provider lists.
// A failure for one order type is logged and recorded in the report, and
// the remaining order types are still processed. Only a failure to list
// order types or a cancelled context is returned as an error.
func (s *Service) SyncIndexes(ctx context.Context) (SyncReport, error) {
	start := time.Now()
	var report SyncReport

	orderTypes, err := s.provider.OrderTypes(ctx)
	if err != nil {
		s.logger.Error("menu_sync_failed", merrors.LogAttrs(err)...)
		s.metrics.ObserveSync(0, 0, err)
		return report, fmt.Errorf("list order types: %w", err)
	}

	s.logger.Info("menu_sync_started",
		slog.String("namespace", s.namespace),
		slog.Int("order_types", len(orderTypes)))

	for _, ot := range orderTypes {
		if err := ctx.Err(); err != nil {
			s.metrics.ObserveSync(report.Failed(), len(orderTypes), err)
			return report, err
		}

		res := s.refresh(ctx, ot, true)
		if res.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.metrics.ObserveSync(report.Failed(), len(orderTypes), ctxErr)
				return report, ctxErr
			}
			attrs := append([]any{
				slog.String("namespace", s.namespace),
				slog.String("order_type", ot),
			}, merrors.LogAttrs(res.Err)...)
			s.logger.Error("menu_index_sync_failed", attrs...)
		}
		report.Results = append(report.Results, res)
	}

	report.Duration = time.Since(start)
	s.metrics.ObserveSync(report.Failed(), len(orderTypes), nil)
	s.logger.Info("menu_sync_completed",
		slog.String("namespace", s.namespace),
		slog.Int("order_types", len(orderTypes)),
		slog.Int("failed", report.Failed()),
		slog.Duration("duration", report.Duration))
	return report, nil
}

// SimpleSearch returns up to topN document names matching query in the
// index of orderType, best first. topN <= 0 uses the default. A blank query
// returns an empty list. If the index is not built yet it is built before
// the query is served; ErrIndexUnavailable is returned only when that fails.
func (s *Service) SimpleSearch(ctx context.Context, query, orderType string, topN int) ([]string, error) {
	start := time.Now()
	if strings.TrimSpace(query) == "" {
		return []string{}, nil
	}
	if topN <= 0 {
		topN = s.defaultTopN
	}

	art, err := s.Index(ctx, orderType)
	if err != nil {
		s.record(telemetry.QueryEvent{
			Query:       query,
			OrderType:   orderType,
			Latency:     time.Since(start),
			Unavailable: true,
		})
		return nil, err
	}

	variants := s.variants.Variants(query)
	candidates := max(topN*2, s.minCandidates)

	lists := make([][]string, 0, len(variants))
	for _, v := range variants {
		lists = append(lists, s.engine.Search(ctx, v.Tokens, art.Index, SearchOptions{TopK: candidates}))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := s.fusion.Fuse(lists...)
	if s.rerank {
		results = s.engine.RerankHead(ctx, query, results, s.rerankTopN)
	}
	if len(results) > topN {
		results = results[:topN]
	}

	s.record(telemetry.QueryEvent{
		Query:       query,
		OrderType:   orderType,
		ResultCount: len(results),
		Variants:    len(variants),
		Latency:     time.Since(start),
	})
	return results, nil
}

// Index returns the index of orderType, building it when it is not held in
// memory. If the catalog cannot be read the last persisted index is served
// instead.
func (s *Service) Index(ctx context.Context, orderType string) (*store.Artifact, error) {
	key := s.Key(orderType)
	if art, ok := s.memo.Get(key); ok {
		return art, nil
	}

	res := s.refresh(ctx, orderType, false)
	if isContextErr(res.Err) && ctx.Err() == nil {
		res = s.refresh(ctx, orderType, false)
	}
	if res.Err == nil {
		art, _ := s.memo.Get(key)
		if art != nil {
			return art, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if merrors.HasCode(res.Err, merrors.ErrCodeUnknownOrderType) {
		return nil, res.Err
	}

	if art, err := s.indexer.Load(ctx, key); err == nil {
		s.logger.Warn("menu_index_stale_fallback",
			slog.String("key", key.String()),
			slog.String("hash", art.Hash),
			slog.String("error", errString(res.Err)))
		s.memo.Add(key, art)
		s.metrics.ObserveBuild(key.Namespace, key.OrderType, telemetry.BuildCacheLoad, art.Index.Len(), 0)
		return art, nil
	}

	cause := res.Err
	if cause == nil {
		cause = fmt.Errorf("index for %s evicted during build", key)
	}
	return nil, merrors.New(merrors.ErrCodeIndexUnavailable,
		fmt.Sprintf("index for %s unavailable", key), cause).
		WithDetail("namespace", key.Namespace).
		WithDetail("order_type", key.OrderType)
}

// Invalidate drops the memoized and persisted index of orderType.
func (s *Service) Invalidate(ctx context.Context, orderType string) error {
	key := s.Key(orderType)
	s.memo.Remove(key)
	s.metrics.SetMemoEntries(s.memo.Len())
	return s.indexer.Invalidate(ctx, key)
}

// refresh fetches the current snapshot of orderType and builds or reuses
// its index. Concurrent refreshes of one key share a single build, which is
// detached from the cancellation of whichever caller started it. A caller
// whose ctx ends stops waiting without affecting the others. Unless force is
// set, an index memoized by an earlier refresh is kept.
func (s *Service) refresh(ctx context.Context, orderType string, force bool) SyncResult {
	key := s.Key(orderType)
	buildCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key.String(), func() (any, error) {
		ctx := buildCtx
		start := time.Now()
		res := SyncResult{OrderType: orderType, Key: key}

		if art, ok := s.memo.Get(key); ok && !force {
			res.Outcome, res.Documents = telemetry.BuildReused, art.Index.Len()
			return res, nil
		}

		docs, err := s.provider.Categories(ctx, orderType)
		if err != nil {
			res.Err, res.Outcome = err, telemetry.BuildFailed
			s.metrics.ObserveBuild(key.Namespace, key.OrderType, res.Outcome, 0, time.Since(start))
			return res, nil
		}

		built, err := s.indexer.BuildOrLoad(ctx, key, docs)
		if err != nil {
			res.Err, res.Outcome = err, telemetry.BuildFailed
			s.metrics.ObserveBuild(key.Namespace, key.OrderType, res.Outcome, 0, time.Since(start))
			return res, nil
		}

		switch {
		case built.Reused:
			res.Outcome = telemetry.BuildReused
		case !built.Persisted:
			res.Outcome = telemetry.BuildMemory
		default:
			res.Outcome = telemetry.BuildBuilt
		}
		res.Documents = len(docs)

		s.memo.Add(key, built.Artifact)
		s.metrics.ObserveBuild(key.Namespace, key.OrderType, res.Outcome, res.Documents, time.Since(start))
		s.metrics.SetMemoEntries(s.memo.Len())
		return res, nil
	})

	select {
	case r := <-ch:
		return r.Val.(SyncResult)
	case <-ctx.Done():
		return SyncResult{OrderType: orderType, Key: key, Outcome: telemetry.BuildFailed, Err: ctx.Err()}
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (s *Service) record(ev telemetry.QueryEvent) {
	s.metrics.ObserveSearch(ev)
	s.stats.Record(ev)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
