// Package search implements menu search: BM25 retrieval over cached
// indexes, literal and stemmed query variants fused with Reciprocal Rank
// Fusion, and optional semantic reranking of the head of the results.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	merrors "github.com/Aman-CERP/menusearch/internal/errors"
	"github.com/Aman-CERP/menusearch/internal/store"
)

// SearchOptions configures a single-index search.
type SearchOptions struct {
	// TopK caps the number of results (0 = all matches).
	TopK int

	// UseRerank enables semantic reranking of the head.
	UseRerank bool

	// RerankTopN is the number of leading results to rerank (0 = all).
	RerankTopN int

	// Query is the raw query text given to the reranker. Defaults to the
	// tokens joined by spaces.
	Query string
}

// Engine is the single-index search primitive.
type Engine struct {
	retriever *Retriever
	reranker  Reranker
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithReranker sets the reranker used when SearchOptions.UseRerank is set.
func WithReranker(r Reranker) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.reranker = r
		}
	}
}

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an Engine. Without WithReranker reranking is a no-op.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		retriever: NewRetriever(),
		reranker:  NoOpReranker{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reranker returns the configured reranker.
func (e *Engine) Reranker() Reranker { return e.reranker }

// Search ranks the documents of idx against tokens and returns their names.
// Failures are logged and yield an empty list.
func (e *Engine) Search(ctx context.Context, tokens []string, idx *store.BM25Index, opts SearchOptions) (names []string) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("search_failed",
				merrors.LogAttrs(merrors.New(merrors.ErrCodeSearchFailed, "search panicked", fmt.Errorf("%v", p)))...)
			names = []string{}
		}
	}()

	hits, err := e.retriever.Retrieve(ctx, tokens, idx, opts.TopK)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Warn("search_failed", merrors.LogAttrs(err)...)
		}
		return []string{}
	}

	names = make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.Name
	}

	if opts.UseRerank {
		query := opts.Query
		if query == "" {
			query = strings.Join(tokens, " ")
		}
		names = e.RerankHead(ctx, query, names, opts.RerankTopN)
	}
	return names
}

// RerankHead reranks the first n names (n <= 0 means all) and appends the
// remaining names in their original order.
func (e *Engine) RerankHead(ctx context.Context, query string, names []string, n int) []string {
	if !e.reranker.Enabled() || len(names) < 2 {
		return names
	}
	if n <= 0 || n > len(names) {
		n = len(names)
	}
	head := e.reranker.Rerank(ctx, query, names[:n])
	if len(head) != n {
		// A reranker must not add or drop items; keep the retrieval order.
		return names
	}
	return append(head, names[n:]...)
}
