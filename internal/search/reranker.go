package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Aman-CERP/menusearch/internal/embed"
)

// Reranker reorders candidate names by relevance to the query.
type Reranker interface {
	// Rerank returns items reordered. It never drops or adds items and
	// never fails: on any problem the input order is returned.
	Rerank(ctx context.Context, query string, items []string) []string

	// Enabled reports whether reranking changes anything.
	Enabled() bool
}

// NoOpReranker returns items in their original order.
// Used when reranking is disabled or unavailable.
type NoOpReranker struct{}

// Rerank returns a copy of items.
func (NoOpReranker) Rerank(_ context.Context, _ string, items []string) []string {
	return append([]string{}, items...)
}

// Enabled returns false.
func (NoOpReranker) Enabled() bool { return false }

// SemanticReranker orders items by cosine similarity between the query
// embedding and each item embedding.
type SemanticReranker struct {
	embedder embed.Embedder
	enabled  bool
	logger   *slog.Logger
}

// NewSemanticReranker probes the embedder once. A nil or unavailable
// embedder yields a disabled reranker that behaves like NoOpReranker.
func NewSemanticReranker(ctx context.Context, embedder embed.Embedder, logger *slog.Logger) *SemanticReranker {
	if logger == nil {
		logger = slog.Default()
	}
	r := &SemanticReranker{embedder: embedder, logger: logger}
	if embedder != nil && embedder.Available(ctx) {
		r.enabled = true
	}
	if !r.enabled {
		model := ""
		if embedder != nil {
			model = embedder.ModelName()
		}
		logger.Info("semantic_reranker_disabled", slog.String("model", model))
	}
	return r
}

// Enabled reports whether the embedding model was available at construction.
func (r *SemanticReranker) Enabled() bool { return r.enabled }

// Rerank sorts items by descending similarity to query. Equal similarities
// keep input order. Embedding failures return the input order.
func (r *SemanticReranker) Rerank(ctx context.Context, query string, items []string) []string {
	out := append([]string{}, items...)
	if !r.enabled || len(items) < 2 {
		return out
	}

	texts := make([]string, 0, len(items)+1)
	texts = append(texts, query)
	texts = append(texts, items...)

	vecs, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vecs) != len(texts) {
		attrs := []any{slog.String("model", r.embedder.ModelName()), slog.Int("items", len(items))}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		r.logger.Warn("semantic_rerank_failed", attrs...)
		return out
	}

	sims := make([]float64, len(items))
	for i := range items {
		sims[i] = embed.Cosine(vecs[0], vecs[i+1])
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sims[order[a]] > sims[order[b]]
	})
	for i, idx := range order {
		out[i] = items[idx]
	}
	return out
}
