package search

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/menusearch/internal/embed"
	merrors "github.com/Aman-CERP/menusearch/internal/errors"
	"github.com/Aman-CERP/menusearch/internal/store"
)

// reverseReranker reverses its input.
type reverseReranker struct{ calls int }

func (r *reverseReranker) Rerank(_ context.Context, _ string, items []string) []string {
	r.calls++
	out := append([]string{}, items...)
	slices.Reverse(out)
	return out
}
func (r *reverseReranker) Enabled() bool { return true }

type panicReranker struct{}

func (panicReranker) Rerank(context.Context, string, []string) []string { panic("model crashed") }
func (panicReranker) Enabled() bool                                   { return true }

// dropReranker violates the contract by dropping items.
type dropReranker struct{}

func (dropReranker) Rerank(_ context.Context, _ string, items []string) []string { return items[:1] }
func (dropReranker) Enabled() bool                                               { return true }

// stubEmbedder is an embedder whose availability and failures are scripted.
type stubEmbedder struct {
	available bool
	err       error
	inner     embed.Embedder
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.inner.Embed(ctx, text)
}
func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.inner.EmbedBatch(ctx, texts)
}
func (s *stubEmbedder) Dimensions() int                      { return embed.StaticDimensions }
func (s *stubEmbedder) ModelName() string                    { return "stub" }
func (s *stubEmbedder) Available(context.Context) bool       { return s.available }
func (s *stubEmbedder) Close() error                         { return nil }

func menuIndex() *store.BM25Index {
	return store.NewBM25Index([]string{"Margherita Pizza", "Pepperoni Pizza", "BBQ Wings"}, store.DefaultBM25Config())
}

func TestRetriever_Retrieve(t *testing.T) {
	ctx := context.Background()
	r := NewRetriever()

	hits, err := r.Retrieve(ctx, []string{"wings"}, menuIndex(), 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "BBQ Wings", hits[0].Name)
	assert.Equal(t, 2, hits[0].DocID)

	hits, err = r.Retrieve(ctx, nil, menuIndex(), 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = r.Retrieve(ctx, []string{"wings"}, nil, 5)
	assert.True(t, merrors.HasCode(err, merrors.ErrCodeSearchFailed))
}

func TestRetriever_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRetriever().Retrieve(ctx, []string{"pizza"}, menuIndex(), 5)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Search_RanksOverlappingItems(t *testing.T) {
	// Given: the pizza and wings catalog
	e := NewEngine()

	// When: searching "pizza" with top_k=2
	got := e.Search(context.Background(), []string{"pizza"}, menuIndex(), SearchOptions{TopK: 2})

	// Then: both pizzas are returned and the wings are not
	assert.ElementsMatch(t, []string{"Margherita Pizza", "Pepperoni Pizza"}, got)
}

func TestEngine_Search_NoOverlap(t *testing.T) {
	got := NewEngine().Search(context.Background(), []string{"xyzzy"}, menuIndex(), SearchOptions{TopK: 5})

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEngine_Search_FailuresYieldEmpty(t *testing.T) {
	e := NewEngine(WithReranker(panicReranker{}))

	assert.Empty(t, e.Search(context.Background(), []string{"pizza"}, nil, SearchOptions{}))
	assert.Empty(t, e.Search(context.Background(), []string{"pizza"}, menuIndex(), SearchOptions{UseRerank: true}))
}

func TestEngine_Search_RerankHeadOnly(t *testing.T) {
	// Given: four ranked documents and a reranker that reverses its input
	idx := store.NewBM25Index([]string{"pizza pizza pizza", "pizza pizza", "pizza", "pizza wings"}, store.DefaultBM25Config())
	rr := &reverseReranker{}
	e := NewEngine(WithReranker(rr))
	ctx := context.Background()
	base := e.Search(ctx, []string{"pizza"}, idx, SearchOptions{})
	require.Len(t, base, 4)

	// When: reranking the first two only
	got := e.Search(ctx, []string{"pizza"}, idx, SearchOptions{UseRerank: true, RerankTopN: 2})

	// Then: the head is reordered and the tail is untouched
	assert.Equal(t, []string{base[1], base[0], base[2], base[3]}, got)
	assert.Equal(t, 1, rr.calls)
}

func TestEngine_Search_RerankAllByDefault(t *testing.T) {
	idx := store.NewBM25Index([]string{"pizza pizza", "pizza", "pizza wings"}, store.DefaultBM25Config())
	e := NewEngine(WithReranker(&reverseReranker{}))
	ctx := context.Background()
	base := e.Search(ctx, []string{"pizza"}, idx, SearchOptions{})

	got := e.Search(ctx, []string{"pizza"}, idx, SearchOptions{UseRerank: true})

	want := append([]string{}, base...)
	slices.Reverse(want)
	assert.Equal(t, want, got)
}

func TestEngine_RerankHead_ContractViolationKeepsOrder(t *testing.T) {
	e := NewEngine(WithReranker(dropReranker{}))
	names := []string{"a", "b", "c"}

	assert.Equal(t, names, e.RerankHead(context.Background(), "q", names, 0))
}

func TestNoOpReranker_Identity(t *testing.T) {
	items := []string{"b", "a", "c"}

	got := NoOpReranker{}.Rerank(context.Background(), "a", items)

	assert.Equal(t, items, got)
	assert.False(t, NoOpReranker{}.Enabled())
}

func TestSemanticReranker_DisabledWhenUnavailable(t *testing.T) {
	// Given: an embedder that is not available
	ctx := context.Background()
	r := NewSemanticReranker(ctx, &stubEmbedder{available: false}, nil)

	// When: reranking
	items := []string{"BBQ Wings", "Margherita Pizza"}
	got := r.Rerank(ctx, "pizza", items)

	// Then: the input order is returned unchanged
	assert.False(t, r.Enabled())
	assert.Equal(t, items, got)
}

func TestSemanticReranker_NilEmbedder(t *testing.T) {
	r := NewSemanticReranker(context.Background(), nil, nil)

	assert.False(t, r.Enabled())
	assert.Equal(t, []string{"x", "y"}, r.Rerank(context.Background(), "y", []string{"x", "y"}))
}

func TestSemanticReranker_OrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	r := NewSemanticReranker(ctx, embed.NewStaticEmbedder(), nil)
	require.True(t, r.Enabled())

	got := r.Rerank(ctx, "bbq wings", []string{"Margherita Pizza", "BBQ Wings"})

	assert.Equal(t, []string{"BBQ Wings", "Margherita Pizza"}, got)
}

func TestSemanticReranker_EmbeddingFailureKeepsOrder(t *testing.T) {
	ctx := context.Background()
	r := NewSemanticReranker(ctx, &stubEmbedder{available: true, err: errors.New("connection refused")}, nil)
	items := []string{"Margherita Pizza", "BBQ Wings"}

	got := r.Rerank(ctx, "bbq wings", items)

	assert.True(t, r.Enabled())
	assert.Equal(t, items, got)
}
