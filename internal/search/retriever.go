package search

import (
	"context"
	"fmt"

	merrors "github.com/Aman-CERP/menusearch/internal/errors"
	"github.com/Aman-CERP/menusearch/internal/store"
)

// Retriever runs BM25 scoring of one token sequence against an index.
type Retriever struct{}

// NewRetriever creates a Retriever.
func NewRetriever() *Retriever { return &Retriever{} }

// Retrieve returns up to topK positive-score hits, best first, ties in
// document order. Empty tokens return an empty list. A nil index or a
// scoring panic is reported as ERR_503.
func (r *Retriever) Retrieve(ctx context.Context, tokens []string, idx *store.BM25Index, topK int) (hits []store.Hit, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, merrors.New(merrors.ErrCodeSearchFailed, "no index to search", nil)
	}
	if len(tokens) == 0 {
		return []store.Hit{}, nil
	}

	defer func() {
		if p := recover(); p != nil {
			hits = nil
			err = merrors.New(merrors.ErrCodeSearchFailed, "bm25 scoring failed", fmt.Errorf("panic: %v", p))
		}
	}()
	return idx.Search(tokens, topK), nil
}
