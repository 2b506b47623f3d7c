package embed

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// Feature weights of the static embedding.
const (
	wordWeight  = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// errClosed is returned by a closed embedder.
var errClosed = errors.New("embedder is closed")

// StaticEmbedder hashes words and character trigrams into a fixed-size
// vector. It is deterministic and offline. Trigrams make near spellings
// ("pizzas", "pizza") land close to each other.
type StaticEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

// NewStaticEmbedder creates a StaticEmbedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, errClosed
	}

	vec := make([]float32, StaticDimensions)
	for _, word := range words(text) {
		vec[bucket(word)] += wordWeight
		padded := " " + word + " "
		runes := []rune(padded)
		for i := 0; i+ngramSize <= len(runes); i++ {
			vec[bucket(string(runes[i:i+ngramSize]))] += ngramWeight
		}
	}
	return normalizeVector(vec), nil
}

func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *StaticEmbedder) Dimensions() int   { return StaticDimensions }
func (e *StaticEmbedder) ModelName() string { return "static" }

func (e *StaticEmbedder) Available(context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// words lowercases text and splits it on anything that is not a letter or digit.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func bucket(s string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % StaticDimensions)
}

var _ Embedder = (*StaticEmbedder)(nil)
