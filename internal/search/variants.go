package search

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/Aman-CERP/menusearch/internal/store"
)

// Variant names.
const (
	VariantLiteral = "literal"
	VariantStemmed = "stemmed"
)

// Variant is one token sequence derived from a query.
type Variant struct {
	Name   string
	Tokens []string
}

// VariantGenerator derives the literal and stemmed token sequences of a query.
type VariantGenerator struct {
	stemmer Stemmer
	logger  *slog.Logger
}

// NewVariantGenerator creates a generator. A nil stemmer disables the
// stemmed variant.
func NewVariantGenerator(stemmer Stemmer, logger *slog.Logger) *VariantGenerator {
	if stemmer == nil {
		stemmer = NoOpStemmer{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VariantGenerator{stemmer: stemmer, logger: logger}
}

// Stemmer returns the stemmer in use.
func (g *VariantGenerator) Stemmer() Stemmer { return g.stemmer }

// Variants returns the literal variant, followed by the stemmed variant when
// stemming changes at least one token. A blank query yields no variants.
func (g *VariantGenerator) Variants(query string) []Variant {
	literal := store.Tokenize(query)
	if len(literal) == 0 {
		return nil
	}

	variants := []Variant{{Name: VariantLiteral, Tokens: literal}}

	stemmed, err := g.stem(literal)
	if err != nil {
		g.logger.Warn("query_stemming_failed",
			slog.String("stemmer", g.stemmer.Name()),
			slog.String("error", err.Error()))
		return variants
	}
	if !slices.Equal(stemmed, literal) {
		variants = append(variants, Variant{Name: VariantStemmed, Tokens: stemmed})
	}
	return variants
}

func (g *VariantGenerator) stem(tokens []string) (out []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("stemmer panic: %v", r)
		}
	}()
	out = make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = g.stemmer.Stem(tok)
	}
	return out, nil
}
