package search

import (
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/english"
)

// Stemmer names accepted by NewStemmer.
const (
	StemmerSnowball = "snowball"
	StemmerPorter   = "porter"
	StemmerNone     = "none"
)

// Stemmer reduces a lowercase token to its morphological root.
type Stemmer interface {
	Stem(token string) string
	Name() string
}

// NewStemmer returns the stemmer registered under name. Unknown names and
// "none" resolve to NoOpStemmer so callers never branch on availability.
func NewStemmer(name string) Stemmer {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case StemmerSnowball, "english", "":
		return SnowballStemmer{}
	case StemmerPorter:
		return PorterStemmer{}
	default:
		return NoOpStemmer{}
	}
}

// SnowballStemmer applies the English Snowball (Porter2) algorithm.
type SnowballStemmer struct{}

// Stem returns the Snowball stem of token. Tokens of two runes or fewer
// are returned unchanged.
func (SnowballStemmer) Stem(token string) string {
	if len([]rune(token)) <= 2 {
		return token
	}
	env := snowballstem.NewEnv(token)
	english.Stem(env)
	return env.Current()
}

// Name returns "snowball".
func (SnowballStemmer) Name() string { return StemmerSnowball }

// PorterStemmer applies the original Porter algorithm.
type PorterStemmer struct{}

// Stem returns the Porter stem of token.
func (PorterStemmer) Stem(token string) string {
	if len([]rune(token)) <= 2 {
		return token
	}
	return porterstemmer.StemString(token)
}

// Name returns "porter".
func (PorterStemmer) Name() string { return StemmerPorter }

// NoOpStemmer returns tokens unchanged.
type NoOpStemmer struct{}

// Stem returns token.
func (NoOpStemmer) Stem(token string) string { return token }

// Name returns "none".
func (NoOpStemmer) Name() string { return StemmerNone }
