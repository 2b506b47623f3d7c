package store

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// Tokenize lowercases text and splits it on whitespace. Punctuation is kept
// so that "mac & cheese" indexes the same way it is queried.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// ContentHash returns the hex MD5 digest of the sorted, lowercased documents
// joined by newlines. Reordering documents does not change the hash; editing
// any document text does.
func ContentHash(docs []string) string {
	lowered := make([]string, len(docs))
	for i, d := range docs {
		lowered[i] = strings.ToLower(d)
	}
	sort.Strings(lowered)

	sum := md5.Sum([]byte(strings.Join(lowered, "\n")))
	return hex.EncodeToString(sum[:])
}
