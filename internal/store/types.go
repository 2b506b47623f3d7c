// Package store builds, persists and loads the BM25 indexes that back menu
// search. An index is built per (namespace, order type) context from the
// catalog snapshot and cached on a BlobStore next to the content hash of the
// snapshot it was built from.
package store

import (
	"fmt"
	"strings"
)

// BM25Config holds the Okapi BM25 parameters.
type BM25Config struct {
	// K1 controls term frequency saturation.
	K1 float64 `yaml:"k1" json:"k1"`

	// B controls document length normalization (0 disables it).
	B float64 `yaml:"b" json:"b"`

	// Epsilon scales the IDF floor applied to terms that occur in at least
	// half of the documents.
	Epsilon float64 `yaml:"epsilon" json:"epsilon"`
}

// DefaultBM25Config returns k1=1.5, b=0.75, epsilon=0.25.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:      1.5,
		B:       0.75,
		Epsilon: 0.25,
	}
}

// Hit is one scored document of a ranked list.
type Hit struct {
	// DocID is the position of the document in the snapshot the index was built from.
	DocID int
	Name  string
	Score float64
}

// Key identifies an index context.
type Key struct {
	Namespace string
	OrderType string
}

// String returns "namespace/order_type".
func (k Key) String() string {
	return k.Namespace + "/" + k.OrderType
}

// BlobName returns the storage key of the context's index artifact,
// e.g. "acme/delivery_pickup_categories.idx".
func (k Key) BlobName() string {
	return fmt.Sprintf("%s/%s_categories.idx", sanitize(k.Namespace), SnakeCase(k.OrderType))
}

// IndexStats describes a built index.
type IndexStats struct {
	Documents    int     `json:"documents"`
	Terms        int     `json:"terms"`
	AvgDocLength float64 `json:"avg_doc_length"`
}

// SnakeCase lowercases s and joins its words with underscores:
// "Delivery Pickup" and "deliveryPickup" both become "delivery_pickup".
func SnakeCase(s string) string {
	var sb strings.Builder
	prevLower := false
	pendingSep := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'A' && r <= 'Z':
			if prevLower || pendingSep {
				sb.WriteByte('_')
			}
			sb.WriteRune(r + ('a' - 'A'))
			prevLower = false
			pendingSep = false
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSep {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
			prevLower = true
			pendingSep = false
		default:
			pendingSep = sb.Len() > 0
			prevLower = false
		}
	}
	return sb.String()
}

// ValidNamespace reports whether ns is lowercase letters, digits, '-' and
// '_', starting with a letter or digit. Such namespaces are stored under
// their own name, so distinct valid namespaces never share blobs.
func ValidNamespace(ns string) bool {
	if ns == "" {
		return false
	}
	for i, r := range ns {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
		case (r == '-' || r == '_') && i > 0:
		default:
			return false
		}
	}
	return true
}

// sanitize keeps namespaces usable as a single path segment. Namespaces
// outside ValidNamespace are snake cased, so "Acme Pizza" and "acme_pizza"
// share a directory; Cache.Load rejects artifacts of the other key.
func sanitize(s string) string {
	if ValidNamespace(s) {
		return s
	}
	out := SnakeCase(s)
	if out == "" {
		return "default"
	}
	return out
}
