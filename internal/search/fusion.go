package search

import "sort"

// DefaultRRFConstant is the standard RRF smoothing parameter.
const DefaultRRFConstant = 60

// RRFFusion merges ranked lists with Reciprocal Rank Fusion.
//
// Algorithm: score(d) = Σ 1 / (k + rank_i(d))
//
// Where:
//   - k = smoothing constant (default: 60)
//   - rank_i = position of d in list i (1-indexed); lists without d add nothing
type RRFFusion struct {
	K int
}

// NewRRFFusion creates a fusion with k=60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates a fusion with a custom k. If k <= 0, defaults to 60.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// FusedItem is a fused document with its accumulated score.
type FusedItem struct {
	Name  string
	Score float64
	// Lists is the number of input lists that contained the document.
	Lists int
}

// Fuse merges lists and returns document names by descending fused score.
// Equal scores keep the order in which documents first appeared. When only
// one list is non-empty it is returned as is.
func (f *RRFFusion) Fuse(lists ...[]string) []string {
	items := f.FuseScored(lists...)
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

// FuseScored is Fuse with the fused scores attached.
func (f *RRFFusion) FuseScored(lists ...[]string) []FusedItem {
	nonEmpty := 0
	for _, l := range lists {
		if len(l) > 0 {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return []FusedItem{}
	}

	k := f.K
	if k <= 0 {
		k = DefaultRRFConstant
	}

	// Return empty slice, not nil, for consistent API behavior
	items := make([]FusedItem, 0, len(lists[0]))
	pos := make(map[string]int)
	for _, l := range lists {
		seen := make(map[string]struct{}, len(l))
		for rank, name := range l {
			// A list naming a document twice only counts its best rank.
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}

			i, ok := pos[name]
			if !ok {
				i = len(items)
				pos[name] = i
				items = append(items, FusedItem{Name: name})
			}
			items[i].Score += 1.0 / float64(k+rank+1)
			items[i].Lists++
		}
	}

	if nonEmpty == 1 {
		return items
	}

	sort.SliceStable(items, func(a, b int) bool {
		return items[a].Score > items[b].Score
	})
	return items
}
