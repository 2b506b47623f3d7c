// Package telemetry records search activity: Prometheus collectors for
// scraping and an in-process QueryStats summary for the CLI.
// Nothing is reported to external services.
package telemetry

import (
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Search outcomes.
const (
	OutcomeHit         = "hit"
	OutcomeZeroResult  = "zero_result"
	OutcomeUnavailable = "unavailable"
)

// LatencyBucket is a coarse latency class.
type LatencyBucket string

const (
	BucketP1   LatencyBucket = "p1"   // <1ms
	BucketP10  LatencyBucket = "p10"  // 1-10ms
	BucketP50  LatencyBucket = "p50"  // 10-50ms
	BucketP250 LatencyBucket = "p250" // 50-250ms
	BucketSlow LatencyBucket = "slow" // >=250ms
)

// LatencyToBucket converts a duration to its bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < time.Millisecond:
		return BucketP1
	case d < 10*time.Millisecond:
		return BucketP10
	case d < 50*time.Millisecond:
		return BucketP50
	case d < 250*time.Millisecond:
		return BucketP250
	default:
		return BucketSlow
	}
}

// QueryEvent is one served search.
type QueryEvent struct {
	Query       string
	OrderType   string
	ResultCount int
	Variants    int
	Latency     time.Duration
	// Unavailable marks a search that failed because no index could be built.
	Unavailable bool
}

// Outcome classifies the event.
func (e QueryEvent) Outcome() string {
	switch {
	case e.Unavailable:
		return OutcomeUnavailable
	case e.ResultCount == 0:
		return OutcomeZeroResult
	default:
		return OutcomeHit
	}
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	mu    sync.RWMutex
	items []T
	head  int
	size  int
}

// NewCircularBuffer creates a buffer. Capacity <= 0 defaults to 100.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{items: make([]T, capacity)}
}

// Add appends item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % len(b.items)
	if b.size < len(b.items) {
		b.size++
	}
}

// Items returns the buffered items, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, b.size)
	if b.size < len(b.items) {
		copy(out, b.items[:b.size])
		return out
	}
	n := copy(out, b.items[b.head:])
	copy(out[n:], b.items[:b.head])
	return out
}

// Size returns the number of buffered items.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// TermCount is a query term and how often it was searched.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// QueryStatsSnapshot is a point-in-time copy of QueryStats.
type QueryStatsSnapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	Outcomes            map[string]int64        `json:"outcomes"`
	OrderTypes          map[string]int64        `json:"order_types"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	RepeatCount         int64                   `json:"repeat_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of zero-result queries in percent.
func (s *QueryStatsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.Outcomes[OutcomeZeroResult]) / float64(s.TotalQueries) * 100
}

// QueryStatsConfig sizes the bounded structures of QueryStats.
type QueryStatsConfig struct {
	TopTermsCapacity      int // default: 100
	ZeroResultsCapacity   int // default: 100
	RecentQueriesCapacity int // default: 500
}

// QueryStats aggregates query telemetry in memory. Safe for concurrent use.
type QueryStats struct {
	mu sync.Mutex

	total       int64
	outcomes    map[string]int64
	orderTypes  map[string]int64
	latencies   map[LatencyBucket]int64
	topTerms    *lru.Cache[string, int64]
	zeroResults *CircularBuffer[string]
	recent      *lru.Cache[string, struct{}]
	repeats     int64
	since       time.Time
}

// NewQueryStats creates a collector.
func NewQueryStats(cfg QueryStatsConfig) *QueryStats {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = 500
	}

	// lru.New only fails for non-positive sizes.
	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	return &QueryStats{
		outcomes:    make(map[string]int64),
		orderTypes:  make(map[string]int64),
		latencies:   make(map[LatencyBucket]int64),
		topTerms:    topTerms,
		zeroResults: NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		recent:      recent,
		since:       time.Now(),
	}
}

// Record adds one event. A nil receiver ignores it.
func (s *QueryStats) Record(ev QueryEvent) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.outcomes[ev.Outcome()]++
	s.orderTypes[ev.OrderType]++
	s.latencies[LatencyToBucket(ev.Latency)]++

	normalized := strings.Join(strings.Fields(strings.ToLower(ev.Query)), " ")
	for _, term := range strings.Fields(normalized) {
		n, _ := s.topTerms.Get(term)
		s.topTerms.Add(term, n+1)
	}

	key := ev.OrderType + "\x00" + normalized
	if _, ok := s.recent.Get(key); ok {
		s.repeats++
	}
	s.recent.Add(key, struct{}{})

	if ev.Outcome() == OutcomeZeroResult {
		s.zeroResults.Add(ev.Query)
	}
}

// Snapshot returns the current aggregates. Top terms are sorted by count,
// then term.
func (s *QueryStats) Snapshot() *QueryStatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &QueryStatsSnapshot{
		TotalQueries:        s.total,
		Outcomes:            make(map[string]int64, len(s.outcomes)),
		OrderTypes:          make(map[string]int64, len(s.orderTypes)),
		LatencyDistribution: make(map[LatencyBucket]int64, len(s.latencies)),
		ZeroResultQueries:   s.zeroResults.Items(),
		RepeatCount:         s.repeats,
		Since:               s.since,
	}
	for k, v := range s.outcomes {
		snap.Outcomes[k] = v
	}
	for k, v := range s.orderTypes {
		snap.OrderTypes[k] = v
	}
	for k, v := range s.latencies {
		snap.LatencyDistribution[k] = v
	}
	for _, term := range s.topTerms.Keys() {
		if n, ok := s.topTerms.Peek(term); ok {
			snap.TopTerms = append(snap.TopTerms, TermCount{Term: term, Count: n})
		}
	}
	sort.Slice(snap.TopTerms, func(i, j int) bool {
		a, b := snap.TopTerms[i], snap.TopTerms[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Term < b.Term
	})
	return snap
}
