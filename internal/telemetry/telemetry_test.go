package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircularBuffer_EvictsOldest(t *testing.T) {
	// Given: a buffer of capacity 3
	b := NewCircularBuffer[int](3)

	// When: adding 5 items
	for i := 1; i <= 5; i++ {
		b.Add(i)
	}

	// Then: the last 3 remain, oldest first
	assert.Equal(t, []int{3, 4, 5}, b.Items())
	assert.Equal(t, 3, b.Size())
}

func TestCircularBuffer_PartiallyFilled(t *testing.T) {
	b := NewCircularBuffer[string](0)
	assert.Empty(t, b.Items())

	b.Add("a")
	b.Add("b")

	assert.Equal(t, []string{"a", "b"}, b.Items())
}

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want LatencyBucket
	}{
		{500 * time.Microsecond, BucketP1},
		{time.Millisecond, BucketP10},
		{20 * time.Millisecond, BucketP50},
		{100 * time.Millisecond, BucketP250},
		{time.Second, BucketSlow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.d), tt.d.String())
	}
}

func TestQueryEvent_Outcome(t *testing.T) {
	assert.Equal(t, OutcomeHit, QueryEvent{ResultCount: 2}.Outcome())
	assert.Equal(t, OutcomeZeroResult, QueryEvent{}.Outcome())
	assert.Equal(t, OutcomeUnavailable, QueryEvent{Unavailable: true}.Outcome())
}

func TestQueryStats_Record(t *testing.T) {
	// Given: a collector
	s := NewQueryStats(QueryStatsConfig{})

	// When: recording hits, a repeat and a zero-result query
	s.Record(QueryEvent{Query: "Pizza", OrderType: "delivery", ResultCount: 2})
	s.Record(QueryEvent{Query: "pizza  ", OrderType: "delivery", ResultCount: 2})
	s.Record(QueryEvent{Query: "xyzzy", OrderType: "pickup"})

	// Then: the snapshot reflects all of them
	snap := s.Snapshot()
	assert.Equal(t, int64(3), snap.TotalQueries)
	assert.Equal(t, int64(2), snap.Outcomes[OutcomeHit])
	assert.Equal(t, int64(1), snap.Outcomes[OutcomeZeroResult])
	assert.Equal(t, int64(2), snap.OrderTypes["delivery"])
	assert.Equal(t, int64(1), snap.RepeatCount)
	assert.Equal(t, []string{"xyzzy"}, snap.ZeroResultQueries)
	require.NotEmpty(t, snap.TopTerms)
	assert.Equal(t, TermCount{Term: "pizza", Count: 2}, snap.TopTerms[0])
	assert.InDelta(t, 100.0/3, snap.ZeroResultPercentage(), 1e-9)
}

func TestQueryStats_NilReceiver(t *testing.T) {
	var s *QueryStats
	assert.NotPanics(t, func() { s.Record(QueryEvent{Query: "x"}) })
}

func TestQueryStats_Concurrent(t *testing.T) {
	s := NewQueryStats(QueryStatsConfig{TopTermsCapacity: 10})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Record(QueryEvent{Query: "wings", OrderType: "delivery", ResultCount: 1})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(400), s.Snapshot().TotalQueries)
}

func TestMetrics_ObserveSearch(t *testing.T) {
	// Given: fresh collectors
	m := NewMetrics()

	// When: observing a hit and a zero-result search
	m.ObserveSearch(QueryEvent{OrderType: "delivery", ResultCount: 2, Variants: 2, Latency: time.Millisecond})
	m.ObserveSearch(QueryEvent{OrderType: "delivery", Variants: 1})

	// Then: counters are labelled by outcome
	assert.InDelta(t, 1, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("delivery", OutcomeHit)), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("delivery", OutcomeZeroResult)), 1e-9)
}

func TestMetrics_ObserveBuildAndSync(t *testing.T) {
	m := NewMetrics()

	m.ObserveBuild("acme", "delivery", BuildBuilt, 12, 5*time.Millisecond)
	m.ObserveBuild("acme", "pickup", BuildFailed, 0, time.Millisecond)
	m.ObserveSync(1, 2, nil)
	m.ObserveSync(0, 0, errors.New("provider down"))

	assert.InDelta(t, 12, testutil.ToFloat64(m.IndexDocuments.WithLabelValues("acme", "delivery")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.IndexBuildsTotal.WithLabelValues(BuildFailed)), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SyncRunsTotal.WithLabelValues("partial")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SyncRunsTotal.WithLabelValues("failed")), 1e-9)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSearch(QueryEvent{})
		m.ObserveBuild("", "", BuildBuilt, 0, 0)
		m.ObserveSync(0, 0, nil)
		m.SetMemoEntries(3)
	})
}

func TestMetrics_Handler(t *testing.T) {
	// Given: metrics with one observation
	m := NewMetrics()
	m.SetMemoEntries(2)

	// When: scraping the handler
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Then: the exposition includes menusearch collectors
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "menusearch_memo_entries 2"))
}
