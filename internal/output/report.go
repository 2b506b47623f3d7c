package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/menusearch/internal/eval"
	"github.com/Aman-CERP/menusearch/internal/search"
	"github.com/Aman-CERP/menusearch/internal/store"
	"github.com/Aman-CERP/menusearch/internal/telemetry"
)

// SearchResults prints a ranked result list.
func (w *Writer) SearchResults(query, orderType string, names []string, took time.Duration) {
	if len(names) == 0 {
		w.Warningf("No results for %q in %s", query, orderType)
		return
	}
	w.Header(fmt.Sprintf("%d result(s) for %q in %s", len(names), query, orderType))
	for i, name := range names {
		_, _ = fmt.Fprintf(w.out, "  %s %s\n", w.styles.Rank.Render(fmt.Sprintf("%2d.", i+1)), name)
	}
	_, _ = fmt.Fprintln(w.out, w.styles.Dim.Render(fmt.Sprintf("  (%s)", took.Round(time.Microsecond))))
}

// SyncReport prints one line per order type and a summary.
func (w *Writer) SyncReport(r search.SyncReport) {
	for _, res := range r.Results {
		if res.Err != nil {
			w.Errorf("%-20s %s", res.OrderType, res.Err)
			continue
		}
		w.Successf("%-20s %-12s %d document(s)", res.OrderType, res.Outcome, res.Documents)
	}
	if failed := r.Failed(); failed > 0 {
		w.Warningf("%d of %d order type(s) failed in %s", failed, len(r.Results), r.Duration.Round(time.Millisecond))
		return
	}
	w.Status("", w.styles.Dim.Render(fmt.Sprintf("%d order type(s) synced in %s", len(r.Results), r.Duration.Round(time.Millisecond))))
}

// IndexInfo prints what a cached artifact holds.
func (w *Writer) IndexInfo(art *store.Artifact, showDocs bool) {
	stats := art.Index.Stats()
	w.Header(art.Key.String())
	w.KeyValue("blob", art.Key.BlobName())
	w.KeyValue("hash", art.Hash)
	w.KeyValue("built", art.BuiltAt.Format(time.RFC3339))
	w.KeyValue("documents", stats.Documents)
	w.KeyValue("terms", stats.Terms)
	w.KeyValue("avg doc length", fmt.Sprintf("%.2f", stats.AvgDocLength))
	if showDocs {
		for _, doc := range art.Index.Docs {
			_, _ = fmt.Fprintf(w.out, "    - %s\n", doc)
		}
	}
}

// EvalReport prints per-cutoff means and the queries that failed or missed.
func (w *Writer) EvalReport(r *eval.Report) {
	w.Header(fmt.Sprintf("Evaluated %d quer(ies)", r.Summary.QueryCount))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-6s %-10s %-10s %-10s\n", "k", "P@k", "R@k", "nDCG@k"))
	for _, k := range r.Cutoffs {
		sb.WriteString(fmt.Sprintf("%-6d %-10.4f %-10.4f %-10.4f\n",
			k, r.Summary.MeanPrecision[k], r.Summary.MeanRecall[k], r.Summary.MeanNDCG[k]))
	}
	w.Code(strings.TrimRight(sb.String(), "\n"))
	w.KeyValue("MAP", fmt.Sprintf("%.4f %s", r.Summary.MAP, Bar(r.Summary.MAP, 20)))

	for _, q := range r.Queries {
		switch {
		case q.Error != "":
			w.Errorf("%s %q: %s", q.ID, q.Query, q.Error)
		case q.AP == 0:
			w.Warningf("%s %q: no relevant result", q.ID, q.Query)
		}
	}
}

// QueryStats prints a telemetry snapshot.
func (w *Writer) QueryStats(s *telemetry.QueryStatsSnapshot) {
	w.Header("Query statistics")
	w.KeyValue("since", s.Since.Format(time.RFC3339))
	w.KeyValue("total", s.TotalQueries)
	w.KeyValue("zero result", fmt.Sprintf("%.1f%%", s.ZeroResultPercentage()))
	w.KeyValue("repeats", s.RepeatCount)

	if len(s.TopTerms) > 0 {
		terms := make([]string, 0, len(s.TopTerms))
		for _, tc := range s.TopTerms {
			terms = append(terms, fmt.Sprintf("%s(%d)", tc.Term, tc.Count))
		}
		w.KeyValue("top terms", strings.Join(terms, " "))
	}

	buckets := make([]string, 0, len(s.LatencyDistribution))
	for b := range s.LatencyDistribution {
		buckets = append(buckets, string(b))
	}
	sort.Strings(buckets)
	for _, b := range buckets {
		w.KeyValue("latency "+b, s.LatencyDistribution[telemetry.LatencyBucket(b)])
	}
}
