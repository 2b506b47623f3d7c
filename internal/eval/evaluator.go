package eval

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	merrors "github.com/Aman-CERP/menusearch/internal/errors"
)

// DefaultCutoffs are the k values reported when a suite names none.
var DefaultCutoffs = []int{1, 3, 5, 10}

// Searcher is the search surface under evaluation.
type Searcher interface {
	SimpleSearch(ctx context.Context, query, orderType string, topN int) ([]string, error)
}

// Judgment is one judged query. Relevant maps document names to graded
// gains; names with a positive gain form the relevant set.
type Judgment struct {
	ID        string             `yaml:"id" json:"id"`
	Query     string             `yaml:"query" json:"query"`
	OrderType string             `yaml:"order_type,omitempty" json:"order_type,omitempty"`
	Relevant  map[string]float64 `yaml:"relevant" json:"relevant"`
}

// Suite is a set of judged queries.
type Suite struct {
	// OrderType is used by queries that do not name their own.
	OrderType string     `yaml:"order_type" json:"order_type"`
	Cutoffs   []int      `yaml:"k" json:"k"`
	Queries   []Judgment `yaml:"queries" json:"queries"`
}

// LoadSuite reads a YAML or JSON suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, merrors.New(merrors.ErrCodeInvalidJudgments, "cannot read judgments", err).
			WithDetail("path", path)
	}
	return ParseSuite(data)
}

// ParseSuite decodes and validates a suite.
func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, merrors.New(merrors.ErrCodeInvalidJudgments, "invalid judgments", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every query can be run and fills in defaults.
func (s *Suite) Validate() error {
	if len(s.Queries) == 0 {
		return merrors.New(merrors.ErrCodeInvalidJudgments, "suite has no queries", nil)
	}
	if len(s.Cutoffs) == 0 {
		s.Cutoffs = slices.Clone(DefaultCutoffs)
	}
	for _, k := range s.Cutoffs {
		if k <= 0 {
			return merrors.New(merrors.ErrCodeInvalidJudgments, fmt.Sprintf("cutoff %d must be positive", k), nil)
		}
	}
	slices.Sort(s.Cutoffs)
	s.Cutoffs = slices.Compact(s.Cutoffs)

	for i := range s.Queries {
		q := &s.Queries[i]
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		if q.OrderType == "" {
			q.OrderType = s.OrderType
		}
		if q.OrderType == "" {
			return merrors.New(merrors.ErrCodeInvalidJudgments,
				fmt.Sprintf("query %s has no order type", q.ID), nil)
		}
	}
	return nil
}

// QueryResult holds the metrics of one judged query.
type QueryResult struct {
	ID        string          `json:"id"`
	Query     string          `json:"query"`
	OrderType string          `json:"order_type"`
	Results   []string        `json:"results"`
	Precision map[int]float64 `json:"precision"`
	Recall    map[int]float64 `json:"recall"`
	NDCG      map[int]float64 `json:"ndcg"`
	AP        float64         `json:"ap"`
	Error     string          `json:"error,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	QueryCount    int             `json:"query_count"`
	Failed        int             `json:"failed"`
	MeanPrecision map[int]float64 `json:"mean_precision"`
	MeanRecall    map[int]float64 `json:"mean_recall"`
	MeanNDCG      map[int]float64 `json:"mean_ndcg"`
	MAP           float64         `json:"map"`
}

// Report is the outcome of Evaluator.Run.
type Report struct {
	Cutoffs []int         `json:"k"`
	Queries []QueryResult `json:"queries"`
	Summary Summary       `json:"summary"`
}

// Evaluator runs a suite against a Searcher.
type Evaluator struct {
	searcher    Searcher
	concurrency int
	logger      *slog.Logger
}

// NewEvaluator creates an evaluator running up to concurrency queries at once.
func NewEvaluator(searcher Searcher, concurrency int, logger *slog.Logger) *Evaluator {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{searcher: searcher, concurrency: concurrency, logger: logger}
}

// Run searches every query with topN equal to the largest cutoff and scores
// the results. A failed search is reported on its query and scores zero;
// only cancellation aborts the run.
func (e *Evaluator) Run(ctx context.Context, suite *Suite) (*Report, error) {
	if err := suite.Validate(); err != nil {
		return nil, err
	}
	topN := suite.Cutoffs[len(suite.Cutoffs)-1]

	results := make([]QueryResult, len(suite.Queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, q := range suite.Queries {
		g.Go(func() error {
			got, err := e.searcher.SimpleSearch(gctx, q.Query, q.OrderType, topN)
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			res := score(q, got, suite.Cutoffs)
			if err != nil {
				res.Error = err.Error()
				e.logger.Warn("eval_query_failed",
					slog.String("id", q.ID),
					slog.String("order_type", q.OrderType),
					slog.String("error", err.Error()))
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Report{
		Cutoffs: suite.Cutoffs,
		Queries: results,
		Summary: summarize(suite, results),
	}, nil
}

func score(q Judgment, got []string, cutoffs []int) QueryResult {
	if got == nil {
		got = []string{}
	}
	rel := RelevantSet(q.Relevant)
	res := QueryResult{
		ID:        q.ID,
		Query:     q.Query,
		OrderType: q.OrderType,
		Results:   got,
		Precision: make(map[int]float64, len(cutoffs)),
		Recall:    make(map[int]float64, len(cutoffs)),
		NDCG:      make(map[int]float64, len(cutoffs)),
		AP:        AveragePrecision(got, rel),
	}
	for _, k := range cutoffs {
		res.Precision[k] = PrecisionAtK(got, rel, k)
		res.Recall[k] = RecallAtK(got, rel, k)
		res.NDCG[k] = NDCGAtK(got, q.Relevant, k)
	}
	return res
}

func summarize(suite *Suite, results []QueryResult) Summary {
	sum := Summary{
		QueryCount:    len(results),
		MeanPrecision: make(map[int]float64, len(suite.Cutoffs)),
		MeanRecall:    make(map[int]float64, len(suite.Cutoffs)),
		MeanNDCG:      make(map[int]float64, len(suite.Cutoffs)),
	}
	if len(results) == 0 {
		return sum
	}

	preds := make([][]string, len(results))
	rels := make([]map[string]struct{}, len(results))
	for i, r := range results {
		if r.Error != "" {
			sum.Failed++
		}
		preds[i] = r.Results
		rels[i] = RelevantSet(suite.Queries[i].Relevant)
		for _, k := range suite.Cutoffs {
			sum.MeanPrecision[k] += r.Precision[k]
			sum.MeanRecall[k] += r.Recall[k]
			sum.MeanNDCG[k] += r.NDCG[k]
		}
	}

	n := float64(len(results))
	for _, k := range suite.Cutoffs {
		sum.MeanPrecision[k] /= n
		sum.MeanRecall[k] /= n
		sum.MeanNDCG[k] /= n
	}
	sum.MAP = MeanAveragePrecision(preds, rels)
	return sum
}
