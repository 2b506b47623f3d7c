// Package eval measures ranking quality: precision, recall, average
// precision, MAP and nDCG over judged queries.
package eval

import (
	"math"
	"sort"
)

// PrecisionAtK returns |pred[:k] ∩ relevant| / k, or 0 when k <= 0 or pred
// is empty.
func PrecisionAtK(pred []string, relevant map[string]struct{}, k int) float64 {
	if k <= 0 {
		return 0
	}
	top := head(pred, k)
	if len(top) == 0 {
		return 0
	}
	return float64(hits(top, relevant)) / float64(k)
}

// RecallAtK returns |pred[:k] ∩ relevant| / |relevant|, or 0 when relevant
// is empty.
func RecallAtK(pred []string, relevant map[string]struct{}, k int) float64 {
	if len(relevant) == 0 || k <= 0 {
		return 0
	}
	return float64(hits(head(pred, k), relevant)) / float64(len(relevant))
}

// AveragePrecision sums hits/rank at every relevant rank and divides by
// |relevant|.
func AveragePrecision(pred []string, relevant map[string]struct{}) float64 {
	if len(relevant) == 0 {
		return 0
	}
	var sum float64
	found := 0
	for i, p := range pred {
		if _, ok := relevant[p]; ok {
			found++
			sum += float64(found) / float64(i+1)
		}
	}
	return sum / float64(len(relevant))
}

// MeanAveragePrecision averages AveragePrecision over paired inputs. Empty
// or mismatched inputs give 0.
func MeanAveragePrecision(preds [][]string, relevant []map[string]struct{}) float64 {
	if len(preds) == 0 || len(preds) != len(relevant) {
		return 0
	}
	var sum float64
	for i := range preds {
		sum += AveragePrecision(preds[i], relevant[i])
	}
	return sum / float64(len(preds))
}

// DCGAtK returns gains[0] + Σ_{i=1}^{k-1} gains[i]/log2(i+1). The first rank
// is not discounted.
func DCGAtK(gains []float64, k int) float64 {
	k = min(k, len(gains))
	if k <= 0 {
		return 0
	}
	dcg := gains[0]
	for i := 1; i < k; i++ {
		dcg += gains[i] / math.Log2(float64(i+1))
	}
	return dcg
}

// NDCGAtK compares the DCG of pred to the DCG of the ideal ordering of
// gain's values. Returns 0 when the ideal DCG is 0, including an empty gain
// map.
func NDCGAtK(pred []string, gain map[string]float64, k int) float64 {
	gains := make([]float64, len(pred))
	for i, p := range pred {
		gains[i] = gain[p]
	}
	ideal := make([]float64, 0, len(gain))
	for _, g := range gain {
		ideal = append(ideal, g)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ideal)))

	idcg := DCGAtK(ideal, k)
	if idcg == 0 {
		return 0
	}
	return DCGAtK(gains, k) / idcg
}

// RelevantSet returns the names with a positive gain.
func RelevantSet(gain map[string]float64) map[string]struct{} {
	set := make(map[string]struct{}, len(gain))
	for name, g := range gain {
		if g > 0 {
			set[name] = struct{}{}
		}
	}
	return set
}

// Set builds a relevance set from names.
func Set(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func head(pred []string, k int) []string {
	if k < len(pred) {
		return pred[:k]
	}
	return pred
}

func hits(pred []string, relevant map[string]struct{}) int {
	n := 0
	for _, p := range pred {
		if _, ok := relevant[p]; ok {
			n++
		}
	}
	return n
}
