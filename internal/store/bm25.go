package store

import (
	"math"
	"sort"
)

// BM25Index is an Okapi BM25 index over a fixed document list. It is
// immutable after NewBM25Index and safe for concurrent reads. Fields are
// exported so the index can be gob-encoded into the cache.
type BM25Index struct {
	Config BM25Config

	// Docs are the original document texts, indexed by DocID.
	Docs []string

	// TermFreqs[i][t] is the frequency of term t in document i.
	TermFreqs []map[string]int

	DocLengths   []int
	AvgDocLength float64

	// IDF holds the floored inverse document frequency of every indexed term.
	IDF map[string]float64
}

// NewBM25Index tokenizes docs and builds the index.
//
// IDF(t) = ln((N - n(t) + 0.5) / (n(t) + 0.5)). Terms whose IDF is not
// positive (they occur in at least half of the documents) get
// Epsilon * mean(IDF) instead, or Epsilon itself when that mean is not
// positive. Every lexical overlap therefore contributes a positive score.
func NewBM25Index(docs []string, cfg BM25Config) *BM25Index {
	idx := &BM25Index{
		Config:     cfg,
		Docs:       append([]string(nil), docs...),
		TermFreqs:  make([]map[string]int, len(docs)),
		DocLengths: make([]int, len(docs)),
		IDF:        make(map[string]float64),
	}

	docFreq := make(map[string]int)
	total := 0
	for i, doc := range docs {
		tokens := Tokenize(doc)
		idx.DocLengths[i] = len(tokens)
		total += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			if tf[tok] == 0 {
				docFreq[tok]++
			}
			tf[tok]++
		}
		idx.TermFreqs[i] = tf
	}
	if len(docs) > 0 {
		idx.AvgDocLength = float64(total) / float64(len(docs))
	}

	n := float64(len(docs))
	var idfSum float64
	var floored []string
	for term, df := range docFreq {
		idf := math.Log((n - float64(df) + 0.5) / (float64(df) + 0.5))
		idx.IDF[term] = idf
		idfSum += idf
		if idf <= 0 {
			floored = append(floored, term)
		}
	}

	if len(floored) > 0 {
		floor := cfg.Epsilon * idfSum / float64(len(docFreq))
		if floor <= 0 {
			floor = cfg.Epsilon
		}
		for _, term := range floored {
			idx.IDF[term] = floor
		}
	}

	return idx
}

// Len returns the number of documents.
func (x *BM25Index) Len() int {
	return len(x.Docs)
}

// Stats reports document count, vocabulary size and average length.
func (x *BM25Index) Stats() IndexStats {
	return IndexStats{
		Documents:    len(x.Docs),
		Terms:        len(x.IDF),
		AvgDocLength: x.AvgDocLength,
	}
}

// Scores returns the BM25 score of every document for the query tokens.
// Repeated query tokens contribute once per occurrence.
func (x *BM25Index) Scores(tokens []string) []float64 {
	scores := make([]float64, len(x.Docs))
	if len(tokens) == 0 {
		return scores
	}

	k1, b := x.Config.K1, x.Config.B
	for _, tok := range tokens {
		idf, ok := x.IDF[tok]
		if !ok {
			continue
		}
		for i, tfs := range x.TermFreqs {
			tf := float64(tfs[tok])
			if tf == 0 {
				continue
			}
			norm := 1.0
			if x.AvgDocLength > 0 {
				norm = 1 - b + b*float64(x.DocLengths[i])/x.AvgDocLength
			}
			scores[i] += idf * tf * (k1 + 1) / (tf + k1*norm)
		}
	}
	return scores
}

// Search returns up to topK documents with a positive score, highest first.
// Equal scores keep document order. topK <= 0 returns every match.
func (x *BM25Index) Search(tokens []string, topK int) []Hit {
	scores := x.Scores(tokens)

	hits := make([]Hit, 0, len(scores))
	for i, s := range scores {
		if s > 0 {
			hits = append(hits, Hit{DocID: i, Name: x.Docs[i], Score: s})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Score > hits[b].Score
	})

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}
