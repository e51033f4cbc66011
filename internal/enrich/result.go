package enrich

import (
	"fmt"

	"github.com/exprlab/genesettools/internal/genesets"
	"github.com/exprlab/genesettools/internal/xlmhg"
)

// Result records one significantly over-represented gene set from a
// static enrichment test. Results are immutable once returned.
type Result struct {
	GeneSet *genesets.GeneSet

	N       int // universe size
	Query   int // resolved query genes
	K       int // gene set genes in the universe
	Overlap int // gene set genes among the query genes

	Genes  []string // overlap gene names, sorted
	PValue float64
}

// String formats the result the way analysis reports print it:
// name, overlap counts and p-value.
func (r *Result) String() string {
	return fmt.Sprintf("%s (%d / %d @ n=%d), p=%.1e",
		r.GeneSet.Name, r.Overlap, r.K, r.Query, r.PValue)
}

// Equal reports content-based equality.
func (r *Result) Equal(o *Result) bool {
	if r == o {
		return true
	}
	if r == nil || o == nil {
		return false
	}
	if !r.GeneSet.Equal(o.GeneSet) ||
		r.N != o.N || r.Query != o.Query || r.K != o.K || r.Overlap != o.Overlap ||
		r.PValue != o.PValue || len(r.Genes) != len(o.Genes) {
		return false
	}
	for i, g := range r.Genes {
		if o.Genes[i] != g {
			return false
		}
	}
	return true
}

// RankResult records one significantly enriched gene set from a
// rank-based XL-mHG test. Results are immutable once returned.
type RankResult struct {
	GeneSet *genesets.GeneSet

	N int // ranked list length after unresolved genes were dropped
	X int // per-set minimum count threshold used for the test
	L int // adjusted prefix cutoff used for the test

	Stat   float64 // XL-mHG test statistic
	Cutoff int     // rank (1-based prefix length) at which Stat was attained
	PValue float64

	Indices []int    // 0-based ranks of the set's genes in the ranked list
	Genes   []string // the same genes, in rank order

	// EScore is the fold-enrichment strength at EScorePValThresh. When
	// no separate threshold is supplied the primary significance
	// threshold is reused, which yields conservative scores.
	EScore           float64
	EScorePValThresh float64
}

// K returns the number of annotated genes in the ranked list.
func (r *RankResult) K() int {
	return len(r.Indices)
}

// KAtCutoff returns how many of the set's genes rank above the cutoff.
func (r *RankResult) KAtCutoff() int {
	k := 0
	for _, i := range r.Indices {
		if i < r.Cutoff {
			k++
		}
	}
	return k
}

// String formats the result with overlap-at-cutoff counts, p-value and
// E-score.
func (r *RankResult) String() string {
	return fmt.Sprintf("%s (%d / %d @ %d), p=%.1e, e=%.1fx",
		r.GeneSet.Name, r.KAtCutoff(), r.K(), r.Cutoff, r.PValue, r.EScore)
}

// Equal reports content-based equality.
func (r *RankResult) Equal(o *RankResult) bool {
	if r == o {
		return true
	}
	if r == nil || o == nil {
		return false
	}
	if !r.GeneSet.Equal(o.GeneSet) ||
		r.N != o.N || r.X != o.X || r.L != o.L ||
		r.Stat != o.Stat || r.Cutoff != o.Cutoff || r.PValue != o.PValue ||
		r.EScore != o.EScore || r.EScorePValThresh != o.EScorePValThresh ||
		len(r.Indices) != len(o.Indices) {
		return false
	}
	for i, idx := range r.Indices {
		if o.Indices[i] != idx {
			return false
		}
	}
	return true
}

// escore computes the XL-mHG fold-enrichment score: the maximum fold
// enrichment over prefixes that end at an annotated gene, contain at
// least X annotated genes, lie within the cutoff L, and whose
// hypergeometric tail clears pvalThresh.
func escore(indices []int, N, K, X, L int, pvalThresh float64) float64 {
	if K == 0 || L == N || K < X {
		return 0
	}
	feMax := 0.0
	for k := 1; k <= K && indices[k-1] < L; k++ {
		if k < X {
			continue
		}
		n := indices[k-1] + 1
		if pvalThresh == 1.0 || xlmhg.HypergeomTail(k, N, K, n) <= pvalThresh {
			fe := float64(k) / (float64(K) * float64(n) / float64(N))
			if fe >= feMax {
				feMax = fe
			}
		}
	}
	return feMax
}
