// Package xlmhg implements the XL-mHG test for rank-based enrichment in
// binary lists.
//
// The test takes a ranked binary vector (1 = gene belongs to the set under
// test, 0 = it does not) and asks whether the 1's concentrate near the top
// of the ranking more strongly than expected by chance. It generalizes the
// minimum-hypergeometric (mHG) statistic with two parameters: X, the
// minimum number of 1's a prefix must contain before it is scored, and L,
// the longest prefix considered. The p-value is exact, computed by a
// dynamic program over the lattice of (prefix length, 1's seen) states.
package xlmhg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// Result holds the outcome of a single XL-mHG test.
type Result struct {
	Stat   float64 // minimum hypergeometric tail over scored prefixes
	Cutoff int     // prefix length at which Stat was attained (0 if none)
	PValue float64
}

// HypergeomTail returns the upper tail P(W >= k) of the hypergeometric
// distribution: the probability of drawing k or more special items in n
// draws without replacement from a population of N items of which K are
// special. Computed in log space to stay stable for large N.
func HypergeomTail(k, N, K, n int) float64 {
	if k <= 0 || k <= n+K-N {
		return 1.0
	}
	upper := K
	if n < K {
		upper = n
	}
	if k > upper {
		return 0.0
	}
	logDenom := combin.LogGeneralizedBinomial(float64(N), float64(n))
	var tail float64
	for i := k; i <= upper; i++ {
		logP := combin.LogGeneralizedBinomial(float64(K), float64(i)) +
			combin.LogGeneralizedBinomial(float64(N-K), float64(n-i)) -
			logDenom
		tail += math.Exp(logP)
	}
	if tail > 1.0 {
		tail = 1.0
	}
	return tail
}

// Stat computes the XL-mHG test statistic for the ranked binary vector v:
// the minimum hypergeometric tail probability over all prefixes of length
// n <= L that contain at least X 1's. It returns the statistic and the
// prefix length at which it was first attained. If no prefix qualifies,
// the statistic is 1 and the cutoff is 0.
func Stat(v []uint8, X, L int) (stat float64, cutoff int) {
	N := len(v)
	if L > N {
		L = N
	}
	K := 0
	for _, x := range v {
		if x != 0 {
			K++
		}
	}
	stat = 1.0
	if K == 0 {
		return stat, 0
	}
	k := 0
	for n := 1; n <= L; n++ {
		if v[n-1] == 0 {
			continue
		}
		k++
		// The tail only shrinks when a 1 arrives, so prefixes ending
		// in a 0 never attain the minimum.
		if k < X {
			continue
		}
		if tail := HypergeomTail(k, N, K, n); tail < stat {
			stat = tail
			cutoff = n
		}
	}
	return stat, cutoff
}

// Scratch is a reusable work buffer for PValue. A Scratch must not be
// shared between concurrent calls; allocate one per goroutine or guard it
// with exclusive checkout.
type Scratch struct {
	probs    []float64
	boundary []int
}

// NewScratch returns an empty scratch buffer. Buffers grow on demand and
// are retained across calls.
func NewScratch() *Scratch {
	return &Scratch{}
}

func (s *Scratch) ensure(N, K int) {
	if cap(s.probs) < K+1 {
		s.probs = make([]float64, K+1)
	}
	s.probs = s.probs[:K+1]
	if cap(s.boundary) < N+1 {
		s.boundary = make([]int, N+1)
	}
	s.boundary = s.boundary[:N+1]
}

// PValue computes the exact XL-mHG p-value: the probability that a random
// permutation of K 1's among N entries attains a test statistic <= stat.
// It runs the standard O(N*K) dynamic program over path probabilities,
// zeroing the probability mass of any path that enters the significance
// region. scratch may be nil, in which case a temporary buffer is used.
func PValue(N, K, X, L int, stat float64, scratch *Scratch) float64 {
	if stat >= 1.0 || K == 0 || N == 0 {
		return 1.0
	}
	if L > N {
		L = N
	}
	if X < 1 {
		X = 1
	}
	if scratch == nil {
		scratch = NewScratch()
	}
	scratch.ensure(N, K)

	// For each prefix length n, find the smallest count k at which the
	// tail probability drops to stat or below. The boundary is
	// non-decreasing in n, so a single upward walk of b covers all n.
	// boundary[n] = 0 means no cell at this n is in the region.
	boundary := scratch.boundary
	b := X
	for n := 1; n <= N; n++ {
		boundary[n] = 0
		if n > L {
			continue
		}
		lim := n
		if K < lim {
			lim = K
		}
		for b <= lim && HypergeomTail(b, N, K, n) > stat {
			b++
		}
		if b <= lim {
			boundary[n] = b
		}
	}

	// probs[k] holds the probability that a random path reaches
	// (n, k) without having entered the significance region.
	probs := scratch.probs
	for k := range probs {
		probs[k] = 0
	}
	probs[0] = 1.0

	W := N - K
	for n := 1; n <= N; n++ {
		hi := n
		if K < hi {
			hi = K
		}
		lo := n - W
		if lo < 0 {
			lo = 0
		}
		rem := float64(N - (n - 1))
		for k := hi; k >= lo; k-- {
			var p float64
			if k > 0 {
				p += probs[k-1] * float64(K-(k-1)) / rem
			}
			if zeros := W - ((n - 1) - k); zeros > 0 && k <= n-1 {
				p += probs[k] * float64(zeros) / rem
			}
			if boundary[n] > 0 && k >= boundary[n] {
				p = 0
			}
			probs[k] = p
		}
		if lo > 0 {
			probs[lo-1] = 0
		}
	}

	pval := 1.0 - probs[K]
	if pval < 0 {
		pval = 0
	}
	if pval > 1 {
		pval = 1
	}
	return pval
}

// Test runs the full XL-mHG test on the ranked binary vector v.
// It validates X and L, computes the test statistic and its cutoff, and
// derives the exact p-value.
func Test(v []uint8, X, L int, scratch *Scratch) (Result, error) {
	N := len(v)
	if N == 0 {
		return Result{}, fmt.Errorf("xlmhg: empty input vector")
	}
	if X < 1 {
		return Result{}, fmt.Errorf("xlmhg: X must be >= 1, got %d", X)
	}
	if L < 1 || L > N {
		return Result{}, fmt.Errorf("xlmhg: L must be in [1, %d], got %d", N, L)
	}
	K := 0
	for _, x := range v {
		if x != 0 {
			K++
		}
	}
	stat, cutoff := Stat(v, X, L)
	pval := PValue(N, K, X, L, stat, scratch)
	return Result{Stat: stat, Cutoff: cutoff, PValue: pval}, nil
}
