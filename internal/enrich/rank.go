package enrich

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/exprlab/genesettools/internal/genesets"
	"github.com/exprlab/genesettools/internal/genome"
	"github.com/exprlab/genesettools/internal/xlmhg"
)

// RankParams configures a rank-based XL-mHG enrichment test.
type RankParams struct {
	// PValThresh is the significance threshold, in (0, 1].
	PValThresh float64

	// XFrac and XMin set the per-gene-set minimum-count parameter:
	// X[j] = max(XMin, ceil(XFrac * K[j])), where K[j] is the number of
	// annotated genes in the ranked list. XFrac must lie in [0, 1] and
	// XMin must be >= 1.
	XFrac float64
	XMin  int

	// L is the prefix cutoff: only the top L ranks count as "above the
	// cutoff". Must lie in [1, genome size]. Unresolved genes occupying
	// a top-L slot shrink the effective cutoff.
	L int

	// AdjustPValThresh applies a Bonferroni correction over the number
	// of gene sets actually tested.
	AdjustPValThresh bool

	// EScorePValThresh is the separate, typically more lenient,
	// threshold used for E-score computation. Zero reuses PValThresh,
	// which yields conservative scores.
	EScorePValThresh float64

	// GeneSetIDs restricts testing to the named gene sets. Unknown IDs
	// are a configuration error. Nil tests the whole collection.
	GeneSetIDs []string

	// Workers sets the number of goroutines testing gene sets. Values
	// below 2 run the analysis on the calling goroutine. Each worker
	// owns its own dynamic-programming scratch buffer.
	Workers int
}

// DefaultRankParams returns the conventional defaults.
func DefaultRankParams() RankParams {
	return RankParams{
		PValThresh:       0.05,
		XFrac:            0.25,
		XMin:             5,
		L:                1000,
		AdjustPValThresh: true,
	}
}

// RankBasedAnalysis tests ranked gene lists for gene set enrichment
// using the XL-mHG test. The membership matrix is built once at
// construction; Test is a pure function of its inputs and may be called
// concurrently.
type RankBasedAnalysis struct {
	genome *genome.Genome
	coll   *genesets.Collection
	matrix *Matrix
	stats  BuildStats
	logger *zap.Logger
}

// NewRankBased builds the membership matrix for the given universe and
// collection and returns an analysis ready for ranked queries.
func NewRankBased(g *genome.Genome, c *genesets.Collection) *RankBasedAnalysis {
	matrix, stats := Build(g, c)
	return &RankBasedAnalysis{
		genome: g,
		coll:   c,
		matrix: matrix,
		stats:  stats,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for data-quality warnings.
func (a *RankBasedAnalysis) SetLogger(l *zap.Logger) {
	a.logger = l
}

// BuildStats returns diagnostics from the membership matrix build.
func (a *RankBasedAnalysis) BuildStats() BuildStats {
	return a.stats
}

// rankOutcome is the per-gene-set output of the test workers.
type rankOutcome struct {
	tested bool
	result *RankResult // nil when short-circuited (p-value 1)
}

// Test runs the XL-mHG test for every eligible gene set against the
// ranked gene list and returns the significant results sorted by
// ascending p-value (ties broken by gene set ID). Ranked genes missing
// from the universe are dropped and logged; a dropped gene that occupied
// a top-L slot shrinks the effective cutoff so that the prefix stays
// anchored to genes actually present. Duplicate ranked genes are a
// configuration error.
func (a *RankBasedAnalysis) Test(rankedGenes []string, params RankParams) ([]*RankResult, error) {
	if err := a.validate(params); err != nil {
		return nil, err
	}

	sets, matrix, err := restrictColumns(a.coll, a.matrix, params.GeneSetIDs)
	if err != nil {
		return nil, err
	}

	// Resolve the ranking against the universe.
	rows := make([]int, 0, len(rankedGenes))
	names := make([]string, 0, len(rankedGenes))
	seen := make(map[int]bool, len(rankedGenes))
	unknown := 0
	lAdj := params.L
	for pos, name := range rankedGenes {
		i, err := a.genome.Index(name)
		if err != nil {
			unknown++
			if pos < params.L {
				lAdj--
			}
			continue
		}
		if seen[i] {
			return nil, fmt.Errorf("enrich: duplicate gene %q in ranked list", name)
		}
		seen[i] = true
		rows = append(rows, i)
		names = append(names, name)
	}
	if unknown > 0 {
		a.logger.Warn("ranked genes not in universe",
			zap.Int("unknown", unknown),
			zap.Int("total", len(rankedGenes)))
	}

	N := len(rows)
	if N == 0 {
		a.logger.Info("no ranked genes resolved; nothing to test")
		return nil, nil
	}
	if lAdj > N {
		lAdj = N
	}

	escoreThresh := params.EScorePValThresh
	if escoreThresh == 0 {
		a.logger.Warn("no separate E-score threshold set; reusing the " +
			"significance threshold yields conservative E-scores")
		escoreThresh = params.PValThresh
	}

	a.logger.Info("testing gene sets for rank enrichment",
		zap.Int("gene_sets", len(sets)),
		zap.Int("ranked_genes", N),
		zap.Float64("x_frac", params.XFrac),
		zap.Int("x_min", params.XMin),
		zap.Int("cutoff", lAdj))

	outcomes := make([]rankOutcome, len(sets))
	testSet := func(j int, buf []uint8, scratch *xlmhg.Scratch) rankOutcome {
		v := matrix.column(j, rows, buf)
		K := 0
		kAbove := 0
		for r, x := range v {
			if x != 0 {
				K++
				if r < lAdj {
					kAbove++
				}
			}
		}
		X := params.XMin
		if frac := int(math.Ceil(params.XFrac * float64(K))); frac > X {
			X = frac
		}
		if K < X {
			return rankOutcome{}
		}
		// Too few annotated genes above the cutoff: the test cannot
		// reach significance, so skip the dynamic program outright.
		if kAbove < X {
			return rankOutcome{tested: true}
		}
		stat, cutoff := xlmhg.Stat(v, X, lAdj)
		pval := xlmhg.PValue(N, K, X, lAdj, stat, scratch)

		indices := make([]int, 0, K)
		geneNames := make([]string, 0, K)
		for r, x := range v {
			if x != 0 {
				indices = append(indices, r)
				geneNames = append(geneNames, names[r])
			}
		}
		return rankOutcome{tested: true, result: &RankResult{
			GeneSet:          sets[j],
			N:                N,
			X:                X,
			L:                lAdj,
			Stat:             stat,
			Cutoff:           cutoff,
			PValue:           pval,
			Indices:          indices,
			Genes:            geneNames,
			EScore:           escore(indices, N, K, X, lAdj, escoreThresh),
			EScorePValThresh: escoreThresh,
		}}
	}

	if params.Workers > 1 {
		jobs := make(chan int)
		var wg sync.WaitGroup
		wg.Add(params.Workers)
		for w := 0; w < params.Workers; w++ {
			go func() {
				defer wg.Done()
				buf := make([]uint8, 0, N)
				scratch := xlmhg.NewScratch()
				for j := range jobs {
					outcomes[j] = testSet(j, buf, scratch)
				}
			}()
		}
		for j := range sets {
			jobs <- j
		}
		close(jobs)
		wg.Wait()
	} else {
		buf := make([]uint8, 0, N)
		scratch := xlmhg.NewScratch()
		for j := range sets {
			outcomes[j] = testSet(j, buf, scratch)
		}
	}

	numTests := 0
	for _, o := range outcomes {
		if o.tested {
			numTests++
		}
	}
	thresh := params.PValThresh
	if params.AdjustPValThresh && numTests > 0 {
		thresh /= float64(numTests)
	}

	var results []*RankResult
	for _, o := range outcomes {
		if o.result != nil && o.result.PValue <= thresh {
			results = append(results, o.result)
		}
	}

	sortResults(results, func(r *RankResult) (float64, string) { return r.PValue, r.GeneSet.ID })
	a.logger.Info("rank enrichment test complete",
		zap.Int("significant", len(results)),
		zap.Int("tested", numTests),
		zap.Float64("threshold", thresh))
	return results, nil
}

func (a *RankBasedAnalysis) validate(params RankParams) error {
	if params.PValThresh <= 0 || params.PValThresh > 1 {
		return fmt.Errorf("enrich: p-value threshold must be in (0, 1], got %g", params.PValThresh)
	}
	if params.XFrac < 0 || params.XFrac > 1 {
		return fmt.Errorf("enrich: X_frac must be in [0, 1], got %g", params.XFrac)
	}
	if params.XMin < 1 {
		return fmt.Errorf("enrich: X_min must be >= 1, got %d", params.XMin)
	}
	if params.L < 1 || params.L > a.genome.Size() {
		return fmt.Errorf("enrich: L must be in [1, %d], got %d", a.genome.Size(), params.L)
	}
	if t := params.EScorePValThresh; t != 0 && (t < 0 || t > 1) {
		return fmt.Errorf("enrich: E-score p-value threshold must be in (0, 1], got %g", t)
	}
	return nil
}
