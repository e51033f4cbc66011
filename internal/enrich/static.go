package enrich

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/exprlab/genesettools/internal/genesets"
	"github.com/exprlab/genesettools/internal/genome"
	"github.com/exprlab/genesettools/internal/xlmhg"
)

// StaticParams configures a static over-representation test.
type StaticParams struct {
	// PValThresh is the significance threshold, in (0, 1].
	PValThresh float64

	// X is the minimum number of gene set genes that must exist in the
	// universe for the set to be tested at all. Must be >= 1.
	X int

	// AdjustPValThresh applies a Bonferroni correction: the threshold
	// is divided by the number of gene sets actually tested.
	AdjustPValThresh bool

	// GeneSetIDs restricts testing to the named gene sets. Unknown IDs
	// are a configuration error. Nil tests the whole collection.
	GeneSetIDs []string
}

// DefaultStaticParams returns the conventional defaults.
func DefaultStaticParams() StaticParams {
	return StaticParams{PValThresh: 0.05, X: 3, AdjustPValThresh: true}
}

// StaticAnalysis tests unordered query gene sets for over-representation
// of gene set members using the hypergeometric distribution. The
// membership matrix is built once at construction; Test may then be
// called any number of times, concurrently if desired.
type StaticAnalysis struct {
	genome *genome.Genome
	coll   *genesets.Collection
	matrix *Matrix
	stats  BuildStats
	logger *zap.Logger
}

// NewStatic builds the membership matrix for the given universe and
// collection and returns an analysis ready for queries.
func NewStatic(g *genome.Genome, c *genesets.Collection) *StaticAnalysis {
	matrix, stats := Build(g, c)
	return &StaticAnalysis{
		genome: g,
		coll:   c,
		matrix: matrix,
		stats:  stats,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for data-quality warnings.
func (a *StaticAnalysis) SetLogger(l *zap.Logger) {
	a.logger = l
}

// BuildStats returns diagnostics from the membership matrix build.
func (a *StaticAnalysis) BuildStats() BuildStats {
	return a.stats
}

// Genome returns the analysis universe.
func (a *StaticAnalysis) Genome() *genome.Genome {
	return a.genome
}

// Collection returns the gene set collection under test.
func (a *StaticAnalysis) Collection() *genesets.Collection {
	return a.coll
}

// Test computes, for every eligible gene set, the upper-tail
// hypergeometric p-value of the overlap between the query genes and the
// set, and returns the significant results sorted by ascending p-value
// (ties broken by gene set ID). Query genes missing from the universe are
// dropped and logged, never an error; an empty resolved query yields an
// empty result list.
func (a *StaticAnalysis) Test(genes []string, params StaticParams) ([]*Result, error) {
	if err := a.validate(params); err != nil {
		return nil, err
	}

	sets, matrix, err := restrictColumns(a.coll, a.matrix, params.GeneSetIDs)
	if err != nil {
		return nil, err
	}

	// Resolve the query against the universe, with set semantics.
	seen := make(map[int]bool, len(genes))
	var queryRows []int
	unknown := 0
	for _, name := range genes {
		i, err := a.genome.Index(name)
		if err != nil {
			unknown++
			continue
		}
		if !seen[i] {
			seen[i] = true
			queryRows = append(queryRows, i)
		}
	}
	if unknown > 0 {
		a.logger.Warn("query genes not in universe",
			zap.Int("unknown", unknown),
			zap.Int("total", len(genes)))
	}

	N := a.genome.Size()
	n := len(queryRows)
	K := matrix.ColumnSums()

	numTests := 0
	for _, kj := range K {
		if kj >= params.X {
			numTests++
		}
	}
	thresh := params.PValThresh
	if params.AdjustPValThresh && numTests > 0 {
		thresh /= float64(numTests)
	}

	a.logger.Info("testing gene sets for over-representation",
		zap.Int("gene_sets", numTests),
		zap.Int("query_genes", n),
		zap.Float64("threshold", thresh))

	var results []*Result
	buf := make([]uint8, 0, n)
	for j, s := range sets {
		if K[j] < params.X {
			continue
		}
		col := matrix.column(j, queryRows, buf)
		k := 0
		for _, v := range col {
			if v != 0 {
				k++
			}
		}
		pval := xlmhg.HypergeomTail(k, N, K[j], n)
		if pval > thresh {
			continue
		}
		overlap := make([]string, 0, k)
		for pos, v := range col {
			if v != 0 {
				g, _ := a.genome.GeneAt(queryRows[pos])
				overlap = append(overlap, g.Name)
			}
		}
		sort.Strings(overlap)
		results = append(results, &Result{
			GeneSet: s,
			N:       N,
			Query:   n,
			K:       K[j],
			Overlap: k,
			Genes:   overlap,
			PValue:  pval,
		})
	}

	sortResults(results, func(r *Result) (float64, string) { return r.PValue, r.GeneSet.ID })
	a.logger.Info("over-representation test complete",
		zap.Int("significant", len(results)),
		zap.Int("tested", numTests))
	return results, nil
}

func (a *StaticAnalysis) validate(params StaticParams) error {
	if params.PValThresh <= 0 || params.PValThresh > 1 {
		return fmt.Errorf("enrich: p-value threshold must be in (0, 1], got %g", params.PValThresh)
	}
	if params.X < 1 {
		return fmt.Errorf("enrich: X must be >= 1, got %d", params.X)
	}
	return nil
}

// restrictColumns selects the gene sets under test and the matching
// matrix columns. The restricted matrix is a copy, never a view.
func restrictColumns(coll *genesets.Collection, m *Matrix, ids []string) ([]*genesets.GeneSet, *Matrix, error) {
	if ids == nil {
		return coll.Sets(), m, nil
	}
	cols := make([]int, 0, len(ids))
	sets := make([]*genesets.GeneSet, 0, len(ids))
	for _, id := range ids {
		j, err := coll.Index(id)
		if err != nil {
			return nil, nil, fmt.Errorf("enrich: restriction to unknown gene set: %w", err)
		}
		cols = append(cols, j)
		s, _ := coll.GetByIndex(j)
		sets = append(sets, s)
	}
	return sets, m.Restrict(cols), nil
}

func sortResults[T any](results []T, key func(T) (float64, string)) {
	sort.Slice(results, func(i, j int) bool {
		pi, idi := key(results[i])
		pj, idj := key(results[j])
		if pi != pj {
			return pi < pj
		}
		return idi < idj
	})
}
