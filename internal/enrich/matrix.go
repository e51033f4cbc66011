// Package enrich implements gene set enrichment analysis: a static
// (hypergeometric) test for over-representation in an unordered query
// set, and a rank-based (XL-mHG) test for concentration near the top of
// a ranked gene list. Both engines share a precomputed gene-by-gene-set
// membership matrix.
package enrich

import (
	"github.com/exprlab/genesettools/internal/genesets"
	"github.com/exprlab/genesettools/internal/genome"
)

// Matrix is a dense binary gene-by-gene-set membership matrix: cell
// (i, j) is 1 iff gene i of the genome belongs to gene set j. It is
// built once and read-only thereafter, so it may be shared freely
// between concurrent analyses. At one byte per cell it is the most
// memory-expensive structure of the subsystem (p x m bytes).
type Matrix struct {
	rows, cols int
	data       []uint8 // row-major
}

// BuildStats carries diagnostics from a matrix build. Gene sets routinely
// reference genes outside a given analysis universe, so unknown genes are
// dropped and counted rather than treated as errors.
type BuildStats struct {
	TotalGenes   int // gene references across all gene sets
	UnknownGenes int // references that did not resolve against the genome
}

// Build constructs the membership matrix for a genome of size p and a
// collection of m gene sets. Runs in O(total genes across all sets).
func Build(g *genome.Genome, c *genesets.Collection) (*Matrix, BuildStats) {
	p, m := g.Size(), c.Size()
	mat := &Matrix{rows: p, cols: m, data: make([]uint8, p*m)}
	var stats BuildStats
	for j, s := range c.Sets() {
		for _, name := range s.Genes() {
			stats.TotalGenes++
			i, err := g.Index(name)
			if err != nil {
				stats.UnknownGenes++
				continue
			}
			mat.data[i*m+j] = 1
		}
	}
	return mat, stats
}

// Rows returns the number of genes (genome size).
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of gene sets.
func (m *Matrix) Cols() int { return m.cols }

// At returns cell (i, j).
func (m *Matrix) At(i, j int) uint8 {
	return m.data[i*m.cols+j]
}

// Restrict returns a new matrix containing only the given columns, in the
// given order. The result is always a copy, never a view into the
// original data.
func (m *Matrix) Restrict(cols []int) *Matrix {
	out := &Matrix{rows: m.rows, cols: len(cols), data: make([]uint8, m.rows*len(cols))}
	for i := 0; i < m.rows; i++ {
		src := m.data[i*m.cols : (i+1)*m.cols]
		dst := out.data[i*len(cols) : (i+1)*len(cols)]
		for jj, j := range cols {
			dst[jj] = src[j]
		}
	}
	return out
}

// ColumnSums returns the number of 1's in each column: per gene set, the
// count of its genes present in the genome.
func (m *Matrix) ColumnSums() []int {
	sums := make([]int, m.cols)
	for i := 0; i < m.rows; i++ {
		row := m.data[i*m.cols : (i+1)*m.cols]
		for j, v := range row {
			if v != 0 {
				sums[j]++
			}
		}
	}
	return sums
}

// column extracts column j for the given rows, in row order.
func (m *Matrix) column(j int, rows []int, dst []uint8) []uint8 {
	dst = dst[:0]
	for _, i := range rows {
		dst = append(dst, m.data[i*m.cols+j])
	}
	return dst
}
