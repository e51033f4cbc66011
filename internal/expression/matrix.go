// Package expression provides a gene-by-sample expression matrix
// container: the usual staging point between quantified expression data
// and a ranked gene list for enrichment analysis.
package expression

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/exprlab/genesettools/internal/genome"
)

// Matrix is an immutable gene-by-sample matrix of expression values.
type Matrix struct {
	genes   []string
	samples []string
	data    *mat.Dense
	index   map[string]int
}

// New constructs a Matrix. Gene names must be distinct and the value
// matrix must be len(genes) x len(samples).
func New(genes, samples []string, values *mat.Dense) (*Matrix, error) {
	r, c := values.Dims()
	if r != len(genes) || c != len(samples) {
		return nil, fmt.Errorf("expression: value matrix is %dx%d, want %dx%d",
			r, c, len(genes), len(samples))
	}
	m := &Matrix{
		genes:   append([]string(nil), genes...),
		samples: append([]string(nil), samples...),
		data:    mat.DenseCopyOf(values),
		index:   make(map[string]int, len(genes)),
	}
	for i, g := range m.genes {
		if g == "" {
			return nil, fmt.Errorf("expression: gene at row %d has empty name", i)
		}
		if _, ok := m.index[g]; ok {
			return nil, fmt.Errorf("expression: duplicate gene name %q", g)
		}
		m.index[g] = i
	}
	return m, nil
}

// NumGenes returns the number of genes (rows).
func (m *Matrix) NumGenes() int { return len(m.genes) }

// NumSamples returns the number of samples (columns).
func (m *Matrix) NumSamples() int { return len(m.samples) }

// Genes returns the gene names in row order. The returned slice is
// shared; callers must not modify it.
func (m *Matrix) Genes() []string { return m.genes }

// Samples returns the sample names in column order. The returned slice
// is shared; callers must not modify it.
func (m *Matrix) Samples() []string { return m.samples }

// At returns the expression value at row i, column j.
func (m *Matrix) At(i, j int) float64 { return m.data.At(i, j) }

func (m *Matrix) String() string {
	return fmt.Sprintf("<expression.Matrix with %d genes, %d samples>",
		len(m.genes), len(m.samples))
}

// Genome derives the analysis universe from the matrix rows.
func (m *Matrix) Genome() (*genome.Genome, error) {
	return genome.FromNames(m.genes)
}

// FilterGenome returns a copy of the matrix restricted to genes present
// in the given universe, preserving row order, along with the number of
// rows dropped.
func (m *Matrix) FilterGenome(g *genome.Genome) (*Matrix, int, error) {
	var keep []int
	for i, name := range m.genes {
		if g.Contains(name) {
			keep = append(keep, i)
		}
	}
	dropped := len(m.genes) - len(keep)
	if len(keep) == 0 {
		return nil, dropped, fmt.Errorf("expression: no genes remain after genome filter")
	}
	genes := make([]string, len(keep))
	values := make([]float64, 0, len(keep)*len(m.samples))
	for ii, i := range keep {
		genes[ii] = m.genes[i]
		for j := range m.samples {
			values = append(values, m.data.At(i, j))
		}
	}
	out, err := New(genes, m.samples, mat.NewDense(len(keep), len(m.samples), values))
	if err != nil {
		return nil, dropped, err
	}
	return out, dropped, nil
}

// RankGenes returns all gene names ordered by descending expression in
// the named sample. Ties break by gene name so the ranking is
// deterministic.
func (m *Matrix) RankGenes(sample string) ([]string, error) {
	col := -1
	for j, s := range m.samples {
		if s == sample {
			col = j
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("expression: sample %q not found", sample)
	}
	order := make([]int, len(m.genes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := m.data.At(order[a], col), m.data.At(order[b], col)
		if va != vb {
			return va > vb
		}
		return m.genes[order[a]] < m.genes[order[b]]
	})
	ranked := make([]string, len(order))
	for i, idx := range order {
		ranked[i] = m.genes[idx]
	}
	return ranked, nil
}

// Read loads a Matrix from a tab-delimited file. Gzipped files are
// detected by extension.
func Read(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open expression file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return ReadFrom(r)
}

// ReadFrom loads a Matrix from tab-delimited text: a header row of
// [gene, sample...] followed by one row of values per gene.
func ReadFrom(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var samples []string
	var genes []string
	var values []float64
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if samples == nil {
			if len(fields) < 2 {
				return nil, fmt.Errorf("expression: header has %d columns, want >= 2", len(fields))
			}
			samples = fields[1:]
			continue
		}
		if len(fields) != len(samples)+1 {
			return nil, fmt.Errorf("expression: line %d has %d columns, want %d",
				lineNum, len(fields), len(samples)+1)
		}
		genes = append(genes, fields[0])
		for _, s := range fields[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("expression: line %d: %w", lineNum, err)
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read expression matrix: %w", err)
	}
	if samples == nil {
		return nil, fmt.Errorf("expression: empty input")
	}
	if len(genes) == 0 {
		return nil, fmt.Errorf("expression: no data rows")
	}
	return New(genes, samples, mat.NewDense(len(genes), len(samples), values))
}

// Write stores the Matrix as tab-delimited text.
func Write(m *Matrix, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create expression file: %w", err)
	}
	defer f.Close()
	if err := WriteTo(m, f); err != nil {
		return err
	}
	return f.Sync()
}

// WriteTo writes the Matrix as tab-delimited text with a header row.
func WriteTo(m *Matrix, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("gene\t" + strings.Join(m.samples, "\t") + "\n"); err != nil {
		return fmt.Errorf("write expression header: %w", err)
	}
	for i, g := range m.genes {
		row := make([]string, 0, len(m.samples)+1)
		row = append(row, g)
		for j := range m.samples {
			row = append(row, strconv.FormatFloat(m.data.At(i, j), 'g', -1, 64))
		}
		if _, err := bw.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return fmt.Errorf("write expression row: %w", err)
		}
	}
	return bw.Flush()
}
