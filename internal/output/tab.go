// Package output provides enrichment result formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/exprlab/genesettools/internal/enrich"
)

// StaticWriter writes static enrichment results in tab-delimited
// format.
type StaticWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewStaticWriter creates a new tab-delimited writer for static
// enrichment results.
func NewStaticWriter(w io.Writer) *StaticWriter {
	return &StaticWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Gene_set",
			"Name",
			"Source",
			"Universe",
			"Query",
			"Set_size",
			"Overlap",
			"P_value",
			"Overlap_genes",
		},
	}
}

// WriteHeader writes the header line.
func (sw *StaticWriter) WriteHeader() error {
	_, err := sw.w.WriteString(strings.Join(sw.columns, "\t") + "\n")
	return err
}

// Write writes a single result.
func (sw *StaticWriter) Write(r *enrich.Result) error {
	values := []string{
		r.GeneSet.ID,
		r.GeneSet.Name,
		orDash(r.GeneSet.Source),
		fmt.Sprintf("%d", r.N),
		fmt.Sprintf("%d", r.Query),
		fmt.Sprintf("%d", r.K),
		fmt.Sprintf("%d", r.Overlap),
		fmt.Sprintf("%.3e", r.PValue),
		strings.Join(r.Genes, ","),
	}
	_, err := sw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (sw *StaticWriter) Flush() error {
	return sw.w.Flush()
}

// RankWriter writes rank-based enrichment results in tab-delimited
// format.
type RankWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewRankWriter creates a new tab-delimited writer for rank-based
// enrichment results.
func NewRankWriter(w io.Writer) *RankWriter {
	return &RankWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Gene_set",
			"Name",
			"Source",
			"Universe",
			"X",
			"L",
			"Cutoff",
			"Set_size",
			"Hits_at_cutoff",
			"Statistic",
			"P_value",
			"E_score",
			"Genes",
		},
	}
}

// WriteHeader writes the header line.
func (rw *RankWriter) WriteHeader() error {
	_, err := rw.w.WriteString(strings.Join(rw.columns, "\t") + "\n")
	return err
}

// Write writes a single result.
func (rw *RankWriter) Write(r *enrich.RankResult) error {
	values := []string{
		r.GeneSet.ID,
		r.GeneSet.Name,
		orDash(r.GeneSet.Source),
		fmt.Sprintf("%d", r.N),
		fmt.Sprintf("%d", r.X),
		fmt.Sprintf("%d", r.L),
		fmt.Sprintf("%d", r.Cutoff),
		fmt.Sprintf("%d", r.K()),
		fmt.Sprintf("%d", r.KAtCutoff()),
		fmt.Sprintf("%.3e", r.Stat),
		fmt.Sprintf("%.3e", r.PValue),
		fmt.Sprintf("%.2f", r.EScore),
		strings.Join(r.Genes, ","),
	}
	_, err := rw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (rw *RankWriter) Flush() error {
	return rw.w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
