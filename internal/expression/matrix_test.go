package expression

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/exprlab/genesettools/internal/genome"
)

func newMatrix(t *testing.T) *Matrix {
	t.Helper()
	m, err := New(
		[]string{"TP53", "KRAS", "EGFR"},
		[]string{"tumor", "normal"},
		mat.NewDense(3, 2, []float64{
			5.0, 1.0,
			2.5, 2.5,
			9.0, 0.5,
		}),
	)
	require.NoError(t, err)
	return m
}

func TestNew(t *testing.T) {
	m := newMatrix(t)
	assert.Equal(t, 3, m.NumGenes())
	assert.Equal(t, 2, m.NumSamples())
	assert.Equal(t, 2.5, m.At(1, 0))
}

func TestNew_Invalid(t *testing.T) {
	_, err := New([]string{"a"}, []string{"s"}, mat.NewDense(2, 1, nil))
	assert.Error(t, err, "dimension mismatch")

	_, err = New([]string{"a", "a"}, []string{"s"}, mat.NewDense(2, 1, nil))
	assert.Error(t, err, "duplicate gene")
}

func TestNew_CopiesValues(t *testing.T) {
	src := mat.NewDense(1, 1, []float64{1})
	m, err := New([]string{"a"}, []string{"s"}, src)
	require.NoError(t, err)

	src.Set(0, 0, 99)
	assert.Equal(t, 1.0, m.At(0, 0))
}

func TestGenome(t *testing.T) {
	m := newMatrix(t)
	g, err := m.Genome()
	require.NoError(t, err)
	assert.Equal(t, []string{"TP53", "KRAS", "EGFR"}, g.Names())
}

func TestFilterGenome(t *testing.T) {
	m := newMatrix(t)
	g, err := genome.FromNames([]string{"TP53", "EGFR", "BRAF"})
	require.NoError(t, err)

	filtered, dropped, err := m.FilterGenome(g)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, []string{"TP53", "EGFR"}, filtered.Genes())
	assert.Equal(t, 9.0, filtered.At(1, 0))
}

func TestFilterGenome_NothingLeft(t *testing.T) {
	m := newMatrix(t)
	g, err := genome.FromNames([]string{"BRAF"})
	require.NoError(t, err)

	_, dropped, err := m.FilterGenome(g)
	assert.Error(t, err)
	assert.Equal(t, 3, dropped)
}

func TestRankGenes(t *testing.T) {
	m := newMatrix(t)

	ranked, err := m.RankGenes("tumor")
	require.NoError(t, err)
	assert.Equal(t, []string{"EGFR", "TP53", "KRAS"}, ranked)

	// Ties in "normal" between KRAS (2.5) and nothing else; ordering by
	// value then name.
	ranked, err = m.RankGenes("normal")
	require.NoError(t, err)
	assert.Equal(t, []string{"KRAS", "TP53", "EGFR"}, ranked)

	_, err = m.RankGenes("missing")
	assert.Error(t, err)
}

func TestTSVRoundTrip(t *testing.T) {
	m := newMatrix(t)

	var buf bytes.Buffer
	require.NoError(t, WriteTo(m, &buf))

	got, err := ReadFrom(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.Genes(), got.Genes())
	assert.Equal(t, m.Samples(), got.Samples())
	for i := 0; i < m.NumGenes(); i++ {
		for j := 0; j < m.NumSamples(); j++ {
			assert.Equal(t, m.At(i, j), got.At(i, j))
		}
	}
}

func TestReadFrom_Malformed(t *testing.T) {
	_, err := ReadFrom(strings.NewReader(""))
	assert.Error(t, err, "empty input")

	_, err = ReadFrom(strings.NewReader("gene\ts1\n"))
	assert.Error(t, err, "no data rows")

	_, err = ReadFrom(strings.NewReader("gene\ts1\nTP53\t1.0\t2.0\n"))
	assert.Error(t, err, "column count mismatch")

	_, err = ReadFrom(strings.NewReader("gene\ts1\nTP53\tnot-a-number\n"))
	assert.Error(t, err, "bad float")
}
