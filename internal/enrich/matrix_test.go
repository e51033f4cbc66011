package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exprlab/genesettools/internal/genesets"
	"github.com/exprlab/genesettools/internal/genome"
)

func testGenome(t *testing.T, names ...string) *genome.Genome {
	t.Helper()
	g, err := genome.FromNames(names)
	require.NoError(t, err)
	return g
}

func testCollection(t *testing.T, sets ...*genesets.GeneSet) *genesets.Collection {
	t.Helper()
	c, err := genesets.NewCollection(sets)
	require.NoError(t, err)
	return c
}

func testSet(t *testing.T, id string, genes ...string) *genesets.GeneSet {
	t.Helper()
	s, err := genesets.New(id, id, genes)
	require.NoError(t, err)
	return s
}

func TestBuild(t *testing.T) {
	g := testGenome(t, "a", "b", "c", "d", "e", "f")
	c := testCollection(t,
		testSet(t, "S1", "a", "b", "c"),
		testSet(t, "S2", "c", "d"),
	)

	m, stats := Build(g, c)

	assert.Equal(t, 6, m.Rows())
	assert.Equal(t, 2, m.Cols())
	assert.Zero(t, stats.UnknownGenes)
	assert.Equal(t, 5, stats.TotalGenes)

	// Cell (i, j) must agree with set membership for every gene.
	for i := 0; i < m.Rows(); i++ {
		gene, err := g.GeneAt(i)
		require.NoError(t, err)
		for j := 0; j < m.Cols(); j++ {
			s, err := c.GetByIndex(j)
			require.NoError(t, err)
			want := uint8(0)
			if s.Contains(gene.Name) {
				want = 1
			}
			assert.Equal(t, want, m.At(i, j), "cell (%d,%d)", i, j)
		}
	}
}

func TestBuild_UnknownGenesCounted(t *testing.T) {
	g := testGenome(t, "a", "b")
	c := testCollection(t, testSet(t, "S1", "a", "nope", "alsono"))

	m, stats := Build(g, c)

	assert.Equal(t, 2, stats.UnknownGenes)
	assert.Equal(t, 3, stats.TotalGenes)
	assert.Equal(t, uint8(1), m.At(0, 0))
	assert.Equal(t, uint8(0), m.At(1, 0))
}

func TestMatrix_ColumnSums(t *testing.T) {
	g := testGenome(t, "a", "b", "c", "d")
	c := testCollection(t,
		testSet(t, "S1", "a", "b", "c"),
		testSet(t, "S2", "d"),
	)
	m, _ := Build(g, c)

	assert.Equal(t, []int{3, 1}, m.ColumnSums())
}

func TestMatrix_Restrict(t *testing.T) {
	g := testGenome(t, "a", "b", "c")
	c := testCollection(t,
		testSet(t, "S1", "a"),
		testSet(t, "S2", "b"),
		testSet(t, "S3", "c"),
	)
	m, _ := Build(g, c)

	r := m.Restrict([]int{2, 0})
	assert.Equal(t, 3, r.Rows())
	assert.Equal(t, 2, r.Cols())
	assert.Equal(t, uint8(1), r.At(2, 0), "first restricted column is S3")
	assert.Equal(t, uint8(1), r.At(0, 1), "second restricted column is S1")

	// Restrict copies: mutating the restriction must not leak back.
	r.data[0] = 1
	assert.Equal(t, uint8(0), m.At(0, 2), "original matrix unchanged")
}
