package genome

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	g, err := FromNames([]string{"a", "b", "c"})
	require.NoError(t, err)

	assert.Equal(t, 3, g.Size())
	assert.True(t, g.Contains("b"))
	assert.False(t, g.Contains("z"))

	i, err := g.Index("c")
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	gene, err := g.GeneAt(0)
	require.NoError(t, err)
	assert.Equal(t, "a", gene.Name)

	assert.Equal(t, []string{"a", "b", "c"}, g.Names())
}

func TestNew_DuplicateName(t *testing.T) {
	_, err := FromNames([]string{"a", "b", "a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateGene)
}

func TestNew_EmptyName(t *testing.T) {
	_, err := New([]Gene{{Name: "a"}, {}})
	assert.Error(t, err)
}

func TestIndex_NotFound(t *testing.T) {
	g, err := FromNames([]string{"a"})
	require.NoError(t, err)

	_, err = g.Index("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGeneAt_OutOfRange(t *testing.T) {
	g, err := FromNames([]string{"a"})
	require.NoError(t, err)

	_, err = g.GeneAt(1)
	assert.Error(t, err)
	_, err = g.GeneAt(-1)
	assert.Error(t, err)
}

func TestTSVRoundTrip(t *testing.T) {
	genes := []Gene{
		{Name: "TP53", Chromosomes: []string{"17"}, EnsemblIDs: []string{"ENSG00000141510"}},
		{Name: "CRLF2", Chromosomes: []string{"X", "Y"}, EnsemblIDs: []string{"ENSG00000205755", "ENSG00000236871"}},
		{Name: "NOVEL1"},
	}
	g, err := New(genes)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTo(g, &buf))

	got, err := ReadFrom(&buf)
	require.NoError(t, err)

	require.Equal(t, g.Size(), got.Size())
	for i := 0; i < g.Size(); i++ {
		want, err := g.GeneAt(i)
		require.NoError(t, err)
		have, err := got.GeneAt(i)
		require.NoError(t, err)
		assert.Equal(t, want, have)
	}
}

func TestReadFrom_BadColumnCount(t *testing.T) {
	_, err := ReadFrom(strings.NewReader("name\tchromosomes\tensembl_ids\nTP53\t17\n"))
	assert.Error(t, err)
}

func TestReadFrom_NoHeader(t *testing.T) {
	// Header row is optional on read; bare rows still parse.
	g, err := ReadFrom(strings.NewReader("TP53\t17\t\nKRAS\t12\t\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"TP53", "KRAS"}, g.Names())
}
