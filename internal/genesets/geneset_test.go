package genesets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSet(t *testing.T, id, name string, genes ...string) *GeneSet {
	t.Helper()
	s, err := New(id, name, genes)
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	s := mustSet(t, "S1", "cell cycle", "CDK1", "CCNB1", "CDK1", "AURKA")

	assert.Equal(t, 3, s.Size(), "duplicate genes collapse")
	assert.Equal(t, []string{"AURKA", "CCNB1", "CDK1"}, s.Genes(), "genes kept sorted")
	assert.True(t, s.Contains("CDK1"))
	assert.False(t, s.Contains("TP53"))
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("", "name", []string{"a"})
	assert.Error(t, err, "empty ID")

	_, err = New("S1", "", []string{"a"})
	assert.Error(t, err, "empty name")

	_, err = New("S1", "name", nil)
	assert.Error(t, err, "no genes")

	_, err = New("S1", "name", []string{""})
	assert.Error(t, err, "only blank genes")
}

func TestGeneSet_Equal(t *testing.T) {
	a := mustSet(t, "S1", "name", "x", "y")
	b := mustSet(t, "S1", "name", "y", "x")
	c := mustSet(t, "S1", "name", "x", "z")

	assert.True(t, a.Equal(b), "gene order does not matter")
	assert.False(t, a.Equal(c))

	b.Description = "annotated"
	assert.False(t, a.Equal(b), "metadata is part of identity")
}

func TestNewCollection(t *testing.T) {
	s1 := mustSet(t, "S1", "first", "a", "b")
	s2 := mustSet(t, "S2", "second", "c")
	c, err := NewCollection([]*GeneSet{s1, s2})
	require.NoError(t, err)

	assert.Equal(t, 2, c.Size())
	assert.Equal(t, []string{"S1", "S2"}, c.IDs())

	got, err := c.GetByID("S2")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name)

	got, err = c.GetByIndex(0)
	require.NoError(t, err)
	assert.Equal(t, "S1", got.ID)

	i, err := c.Index("S2")
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestNewCollection_DuplicateID(t *testing.T) {
	a := mustSet(t, "dup", "first", "a")
	b := mustSet(t, "dup", "second", "b")

	_, err := NewCollection([]*GeneSet{a, b})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestCollection_NotFound(t *testing.T) {
	c, err := NewCollection([]*GeneSet{mustSet(t, "S1", "only", "a")})
	require.NoError(t, err)

	_, err = c.GetByID("S9")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Index("S9")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetByIndex(5)
	assert.Error(t, err)
}
