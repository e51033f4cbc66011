package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRankFixture(t *testing.T) *RankBasedAnalysis {
	t.Helper()
	g := testGenome(t, "a", "b", "c", "d", "e", "f")
	c := testCollection(t, testSet(t, "S1", "a", "b", "c"))
	return NewRankBased(g, c)
}

func rankParams() RankParams {
	return RankParams{
		PValThresh: 0.5,
		XFrac:      0,
		XMin:       1,
		L:          6,
	}
}

func TestRank_PerfectRanking(t *testing.T) {
	// All of S1 on top: stat = 1/C(6,3) = 0.05, attained at rank 3,
	// and the exact p-value equals the statistic.
	a := newRankFixture(t)

	p := rankParams()
	p.L = 4
	results, err := a.Test([]string{"a", "b", "c", "d", "e", "f"}, p)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "S1", r.GeneSet.ID)
	assert.Equal(t, 6, r.N)
	assert.Equal(t, 4, r.L)
	assert.Equal(t, 1, r.X)
	assert.InDelta(t, 0.05, r.Stat, 1e-12)
	assert.Equal(t, 3, r.Cutoff)
	assert.InDelta(t, 0.05, r.PValue, 1e-12)
	assert.Equal(t, []int{0, 1, 2}, r.Indices)
	assert.Equal(t, []string{"a", "b", "c"}, r.Genes)
	assert.Equal(t, 3, r.K())
	assert.Equal(t, 3, r.KAtCutoff())
	assert.InDelta(t, 2.0, r.EScore, 1e-12, "3 of 3 hits in the top half of 6")
}

func TestRank_UnresolvedPrefixGeneShrinksCutoff(t *testing.T) {
	// The 3rd-ranked gene is unknown and sits inside the top-L window,
	// so the effective cutoff must drop from 5 to 4.
	a := newRankFixture(t)

	p := rankParams()
	p.L = 5
	results, err := a.Test([]string{"a", "b", "UNKNOWN", "c", "d", "e", "f"}, p)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 4, results[0].L)
	assert.Equal(t, 6, results[0].N)
}

func TestRank_UnresolvedSuffixGeneKeepsCutoff(t *testing.T) {
	a := newRankFixture(t)

	p := rankParams()
	p.L = 3
	results, err := a.Test([]string{"a", "b", "c", "d", "UNKNOWN", "e", "f"}, p)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].L, "drops at rank >= L leave the cutoff alone")
}

func TestRank_FullListCutoff(t *testing.T) {
	// L = N: the whole ranked list is above the cutoff.
	a := newRankFixture(t)

	results, err := a.Test([]string{"a", "b", "c", "d", "e", "f"}, rankParams())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 6, results[0].L)
	assert.InDelta(t, 0.05, results[0].PValue, 1e-12)
}

func TestRank_TooFewAboveCutoffSkipped(t *testing.T) {
	// All set genes rank below the cutoff: the set counts as tested but
	// the combinatorial test is skipped and nothing is returned.
	a := newRankFixture(t)

	p := rankParams()
	p.L = 2
	results, err := a.Test([]string{"d", "e", "f", "a", "b", "c"}, p)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRank_XMinGate(t *testing.T) {
	// XMin above K: the set is never tested.
	a := newRankFixture(t)

	p := rankParams()
	p.XMin = 4
	results, err := a.Test([]string{"a", "b", "c", "d", "e", "f"}, p)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRank_XFracScalesThreshold(t *testing.T) {
	// K=3 and XFrac=0.9: X = max(1, ceil(2.7)) = 3, so the statistic
	// can only be attained once all three set genes have appeared.
	a := newRankFixture(t)

	p := rankParams()
	p.XFrac = 0.9
	p.L = 4
	results, err := a.Test([]string{"a", "b", "c", "d", "e", "f"}, p)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].X)
	assert.Equal(t, 3, results[0].Cutoff)
}

func TestRank_Bonferroni(t *testing.T) {
	g := testGenome(t, "a", "b", "c", "d", "e", "f")
	c := testCollection(t,
		testSet(t, "S1", "a", "b", "c"),
		testSet(t, "S2", "d", "e", "f"),
	)
	a := NewRankBased(g, c)

	// S1 reaches p=0.05 at L=4; S2 never does. Both are tested, so the
	// adjusted threshold is 0.08/2 = 0.04, excluding S1.
	p := rankParams()
	p.L = 4
	p.PValThresh = 0.08
	p.AdjustPValThresh = true
	results, err := a.Test([]string{"a", "b", "c", "d", "e", "f"}, p)
	require.NoError(t, err)
	assert.Empty(t, results)

	p.AdjustPValThresh = false
	results, err = a.Test([]string{"a", "b", "c", "d", "e", "f"}, p)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "S1", results[0].GeneSet.ID)
}

func TestRank_EmptyRanking(t *testing.T) {
	a := newRankFixture(t)

	results, err := a.Test(nil, rankParams())
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = a.Test([]string{"NOPE1", "NOPE2"}, rankParams())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRank_DuplicateRankedGene(t *testing.T) {
	a := newRankFixture(t)

	_, err := a.Test([]string{"a", "b", "a"}, rankParams())
	assert.Error(t, err)
}

func TestRank_InvalidParams(t *testing.T) {
	a := newRankFixture(t)
	ranked := []string{"a", "b", "c"}

	p := rankParams()
	p.PValThresh = 0
	_, err := a.Test(ranked, p)
	assert.Error(t, err)

	p = rankParams()
	p.XFrac = 1.5
	_, err = a.Test(ranked, p)
	assert.Error(t, err)

	p = rankParams()
	p.XMin = 0
	_, err = a.Test(ranked, p)
	assert.Error(t, err)

	p = rankParams()
	p.L = 0
	_, err = a.Test(ranked, p)
	assert.Error(t, err)

	p = rankParams()
	p.L = 7 // larger than the universe
	_, err = a.Test(ranked, p)
	assert.Error(t, err)

	p = rankParams()
	p.GeneSetIDs = []string{"NO_SUCH_SET"}
	_, err = a.Test(ranked, p)
	assert.Error(t, err)
}

func TestRank_ParallelMatchesSerial(t *testing.T) {
	g := testGenome(t, "a", "b", "c", "d", "e", "f", "g", "h")
	c := testCollection(t,
		testSet(t, "S1", "a", "b", "c"),
		testSet(t, "S2", "a", "d", "g"),
		testSet(t, "S3", "f", "g", "h"),
		testSet(t, "S4", "b", "e"),
	)
	a := NewRankBased(g, c)
	ranked := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	p := RankParams{PValThresh: 0.9, XFrac: 0.1, XMin: 1, L: 5}
	serial, err := a.Test(ranked, p)
	require.NoError(t, err)

	p.Workers = 4
	parallel, err := a.Test(ranked, p)
	require.NoError(t, err)

	require.Len(t, parallel, len(serial))
	for i := range serial {
		assert.True(t, serial[i].Equal(parallel[i]))
	}
}

func TestRank_EScoreFallbackIsRecorded(t *testing.T) {
	a := newRankFixture(t)

	p := rankParams()
	p.L = 4
	results, err := a.Test([]string{"a", "b", "c", "d", "e", "f"}, p)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, p.PValThresh, results[0].EScorePValThresh,
		"primary threshold reused when no E-score threshold is set")

	p.EScorePValThresh = 0.25
	results, err = a.Test([]string{"a", "b", "c", "d", "e", "f"}, p)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.25, results[0].EScorePValThresh)
}
