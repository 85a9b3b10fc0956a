package gsea

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqworks/funcenrich/internal/deseq"
)

// testRanking builds a 40-gene ranking with scores descending from 4.0
// to -3.75. Genes g0..g4 sit at the top, g35..g39 at the bottom.
func testRanking() []deseq.RankedGene {
	ranking := make([]deseq.RankedGene, 40)
	for i := range ranking {
		ranking[i] = deseq.RankedGene{
			ID:    fmt.Sprintf("g%d", i),
			Score: 4.0 - float64(i)*0.2,
		}
	}
	return ranking
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Permutations = 200
	return cfg
}

func TestRun_TopLoadedSetHasPositiveES(t *testing.T) {
	sets := map[string][]string{
		"top": {"g0", "g1", "g2", "g3", "g4"},
	}

	results := New(testConfig()).Run(testRanking(), sets)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "top", r.Term)
	assert.Greater(t, r.ES, 0.5)
	assert.Greater(t, r.NES, 0.0)
	assert.Less(t, r.PValue, 0.05)
	assert.Equal(t, 5, r.MatchedSize)
	assert.NotEmpty(t, r.LeadingEdge)
	assert.Contains(t, r.LeadingEdge, "g0")
}

func TestRun_BottomLoadedSetHasNegativeES(t *testing.T) {
	sets := map[string][]string{
		"bottom": {"g35", "g36", "g37", "g38", "g39"},
	}

	results := New(testConfig()).Run(testRanking(), sets)
	require.Len(t, results, 1)
	assert.Less(t, results[0].ES, 0.0)
	assert.Less(t, results[0].NES, 0.0)
}

func TestRun_Deterministic(t *testing.T) {
	sets := map[string][]string{
		"top":    {"g0", "g1", "g2", "g3", "g4"},
		"spread": {"g1", "g9", "g17", "g25", "g33"},
	}

	first := New(testConfig()).Run(testRanking(), sets)
	second := New(testConfig()).Run(testRanking(), sets)
	require.Equal(t, first, second)
}

func TestRun_SetSizeBounds(t *testing.T) {
	cfg := testConfig()
	sets := map[string][]string{
		"tooSmall": {"g0", "g1"},
		"unknown":  {"x1", "x2", "x3", "x4", "x5", "x6"},
	}

	// Membership is counted after matching against the ranking, so a set
	// of unknown genes is also below the minimum.
	assert.Nil(t, New(cfg).Run(testRanking(), sets))
}

func TestRun_ShortRanking(t *testing.T) {
	short := testRanking()[:9]
	sets := map[string][]string{"top": {"g0", "g1", "g2", "g3", "g4"}}
	assert.Nil(t, New(testConfig()).Run(short, sets))
}

func TestRun_SortedByPValue(t *testing.T) {
	sets := map[string][]string{
		"top":    {"g0", "g1", "g2", "g3", "g4"},
		"spread": {"g2", "g10", "g18", "g26", "g34"},
	}

	results := New(testConfig()).Run(testRanking(), sets)
	require.Len(t, results, 2)
	assert.LessOrEqual(t, results[0].PValue, results[1].PValue)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.FDR, r.PValue)
		assert.LessOrEqual(t, r.FDR, 1.0)
	}
}

func TestEnrichmentScore_AllHitsFirst(t *testing.T) {
	// Five equal-weight hits at the top of a ten-gene ranking reach a
	// running sum of 1.0 at the last hit before any miss penalty applies.
	abs := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	es, peak := enrichmentScore([]int{0, 1, 2, 3, 4}, abs)
	assert.InDelta(t, 1.0, es, 1e-9)
	assert.Equal(t, 4, peak)
}

func TestEnrichmentScore_ZeroScores(t *testing.T) {
	abs := make([]float64, 10)
	es, _ := enrichmentScore([]int{0, 1, 2}, abs)
	assert.InDelta(t, 1.0, es, 1e-9)
}

func TestNormalize_EmptyNull(t *testing.T) {
	nes, p := normalize(0.5, []float64{-0.2, -0.4})
	assert.Zero(t, nes)
	assert.Equal(t, 1.0, p)
}
