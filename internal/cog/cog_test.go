package cog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategories(t *testing.T) {
	assert.Len(t, Categories, 26)
	assert.Equal(t, "Translation, ribosomal structure and biogenesis", Categories["J"])
	assert.True(t, IsCategory("J"))
	assert.False(t, IsCategory("j"))
	assert.False(t, IsCategory("ZZ"))

	sorted := SortedCategories()
	require.Len(t, sorted, 26)
	for i := 1; i < len(sorted); i++ {
		assert.Less(t, sorted[i-1], sorted[i])
	}
}

func TestSuperCategoryOf(t *testing.T) {
	assert.Equal(t, "INFORMATION STORAGE AND PROCESSING", SuperCategoryOf("J"))
	assert.Equal(t, "METABOLISM", SuperCategoryOf("C"))
	assert.Equal(t, "POORLY CHARACTERIZED", SuperCategoryOf("S"))
	assert.Equal(t, "", SuperCategoryOf("?"))
}

func TestParseSource(t *testing.T) {
	for in, want := range map[string]Source{
		"":      SourceInfer,
		"infer": SourceInfer,
		"KEGG":  SourceKEGG,
		" file": SourceFile,
	} {
		got, err := ParseSource(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got)
	}

	_, err := ParseSource("eggnog")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eggnog")
}

func TestParseAnnotation(t *testing.T) {
	in := "# gene\tcog\n" +
		"g1\tJ\n" +
		"g2\tKL\n" +
		"g3\t-\n" +
		"g4\t\n" +
		"g5\tkJJ\n" +
		"short_line\n"
	mapping, err := ParseAnnotation(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"g1": {"J"},
		"g2": {"K", "L"},
		"g5": {"K", "J"},
	}, mapping)
}

func TestParseDefinitions(t *testing.T) {
	in := "COG0001\tH\tGlutamate-1-semialdehyde aminotransferase\themL\n" +
		"COG0513\tLKJ\tSuperfamily II DNA and RNA helicase\tsrmB\n" +
		"# comment\n"
	defs, err := ParseDefinitions(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"H"}, defs["COG0001"])
	assert.Equal(t, []string{"L", "K", "J"}, defs["COG0513"])
}

func TestFromKEGGLinks(t *testing.T) {
	links := map[string][]string{
		"g1": {"COG0001"},
		"g2": {"COG0001", "COG0513"},
		"g3": {"COG9999"}, // not in the definitions
	}
	defs := Definitions{
		"COG0001": {"H"},
		"COG0513": {"L", "K"},
	}

	mapping := FromKEGGLinks(links, defs)
	assert.Equal(t, map[string][]string{
		"g1": {"H"},
		"g2": {"H", "K", "L"},
	}, mapping)
}

func TestInferFromProducts(t *testing.T) {
	mapping := InferFromProducts(map[string]string{
		"g1": "30S ribosomal protein S1",
		"g2": "DNA-directed RNA polymerase subunit beta",
		"g3": "conserved hypothetical protein",
		"g4": "",
		"g5": "flagellar motor protein MotA",
	})

	assert.Contains(t, mapping["g1"], "J")
	assert.Contains(t, mapping["g2"], "K")
	assert.Equal(t, []string{"S"}, mapping["g3"])
	assert.NotContains(t, mapping, "g4")
	assert.Contains(t, mapping["g5"], "N")
}

func TestDistribution(t *testing.T) {
	mapping := map[string][]string{
		"g1": {"J"},
		"g2": {"J", "K"},
		"g3": {"S"},
	}
	rows := Distribution([]string{"g1", "g2", "g3", "unannotated"}, mapping, "all")
	require.Len(t, rows, 26)

	byCat := make(map[string]DistributionRow)
	for _, r := range rows {
		assert.Equal(t, "all", r.Group)
		byCat[r.Category] = r
	}

	assert.Equal(t, 2, byCat["J"].Count)
	assert.InDelta(t, 50.0, byCat["J"].Percentage, 1e-9)
	assert.Equal(t, 1, byCat["K"].Count)
	assert.Equal(t, 0, byCat["A"].Count)
	assert.Zero(t, byCat["A"].Percentage)
}

func TestDistribution_EmptyGeneList(t *testing.T) {
	rows := Distribution(nil, nil, "up")
	require.Len(t, rows, 26)
	for _, r := range rows {
		assert.Zero(t, r.Count)
		assert.Zero(t, r.Percentage)
	}
}

func TestEnrichment(t *testing.T) {
	mapping := map[string][]string{
		"g1": {"J"}, "g2": {"J"}, "g3": {"J"}, "g4": {"J"},
		"g5": {"K"}, "g6": {"K"},
		"g7": {"S"},
	}
	universe := []string{"g1", "g2", "g3", "g4", "g5", "g6", "g7", "g8", "g9", "g10"}
	subset := []string{"g1", "g2", "g3"}

	results := Enrichment(subset, universe, mapping)
	require.Len(t, results, 3) // J, K, S have background members

	top := results[0]
	assert.Equal(t, "J", top.SetID)
	assert.Equal(t, 3, top.Count)
	assert.Equal(t, 4, top.SetSize)
	assert.Equal(t, []string{"g1", "g2", "g3"}, top.Genes)

	// Categories without subset overlap are still tested.
	var sawK bool
	for _, r := range results {
		if r.SetID == "K" {
			sawK = true
			assert.Zero(t, r.Count)
		}
		assert.GreaterOrEqual(t, r.Padj, r.PValue)
	}
	assert.True(t, sawK)
}

func TestEnrichment_ClampsInfiniteOddsRatio(t *testing.T) {
	// Every J gene is in the subset, leaving an empty table cell.
	mapping := map[string][]string{"g1": {"J"}, "g2": {"J"}}
	universe := []string{"g1", "g2", "g3", "g4", "g5"}

	results := Enrichment([]string{"g1", "g2"}, universe, mapping)
	require.Len(t, results, 1)
	assert.Equal(t, 999.0, results[0].OddsRatio)
}
