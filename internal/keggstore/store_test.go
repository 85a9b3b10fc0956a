package keggstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_GenesRoundTrip(t *testing.T) {
	s := openTestStore(t)

	genes := map[string]string{
		"STM0001": "thrL; thr operon leader peptide",
		"STM0002": "thrA; bifunctional aspartokinase I",
	}
	require.NoError(t, s.PutGenes("stm", genes))

	got, err := s.Genes("stm")
	require.NoError(t, err)
	assert.Equal(t, genes, got)

	// Another organism is isolated.
	other, err := s.Genes("eco")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_PutGenesReplaces(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutGenes("stm", map[string]string{"a": "old"}))
	require.NoError(t, s.PutGenes("stm", map[string]string{"b": "new"}))

	got, err := s.Genes("stm")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b": "new"}, got)
}

func TestStore_PathwaysRoundTrip(t *testing.T) {
	s := openTestStore(t)

	pathways := map[string]string{
		"stm00010": "Glycolysis / Gluconeogenesis",
		"stm00020": "Citrate cycle (TCA cycle)",
	}
	require.NoError(t, s.PutPathways("stm", pathways))

	got, err := s.Pathways("stm")
	require.NoError(t, err)
	assert.Equal(t, pathways, got)
}

func TestStore_LinksRoundTrip(t *testing.T) {
	s := openTestStore(t)

	links := map[string][]string{
		"STM0001": {"stm00010"},
		"STM0002": {"stm00010", "stm00020"},
	}
	require.NoError(t, s.PutLinks("stm", DatasetPathwayLinks, links))

	got, err := s.Links("stm", DatasetPathwayLinks)
	require.NoError(t, err)
	assert.Equal(t, links, got)

	// COG links live in their own table.
	cogs, err := s.Links("stm", DatasetCOGLinks)
	require.NoError(t, err)
	assert.Empty(t, cogs)
}

func TestStore_UnknownLinkDataset(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Links("stm", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	err = s.PutLinks("stm", "nope", nil)
	require.Error(t, err)
}

func TestStore_Freshness(t *testing.T) {
	s := openTestStore(t)

	fresh, err := s.Fresh("stm", DatasetGenes, DefaultTTL)
	require.NoError(t, err)
	assert.False(t, fresh)

	require.NoError(t, s.PutGenes("stm", map[string]string{"a": "x"}))

	fetchedAt, ok, err := s.FetchedAt("stm", DatasetGenes)
	require.NoError(t, err)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().UTC(), fetchedAt, time.Minute)

	fresh, err = s.Fresh("stm", DatasetGenes, DefaultTTL)
	require.NoError(t, err)
	assert.True(t, fresh)

	// A zero TTL makes everything stale.
	fresh, err = s.Fresh("stm", DatasetGenes, 0)
	require.NoError(t, err)
	assert.False(t, fresh)
}
