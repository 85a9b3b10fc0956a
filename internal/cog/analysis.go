package cog

import (
	"math"
	"sort"

	"github.com/seqworks/funcenrich/internal/enrich"
)

// DistributionRow is one category of a COG distribution table.
type DistributionRow struct {
	Category    string
	Description string
	Count       int
	Percentage  float64 // of all category assignments in the gene list
	Group       string  // caller-supplied label, e.g. "all" or "up"
}

// Distribution counts category assignments across a gene list. Every
// category appears in the output, zero counts included. Percentages are
// of total assignments, not of genes, since one gene can carry several
// categories.
func Distribution(geneIDs []string, mapping map[string][]string, label string) []DistributionRow {
	counts := make(map[string]int)
	total := 0
	for _, gene := range geneIDs {
		for _, cat := range mapping[gene] {
			counts[cat]++
			total++
		}
	}

	rows := make([]DistributionRow, 0, len(Categories))
	for _, cat := range SortedCategories() {
		pct := 0.0
		if total > 0 {
			pct = float64(counts[cat]) / float64(total) * 100
		}
		rows = append(rows, DistributionRow{
			Category:    cat,
			Description: Categories[cat],
			Count:       counts[cat],
			Percentage:  pct,
			Group:       label,
		})
	}
	return rows
}

// Enrichment tests each COG category for over-representation of the
// subset against the background, with the same Fisher test and BH batch
// correction used for pathways. Unlike pathway ORA, a category stays in
// the tested batch with zero subset overlap as long as it has background
// members; the batch covers the fixed category universe, not an open
// pathway collection. Results are sorted by adjusted p-value ascending,
// ties by overlap count descending, then category.
func Enrichment(subset, universe []string, mapping map[string][]string) []*enrich.Result {
	universeSet := make(map[string]bool, len(universe))
	for _, g := range universe {
		universeSet[g] = true
	}
	subsetSet := make(map[string]bool, len(subset))
	for _, g := range subset {
		if universeSet[g] {
			subsetSet[g] = true
		}
	}

	N := len(universeSet)
	n := len(subsetSet)

	bgCounts := make(map[string]int)
	deCounts := make(map[string]int)
	members := make(map[string][]string)
	for g := range universeSet {
		for _, cat := range mapping[g] {
			bgCounts[cat]++
			if subsetSet[g] {
				deCounts[cat]++
				members[cat] = append(members[cat], g)
			}
		}
	}

	var results []*enrich.Result
	for _, cat := range SortedCategories() {
		K := bgCounts[cat]
		if K < 1 {
			continue
		}
		k := deCounts[cat]

		oddsRatio, p := enrich.FisherGreater(k, n, K, N)
		if math.IsInf(oddsRatio, 1) {
			oddsRatio = 999.0
		}

		overlap := append([]string(nil), members[cat]...)
		sort.Strings(overlap)

		results = append(results, &enrich.Result{
			SetID:       cat,
			Description: Categories[cat],
			Count:       k,
			SetSize:     K,
			SubsetSize:  n,
			Universe:    N,
			PValue:      p,
			OddsRatio:   oddsRatio,
			Genes:       overlap,
		})
	}

	if len(results) == 0 {
		return nil
	}

	pvals := make([]float64, len(results))
	for i, r := range results {
		pvals[i] = r.PValue
	}
	adj := enrich.BenjaminiHochberg(pvals)
	for i, r := range results {
		r.Padj = adj[i]
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Padj != results[j].Padj {
			return results[i].Padj < results[j].Padj
		}
		if results[i].Count != results[j].Count {
			return results[i].Count > results[j].Count
		}
		return results[i].SetID < results[j].SetID
	})

	return results
}
