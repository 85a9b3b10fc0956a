package deseq

import (
	"math"
	"sort"
)

// Direction selects which side of the fold change a subset covers.
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
	DirectionAll
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "all"
	}
}

// Subset returns the differentially expressed records for one direction.
// Records with a missing fold change or adjusted p-value are excluded
// before thresholding.
func (t *Table) Subset(dir Direction, padjCutoff, log2fcCutoff float64) []*Record {
	var out []*Record
	for _, r := range t.Records {
		if !r.HasLog2FoldChange() || !r.HasPadj() {
			continue
		}
		if r.Padj >= padjCutoff {
			continue
		}
		switch dir {
		case DirectionUp:
			if r.Log2FoldChange > log2fcCutoff {
				out = append(out, r)
			}
		case DirectionDown:
			if r.Log2FoldChange < -log2fcCutoff {
				out = append(out, r)
			}
		case DirectionAll:
			if math.Abs(r.Log2FoldChange) > log2fcCutoff {
				out = append(out, r)
			}
		}
	}
	return out
}

// SubsetIDs returns the gene IDs of a subset.
func (t *Table) SubsetIDs(dir Direction, padjCutoff, log2fcCutoff float64) []string {
	recs := t.Subset(dir, padjCutoff, log2fcCutoff)
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.GeneID
	}
	return ids
}

// RankedGene is one entry of a gene ranking for GSEA.
type RankedGene struct {
	ID    string
	Score float64
}

// Ranking builds the per-gene ranking metric for GSEA: log2 fold change,
// sorted descending. Records with a missing fold change are dropped. Ties
// are broken by gene ID so identical inputs always rank identically.
func (t *Table) Ranking() []RankedGene {
	var ranked []RankedGene
	for _, r := range t.Records {
		if !r.HasLog2FoldChange() {
			continue
		}
		ranked = append(ranked, RankedGene{ID: r.GeneID, Score: r.Log2FoldChange})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}
