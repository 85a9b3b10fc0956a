// Package enrich implements over-representation analysis with Fisher's
// exact test and Benjamini-Hochberg multiple-testing correction.
package enrich

import (
	"math"

	fet "github.com/glycerine/golang-fisher-exact"
)

// Result holds one tested gene set. The same schema serves KEGG pathway
// and COG category enrichment.
type Result struct {
	SetID       string
	Description string
	Count       int      // overlap between test subset and set
	SetSize     int      // set members within the universe
	SubsetSize  int      // size of the test subset
	Universe    int      // size of the background universe
	PValue      float64
	Padj        float64
	OddsRatio   float64
	Genes       []string // overlap members, sorted
}

// FoldEnrichment returns (k/n)/(K/N), or 0 when undefined.
func (r *Result) FoldEnrichment() float64 {
	if r.SubsetSize == 0 || r.Universe == 0 || r.SetSize == 0 {
		return 0
	}
	return (float64(r.Count) / float64(r.SubsetSize)) /
		(float64(r.SetSize) / float64(r.Universe))
}

// FisherGreater runs a one-sided (greater) Fisher's exact test on the
// 2x2 table for k overlapping genes out of a subset of n, against a set
// of K genes in a universe of N.
func FisherGreater(k, n, K, N int) (oddsRatio, p float64) {
	n11 := k
	n12 := n - k
	n21 := K - k
	n22 := N - K - n + k
	if n22 < 0 {
		n22 = 0
	}

	_, _, rightp, _ := fet.FisherExactTest(n11, n12, n21, n22)

	if n12 == 0 || n21 == 0 {
		oddsRatio = math.Inf(1)
	} else {
		oddsRatio = (float64(n11) * float64(n22)) / (float64(n12) * float64(n21))
	}
	return oddsRatio, rightp
}
