// Package gsea implements preranked gene set enrichment analysis: the
// weighted Kolmogorov-Smirnov running-sum statistic with gene-label
// permutations for significance estimation.
package gsea

import (
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/seqworks/funcenrich/internal/deseq"
	"github.com/seqworks/funcenrich/internal/enrich"
)

// Defaults match the usual prerank configuration.
const (
	DefaultPermutations = 1000
	DefaultMinSetSize   = 5
	DefaultMaxSetSize   = 500
	DefaultSeed         = 42
)

// minRankedGenes is the smallest ranking worth testing.
const minRankedGenes = 10

// Config holds prerank parameters.
type Config struct {
	Permutations int
	MinSetSize   int
	MaxSetSize   int
	Seed         int64
}

// DefaultConfig returns the standard prerank configuration.
func DefaultConfig() Config {
	return Config{
		Permutations: DefaultPermutations,
		MinSetSize:   DefaultMinSetSize,
		MaxSetSize:   DefaultMaxSetSize,
		Seed:         DefaultSeed,
	}
}

// Result holds the enrichment outcome for one gene set.
type Result struct {
	Term        string
	ES          float64
	NES         float64
	PValue      float64 // nominal, permutation-based
	FDR         float64 // BH across all tested sets
	SetSize     int     // full set size
	MatchedSize int     // set members present in the ranking
	LeadingEdge []string
}

// Engine runs preranked GSEA.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a prerank engine. Zero-valued config fields fall back to
// defaults.
func New(cfg Config) *Engine {
	if cfg.Permutations <= 0 {
		cfg.Permutations = DefaultPermutations
	}
	if cfg.MinSetSize <= 0 {
		cfg.MinSetSize = DefaultMinSetSize
	}
	if cfg.MaxSetSize <= 0 {
		cfg.MaxSetSize = DefaultMaxSetSize
	}
	return &Engine{cfg: cfg, logger: zap.NewNop()}
}

// SetLogger sets the logger for progress messages.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Run scores each gene set against the ranking. The ranking must be
// sorted by score descending. Fewer than ten ranked genes or no usable
// set yields an empty result. Results are sorted by nominal p-value
// ascending, ties by |NES| descending, then term.
func (e *Engine) Run(ranking []deseq.RankedGene, sets map[string][]string) []*Result {
	n := len(ranking)
	if n < minRankedGenes || len(sets) == 0 {
		return nil
	}

	rankIndex := make(map[string]int, n)
	absScores := make([]float64, n)
	for i, g := range ranking {
		if _, ok := rankIndex[g.ID]; !ok {
			rankIndex[g.ID] = i
		}
		absScores[i] = math.Abs(g.Score)
	}

	terms := make([]string, 0, len(sets))
	for term := range sets {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	rng := rand.New(rand.NewSource(e.cfg.Seed))

	var results []*Result
	for _, term := range terms {
		members := sets[term]

		hitIdx := make([]int, 0, len(members))
		seen := make(map[int]bool)
		for _, g := range members {
			if i, ok := rankIndex[g]; ok && !seen[i] {
				seen[i] = true
				hitIdx = append(hitIdx, i)
			}
		}
		m := len(hitIdx)
		if m < e.cfg.MinSetSize || m > e.cfg.MaxSetSize {
			continue
		}
		sort.Ints(hitIdx)

		es, peak := enrichmentScore(hitIdx, absScores)

		// Null distribution from gene-label permutations.
		nullES := make([]float64, e.cfg.Permutations)
		permIdx := make([]int, m)
		for p := 0; p < e.cfg.Permutations; p++ {
			perm := rng.Perm(n)
			copy(permIdx, perm[:m])
			sort.Ints(permIdx)
			nullES[p], _ = enrichmentScore(permIdx, absScores)
		}

		nes, pval := normalize(es, nullES)

		results = append(results, &Result{
			Term:        term,
			ES:          es,
			NES:         nes,
			PValue:      pval,
			SetSize:     len(members),
			MatchedSize: m,
			LeadingEdge: leadingEdge(ranking, hitIdx, es, peak),
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
		r.FDR = adj[i]
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].PValue != results[j].PValue {
			return results[i].PValue < results[j].PValue
		}
		ni, nj := math.Abs(results[i].NES), math.Abs(results[j].NES)
		if ni != nj {
			return ni > nj
		}
		return results[i].Term < results[j].Term
	})

	e.logger.Debug("GSEA complete",
		zap.Int("tested", len(results)),
		zap.Int("ranked", n),
		zap.Int("permutations", e.cfg.Permutations))

	return results
}

// enrichmentScore computes the weighted KS running-sum statistic for a
// sorted list of hit positions. Hits step up by |score|/sum(|scores|),
// misses step down by 1/(N-m). Returns the signed maximum deviation and
// the rank position where it occurs.
func enrichmentScore(hitIdx []int, absScores []float64) (es float64, peak int) {
	n := len(absScores)
	m := len(hitIdx)

	var nr float64
	for _, i := range hitIdx {
		nr += absScores[i]
	}

	missStep := 1.0 / float64(n-m)

	var running, maxDev float64
	peak = -1
	h := 0
	for i := 0; i < n; i++ {
		if h < m && hitIdx[h] == i {
			if nr > 0 {
				running += absScores[i] / nr
			} else {
				// All-zero scores degenerate to the unweighted statistic.
				running += 1.0 / float64(m)
			}
			h++
		} else {
			running -= missStep
		}
		if math.Abs(running) > math.Abs(maxDev) {
			maxDev = running
			peak = i
		}
	}
	return maxDev, peak
}

// normalize derives NES and the nominal p-value from the same-signed
// portion of the permutation null distribution.
func normalize(es float64, nullES []float64) (nes, pval float64) {
	var sameSign []float64
	for _, v := range nullES {
		if (es >= 0 && v >= 0) || (es < 0 && v < 0) {
			sameSign = append(sameSign, math.Abs(v))
		}
	}
	if len(sameSign) == 0 {
		return 0, 1
	}

	mean := stat.Mean(sameSign, nil)
	if mean == 0 {
		return 0, 1
	}
	nes = es / mean

	extreme := 0
	for _, v := range sameSign {
		if v >= math.Abs(es) {
			extreme++
		}
	}
	pval = float64(extreme) / float64(len(sameSign))
	return nes, pval
}

// leadingEdge returns the set members driving the enrichment signal, in
// rank order: hits at or before the running-sum peak for positive ES,
// hits at or after it for negative ES.
func leadingEdge(ranking []deseq.RankedGene, hitIdx []int, es float64, peak int) []string {
	if peak < 0 {
		return nil
	}
	var edge []string
	for _, i := range hitIdx {
		if es >= 0 && i <= peak {
			edge = append(edge, ranking[i].ID)
		}
		if es < 0 && i >= peak {
			edge = append(edge, ranking[i].ID)
		}
	}
	return edge
}
