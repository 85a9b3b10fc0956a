package enrich

import (
	"sort"

	"go.uber.org/zap"
)

// Default set-size bounds for pathway ORA.
const (
	DefaultMinSetSize = 3
	DefaultMaxSetSize = 500
)

// ORA runs over-representation analysis for named gene sets.
type ORA struct {
	MinSetSize int
	MaxSetSize int
	logger     *zap.Logger
}

// NewORA creates an ORA engine with default set-size bounds.
func NewORA() *ORA {
	return &ORA{
		MinSetSize: DefaultMinSetSize,
		MaxSetSize: DefaultMaxSetSize,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for progress and warning messages.
func (o *ORA) SetLogger(l *zap.Logger) {
	o.logger = l
}

// Run tests each gene set for over-representation of the subset within
// the universe. Sets are restricted to universe members before sizing.
// Sets with zero overlap never enter the tested batch, so they consume
// no correction slot. All tested sets of one invocation form one
// Benjamini-Hochberg batch. Results are sorted by adjusted p-value
// ascending, ties by overlap count descending, then set ID.
func (o *ORA) Run(subset []string, universe []string, sets map[string][]string, names map[string]string) []*Result {
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

	// Deterministic iteration over sets.
	setIDs := make([]string, 0, len(sets))
	for id := range sets {
		setIDs = append(setIDs, id)
	}
	sort.Strings(setIDs)

	var results []*Result
	for _, id := range setIDs {
		members := make(map[string]bool)
		for _, g := range sets[id] {
			if universeSet[g] {
				members[g] = true
			}
		}

		K := len(members)
		if K < o.MinSetSize || K > o.MaxSetSize {
			continue
		}

		var overlap []string
		for g := range members {
			if subsetSet[g] {
				overlap = append(overlap, g)
			}
		}
		k := len(overlap)
		if k == 0 {
			continue
		}
		sort.Strings(overlap)

		oddsRatio, p := FisherGreater(k, n, K, N)

		desc := names[id]
		if desc == "" {
			desc = id
		}
		results = append(results, &Result{
			SetID:       id,
			Description: desc,
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
	adj := BenjaminiHochberg(pvals)
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

	o.logger.Debug("ORA complete",
		zap.Int("tested", len(results)),
		zap.Int("subset", n),
		zap.Int("universe", N))

	return results
}
