// Package pipeline orchestrates the full enrichment analysis: KEGG data
// acquisition, ID mapping, pathway ORA, GSEA prerank, and COG analysis.
// The same pipeline backs the run command and the HTTP server.
package pipeline

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seqworks/funcenrich/internal/cog"
	"github.com/seqworks/funcenrich/internal/deseq"
	"github.com/seqworks/funcenrich/internal/enrich"
	"github.com/seqworks/funcenrich/internal/gsea"
	"github.com/seqworks/funcenrich/internal/kegg"
	"github.com/seqworks/funcenrich/internal/keggstore"
)

// Params holds the user-facing analysis configuration.
type Params struct {
	Organism     string
	PadjCutoff   float64
	Log2FCCutoff float64
	MinSetSize   int
	MaxSetSize   int
	Permutations int
	Seed         int64
	COGSource    cog.Source
	COGFile      string              // annotation table for cog.SourceFile
	COGMapping   map[string][]string // pre-parsed annotation, takes precedence over COGFile
	COGDefsFile  string              // COG definition table for cog.SourceKEGG
	Offline      bool
	CacheTTL     time.Duration
}

// DefaultParams returns the built-in defaults.
func DefaultParams() Params {
	return Params{
		PadjCutoff:   0.05,
		Log2FCCutoff: 1.0,
		MinSetSize:   enrich.DefaultMinSetSize,
		MaxSetSize:   enrich.DefaultMaxSetSize,
		Permutations: gsea.DefaultPermutations,
		Seed:         gsea.DefaultSeed,
		COGSource:    cog.SourceInfer,
		CacheTTL:     keggstore.DefaultTTL,
	}
}

// KEGGData bundles the per-organism tables the engines consume.
type KEGGData struct {
	Genes        map[string]string
	Pathways     map[string]string
	PathwayLinks map[string][]string
	COGLinks     map[string][]string
}

// Results collects every table the analysis produces.
type Results struct {
	Table   *deseq.Table
	UpIDs   []string
	DownIDs []string
	AllIDs  []string

	Mapping map[string]string // input gene ID -> KEGG gene ID

	ORAUp   []*enrich.Result
	ORADown []*enrich.Result
	ORAAll  []*enrich.Result

	GSEA []*gsea.Result

	COGMapping      map[string][]string
	COGDistribution []cog.DistributionRow // all/up/down concatenated
	COGUp           []*enrich.Result
	COGDown         []*enrich.Result
	COGAll          []*enrich.Result

	Warnings []string
}

// Pipeline wires the KEGG client, the cache store, and the engines.
// Client and store may each be nil: no client means offline-only, no
// store means network-only.
type Pipeline struct {
	client *kegg.Client
	store  *keggstore.Store
	logger *zap.Logger
}

// New creates a pipeline.
func New(client *kegg.Client, store *keggstore.Store) *Pipeline {
	return &Pipeline{client: client, store: store, logger: zap.NewNop()}
}

// SetLogger sets the logger for progress and warning messages.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
	if p.client != nil {
		p.client.SetLogger(l)
	}
}

// FetchKEGG acquires the organism tables, store first when fresh, then
// network with write-back, then stale store data as a last resort.
// Partial failures degrade to empty tables with a warning; only a fully
// missing pathway universe is fatal to the caller.
func (p *Pipeline) FetchKEGG(params Params) (*KEGGData, []string, error) {
	var warnings []string

	genes, w := p.fetchDataset(params, keggstore.DatasetGenes)
	warnings = append(warnings, w...)
	pathways, w := p.fetchDataset(params, keggstore.DatasetPathways)
	warnings = append(warnings, w...)
	pathwayLinks, w := p.fetchLinkDataset(params, keggstore.DatasetPathwayLinks)
	warnings = append(warnings, w...)

	var cogLinks map[string][]string
	if params.COGSource == cog.SourceKEGG {
		cogLinks, w = p.fetchLinkDataset(params, keggstore.DatasetCOGLinks)
		warnings = append(warnings, w...)
	}

	if len(pathways) == 0 || len(pathwayLinks) == 0 {
		return nil, warnings, fmt.Errorf("KEGG pathway data unavailable for organism %q", params.Organism)
	}

	return &KEGGData{
		Genes:        genes,
		Pathways:     pathways,
		PathwayLinks: pathwayLinks,
		COGLinks:     cogLinks,
	}, warnings, nil
}

func (p *Pipeline) fetchDataset(params Params, dataset string) (map[string]string, []string) {
	org := params.Organism

	if cached, ok := p.cachedFlat(org, dataset, params.CacheTTL); ok {
		return cached, nil
	}

	if !params.Offline && p.client != nil {
		var data map[string]string
		var err error
		switch dataset {
		case keggstore.DatasetGenes:
			data, err = p.client.ListGenes(org)
		case keggstore.DatasetPathways:
			data, err = p.client.ListPathways(org)
		}
		if err == nil {
			p.writeBackFlat(org, dataset, data)
			return data, nil
		}
		p.logger.Warn("KEGG fetch failed, falling back to cache",
			zap.String("dataset", dataset), zap.Error(err))
	}

	// Stale cache beats nothing.
	stale, warnings := p.staleFlat(org, dataset)
	return stale, warnings
}

func (p *Pipeline) fetchLinkDataset(params Params, dataset string) (map[string][]string, []string) {
	org := params.Organism

	if p.store != nil {
		if fresh, err := p.store.Fresh(org, dataset, params.CacheTTL); err == nil && fresh {
			if links, err := p.store.Links(org, dataset); err == nil {
				return links, nil
			}
		}
	}

	if !params.Offline && p.client != nil {
		var links map[string][]string
		var err error
		switch dataset {
		case keggstore.DatasetPathwayLinks:
			links, err = p.client.LinkPathways(org)
		case keggstore.DatasetCOGLinks:
			links, err = p.client.LinkCOGs(org)
		}
		if err == nil {
			if p.store != nil {
				if err := p.store.PutLinks(org, dataset, links); err != nil {
					p.logger.Warn("cache write-back failed",
						zap.String("dataset", dataset), zap.Error(err))
				}
			}
			return links, nil
		}
		p.logger.Warn("KEGG fetch failed, falling back to cache",
			zap.String("dataset", dataset), zap.Error(err))
	}

	if p.store != nil {
		if links, err := p.store.Links(org, dataset); err == nil && len(links) > 0 {
			return links, []string{fmt.Sprintf("using stale cached %s for %s", dataset, org)}
		}
	}
	return nil, []string{fmt.Sprintf("%s unavailable for %s", dataset, org)}
}

func (p *Pipeline) cachedFlat(org, dataset string, ttl time.Duration) (map[string]string, bool) {
	if p.store == nil {
		return nil, false
	}
	fresh, err := p.store.Fresh(org, dataset, ttl)
	if err != nil || !fresh {
		return nil, false
	}
	data, err := p.readFlat(org, dataset)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (p *Pipeline) staleFlat(org, dataset string) (map[string]string, []string) {
	if p.store != nil {
		if data, err := p.readFlat(org, dataset); err == nil && len(data) > 0 {
			return data, []string{fmt.Sprintf("using stale cached %s for %s", dataset, org)}
		}
	}
	return nil, []string{fmt.Sprintf("%s unavailable for %s", dataset, org)}
}

func (p *Pipeline) readFlat(org, dataset string) (map[string]string, error) {
	switch dataset {
	case keggstore.DatasetGenes:
		return p.store.Genes(org)
	case keggstore.DatasetPathways:
		return p.store.Pathways(org)
	}
	return nil, fmt.Errorf("unknown dataset %q", dataset)
}

func (p *Pipeline) writeBackFlat(org, dataset string, data map[string]string) {
	if p.store == nil {
		return
	}
	var err error
	switch dataset {
	case keggstore.DatasetGenes:
		err = p.store.PutGenes(org, data)
	case keggstore.DatasetPathways:
		err = p.store.PutPathways(org, data)
	}
	if err != nil {
		p.logger.Warn("cache write-back failed",
			zap.String("dataset", dataset), zap.Error(err))
	}
}

// Run executes the full analysis over a parsed table.
func (p *Pipeline) Run(t *deseq.Table, params Params) (*Results, error) {
	res := &Results{Table: t}

	res.UpIDs = t.SubsetIDs(deseq.DirectionUp, params.PadjCutoff, params.Log2FCCutoff)
	res.DownIDs = t.SubsetIDs(deseq.DirectionDown, params.PadjCutoff, params.Log2FCCutoff)
	res.AllIDs = t.SubsetIDs(deseq.DirectionAll, params.PadjCutoff, params.Log2FCCutoff)

	p.logger.Info("DE subsets selected",
		zap.Int("up", len(res.UpIDs)),
		zap.Int("down", len(res.DownIDs)),
		zap.Int("all", len(res.AllIDs)),
		zap.Float64("padj_cutoff", params.PadjCutoff),
		zap.Float64("log2fc_cutoff", params.Log2FCCutoff))

	data, warnings, err := p.FetchKEGG(params)
	res.Warnings = append(res.Warnings, warnings...)
	if err != nil {
		return nil, err
	}

	allIDs := t.GeneIDs()

	// ID mapping. Without a KEGG gene list the input IDs are used as-is,
	// which works when they already are KEGG locus tags.
	if len(data.Genes) > 0 {
		mapper := kegg.NewMapper(data.Genes)
		res.Mapping = mapper.MapAll(allIDs, t.GeneNameMap(), t.ProductMap())
		p.logger.Info("gene IDs mapped to KEGG",
			zap.Int("mapped", len(res.Mapping)),
			zap.Int("total", len(allIDs)))
	} else {
		res.Mapping = identityMapping(allIDs)
		res.Warnings = append(res.Warnings, "KEGG gene list unavailable, using input IDs unmapped")
	}

	pathwaySets := invertLinks(data.PathwayLinks)

	ora := enrich.NewORA()
	ora.MinSetSize = params.MinSetSize
	ora.MaxSetSize = params.MaxSetSize
	ora.SetLogger(p.logger)

	universe := kegg.MappedIDs(allIDs, res.Mapping)
	res.ORAUp = ora.Run(kegg.MappedIDs(res.UpIDs, res.Mapping), universe, pathwaySets, data.Pathways)
	res.ORADown = ora.Run(kegg.MappedIDs(res.DownIDs, res.Mapping), universe, pathwaySets, data.Pathways)
	res.ORAAll = ora.Run(kegg.MappedIDs(res.AllIDs, res.Mapping), universe, pathwaySets, data.Pathways)

	// GSEA over the full ranking, gene sets keyed by pathway name.
	engine := gsea.New(gsea.Config{
		Permutations: params.Permutations,
		MinSetSize:   params.MinSetSize,
		MaxSetSize:   params.MaxSetSize,
		Seed:         params.Seed,
	})
	engine.SetLogger(p.logger)
	res.GSEA = engine.Run(mapRanking(t.Ranking(), res.Mapping), namedSets(pathwaySets, data.Pathways))

	if err := p.runCOG(t, params, data, res); err != nil {
		return nil, err
	}

	return res, nil
}

// runCOG resolves the category mapping with the requested strategy and
// computes distribution plus per-direction enrichment.
func (p *Pipeline) runCOG(t *deseq.Table, params Params, data *KEGGData, res *Results) error {
	var mapping map[string][]string

	switch params.COGSource {
	case cog.SourceFile:
		if params.COGMapping != nil {
			mapping = params.COGMapping
		} else {
			m, err := cog.LoadAnnotationFile(params.COGFile)
			if err != nil {
				return fmt.Errorf("load COG annotation: %w", err)
			}
			mapping = m
		}
	case cog.SourceKEGG:
		mapping = p.cogFromKEGG(params, data, res)
		if len(mapping) == 0 {
			res.Warnings = append(res.Warnings, "no COG assignments from KEGG, falling back to product inference")
			mapping = cog.InferFromProducts(t.ProductMap())
		}
	default:
		mapping = cog.InferFromProducts(t.ProductMap())
	}

	res.COGMapping = mapping
	p.logger.Info("COG categories assigned",
		zap.String("source", string(params.COGSource)),
		zap.Int("genes", len(mapping)))

	allIDs := t.GeneIDs()
	res.COGDistribution = append(res.COGDistribution, cog.Distribution(allIDs, mapping, "all")...)
	res.COGDistribution = append(res.COGDistribution, cog.Distribution(res.UpIDs, mapping, "up")...)
	res.COGDistribution = append(res.COGDistribution, cog.Distribution(res.DownIDs, mapping, "down")...)

	res.COGUp = cog.Enrichment(res.UpIDs, allIDs, mapping)
	res.COGDown = cog.Enrichment(res.DownIDs, allIDs, mapping)
	res.COGAll = cog.Enrichment(res.AllIDs, allIDs, mapping)

	return nil
}

// cogFromKEGG turns KEGG gene-to-COG links into category assignments
// keyed by input gene IDs.
func (p *Pipeline) cogFromKEGG(params Params, data *KEGGData, res *Results) map[string][]string {
	if len(data.COGLinks) == 0 {
		return nil
	}

	defs := cog.Definitions{}
	if params.COGDefsFile != "" {
		loaded, err := cog.LoadDefinitions(params.COGDefsFile)
		if err != nil {
			p.logger.Warn("COG definitions unavailable", zap.Error(err))
		} else {
			defs = loaded
		}
	}
	if len(defs) == 0 {
		return nil
	}

	byKEGGID := cog.FromKEGGLinks(data.COGLinks, defs)

	// Re-key from KEGG gene IDs back to input gene IDs.
	reverse := make(map[string]string, len(res.Mapping))
	for input, kid := range res.Mapping {
		if _, ok := reverse[kid]; !ok {
			reverse[kid] = input
		}
	}
	mapping := make(map[string][]string)
	for kid, cats := range byKEGGID {
		if input, ok := reverse[kid]; ok {
			mapping[input] = cats
		}
	}
	return mapping
}

func identityMapping(ids []string) map[string]string {
	m := make(map[string]string, len(ids))
	for _, id := range ids {
		m[id] = id
	}
	return m
}

// invertLinks turns gene -> pathways into pathway -> genes.
func invertLinks(links map[string][]string) map[string][]string {
	sets := make(map[string][]string)
	for gene, pws := range links {
		for _, pw := range pws {
			sets[pw] = append(sets[pw], gene)
		}
	}
	return sets
}

// namedSets re-keys pathway sets by pathway name for GSEA output.
func namedSets(sets map[string][]string, names map[string]string) map[string][]string {
	named := make(map[string][]string, len(sets))
	for id, genes := range sets {
		name := names[id]
		if name == "" {
			name = id
		}
		named[name] = append(named[name], genes...)
	}
	return named
}

// mapRanking applies the ID mapping to a ranking, keeping unmapped IDs
// as-is and dropping later duplicates of an already ranked gene.
func mapRanking(ranking []deseq.RankedGene, mapping map[string]string) []deseq.RankedGene {
	out := make([]deseq.RankedGene, 0, len(ranking))
	seen := make(map[string]bool, len(ranking))
	for _, g := range ranking {
		id := g.ID
		if mapped, ok := mapping[id]; ok {
			id = mapped
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, deseq.RankedGene{ID: id, Score: g.Score})
	}
	return out
}
