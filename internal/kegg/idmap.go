package kegg

import (
	"sort"
	"strings"
)

// Mapper resolves local gene identifiers (locus tags, symbols) to KEGG
// gene IDs for one organism. Lookups are memoized so each input ID is
// resolved at most once per session.
type Mapper struct {
	genes       map[string]string // KEGG gene ID -> description
	idsLower    map[string]string // lowercased KEGG gene ID -> KEGG gene ID
	symbolToID  map[string]string // lowercased gene symbol -> KEGG gene ID
	productToID []productEntry    // lowercased product -> KEGG gene ID, sorted
	memo        map[string]string
	misses      map[string]bool
}

type productEntry struct {
	product string
	id      string
}

// NewMapper builds a mapper from the KEGG gene list of an organism.
// KEGG descriptions carry the gene symbol before the first semicolon
// ("thrA; bifunctional aspartokinase I") and the product after it.
func NewMapper(genes map[string]string) *Mapper {
	m := &Mapper{
		genes:      genes,
		idsLower:   make(map[string]string, len(genes)),
		symbolToID: make(map[string]string),
		memo:       make(map[string]string),
		misses:     make(map[string]bool),
	}

	for id, desc := range genes {
		m.idsLower[strings.ToLower(id)] = id

		if i := strings.Index(desc, ";"); i >= 0 {
			symbol := strings.ToLower(strings.TrimSpace(desc[:i]))
			if symbol != "" {
				m.symbolToID[symbol] = id
			}
			product := strings.ToLower(strings.TrimSpace(desc[i+1:]))
			if len(product) > 5 {
				m.productToID = append(m.productToID, productEntry{product, id})
			}
		} else {
			product := strings.ToLower(strings.TrimSpace(desc))
			if len(product) > 5 {
				m.productToID = append(m.productToID, productEntry{product, id})
			}
		}
	}

	// Deterministic product scan order.
	sort.Slice(m.productToID, func(i, j int) bool {
		if m.productToID[i].product != m.productToID[j].product {
			return m.productToID[i].product < m.productToID[j].product
		}
		return m.productToID[i].id < m.productToID[j].id
	})

	return m
}

// Map resolves one input gene ID, trying strategies in order:
//  1. exact match on the KEGG gene ID
//  2. case-insensitive match on the KEGG gene ID
//  3. the gene symbol from the input annotation against KEGG symbols
//  4. the input ID itself as a gene symbol
//  5. product description match (exact, or long products by containment)
//
// Returns "" when the gene cannot be mapped.
func (m *Mapper) Map(geneID, geneName, product string) string {
	id := strings.TrimSpace(geneID)
	if id == "" {
		return ""
	}
	if mapped, ok := m.memo[id]; ok {
		return mapped
	}
	if m.misses[id] {
		return ""
	}

	mapped := m.resolve(id, geneName, product)
	if mapped == "" {
		m.misses[id] = true
	} else {
		m.memo[id] = mapped
	}
	return mapped
}

func (m *Mapper) resolve(id, geneName, product string) string {
	if _, ok := m.genes[id]; ok {
		return id
	}

	if kid, ok := m.idsLower[strings.ToLower(id)]; ok {
		return kid
	}

	if geneName != "" {
		if kid, ok := m.symbolToID[strings.ToLower(strings.TrimSpace(geneName))]; ok {
			return kid
		}
	}

	if kid, ok := m.symbolToID[strings.ToLower(id)]; ok {
		return kid
	}

	if product != "" {
		p := strings.ToLower(strings.TrimSpace(product))
		if len(p) > 10 {
			for _, entry := range m.productToID {
				if p == entry.product || (len(p) > 15 && strings.Contains(entry.product, p)) {
					return entry.id
				}
			}
		}
	}

	return ""
}

// MapAll resolves a batch of gene IDs, using the annotation maps for the
// symbol and product strategies. Unmappable genes are absent from the
// returned mapping.
func (m *Mapper) MapAll(geneIDs []string, geneNames, products map[string]string) map[string]string {
	mapping := make(map[string]string)
	for _, id := range geneIDs {
		if mapped := m.Map(id, geneNames[id], products[id]); mapped != "" {
			mapping[id] = mapped
		}
	}
	return mapping
}

// MappedIDs applies a mapping to a gene list, keeping only mapped genes
// and removing duplicates. Order follows the input.
func MappedIDs(ids []string, mapping map[string]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, id := range ids {
		mapped, ok := mapping[id]
		if !ok || seen[mapped] {
			continue
		}
		seen[mapped] = true
		out = append(out, mapped)
	}
	return out
}
