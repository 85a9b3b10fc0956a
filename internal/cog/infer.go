package cog

import (
	"sort"
	"strings"
)

// keywordMapping drives heuristic category inference from gene product
// descriptions, for organisms without COG annotation.
var keywordMapping = map[string][]string{
	"C": {"dehydrogenase", "oxidoreductase", "cytochrome", "electron transfer",
		"ATP synthase", "NADH", "succinate", "fumarate", "energy"},
	"E": {"amino acid", "aminotransferase", "transaminase", "protease",
		"peptidase", "amino acid transport", "glutamate", "aspartate",
		"threonine", "lysine", "methionine", "serine", "glycine", "alanine",
		"glutamine", "asparagine", "proline", "histidine", "tryptophan",
		"tyrosine", "phenylalanine", "leucine", "isoleucine", "valine",
		"cysteine", "arginine"},
	"F": {"nucleotide", "purine", "pyrimidine", "kinase", "nucleoside"},
	"G": {"carbohydrate", "sugar", "glycosyl", "galactose", "glucose",
		"mannose", "fructose", "xylose", "PTS", "phosphotransferase system"},
	"H": {"coenzyme", "cofactor", "biotin", "thiamin", "riboflavin",
		"folate", "molybdopterin", "cobalamin"},
	"I": {"lipid", "fatty acid", "acyl", "lipase", "phospholipid"},
	"J": {"ribosom", "translation", "tRNA", "rRNA", "aminoacyl",
		"elongation factor", "initiation factor"},
	"K": {"transcription", "transcriptional regulator", "RNA polymerase",
		"sigma factor", "repressor", "activator", "DNA-binding transcription"},
	"L": {"DNA repair", "recombinase", "helicase", "ligase", "replication",
		"DNA polymerase", "topoisomerase", "gyrase", "recombination"},
	"M": {"cell wall", "membrane", "envelope", "lipopolysaccharide", "peptidoglycan",
		"murein", "outer membrane", "porin", "LPS"},
	"N": {"flagell", "motility", "chemotaxis", "pilus", "fimbri"},
	"O": {"chaperone", "protease", "heat shock", "protein folding",
		"ubiquitin", "DnaK", "DnaJ", "GroEL", "GroES", "ClpB", "proteasome"},
	"P": {"iron", "zinc", "manganese", "copper", "magnesium", "phosphate",
		"sulfate", "ion transport", "siderophore", "ABC transporter"},
	"T": {"signal transduction", "sensor", "two-component", "histidine kinase",
		"response regulator", "sensor kinase"},
	"U": {"secretion", "type III", "type IV", "type II", "type VI",
		"Sec", "Tat", "vesicular", "export"},
	"V": {"defense", "restriction", "resistance", "antimicrobial",
		"toxin-antitoxin", "CRISPR"},
	"X": {"transposase", "integrase", "phage", "prophage", "insertion element",
		"mobile element", "IS element"},
	"D": {"cell division", "FtsZ", "chromosome partition", "septum",
		"cell cycle"},
	"Q": {"secondary metabolite", "polyketide", "nonribosomal peptide"},
}

// InferFromProducts assigns COG categories by keyword matching against
// product descriptions. Genes with a nonempty product and no keyword hit
// fall into S (function unknown); genes without a product get no
// assignment. Categories per gene are sorted for determinism.
func InferFromProducts(products map[string]string) map[string][]string {
	mapping := make(map[string][]string)

	for geneID, product := range products {
		p := strings.ToLower(strings.TrimSpace(product))
		if geneID == "" || p == "" {
			continue
		}

		catSet := make(map[string]bool)
		for cat, keywords := range keywordMapping {
			for _, kw := range keywords {
				if strings.Contains(p, strings.ToLower(kw)) {
					catSet[cat] = true
					break
				}
			}
		}
		if len(catSet) == 0 {
			catSet["S"] = true
		}

		cats := make([]string, 0, len(catSet))
		for cat := range catSet {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
		mapping[geneID] = cats
	}

	return mapping
}
