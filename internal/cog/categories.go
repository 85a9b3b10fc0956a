// Package cog provides COG functional category assignment, distribution
// and enrichment analysis.
package cog

// Categories holds the COG functional category definitions.
var Categories = map[string]string{
	"A": "RNA processing and modification",
	"B": "Chromatin structure and dynamics",
	"C": "Energy production and conversion",
	"D": "Cell cycle control, cell division, chromosome partitioning",
	"E": "Amino acid transport and metabolism",
	"F": "Nucleotide transport and metabolism",
	"G": "Carbohydrate transport and metabolism",
	"H": "Coenzyme transport and metabolism",
	"I": "Lipid transport and metabolism",
	"J": "Translation, ribosomal structure and biogenesis",
	"K": "Transcription",
	"L": "Replication, recombination and repair",
	"M": "Cell wall/membrane/envelope biogenesis",
	"N": "Cell motility",
	"O": "Post-translational modification, protein turnover, chaperones",
	"P": "Inorganic ion transport and metabolism",
	"Q": "Secondary metabolites biosynthesis, transport, and catabolism",
	"R": "General function prediction only",
	"S": "Function unknown",
	"T": "Signal transduction mechanisms",
	"U": "Intracellular trafficking, secretion, and vesicular transport",
	"V": "Defense mechanisms",
	"W": "Extracellular structures",
	"X": "Mobilome: prophages, transposons",
	"Y": "Nuclear structure",
	"Z": "Cytoskeleton",
}

// SuperCategories groups category letters for display.
var SuperCategories = map[string][]string{
	"INFORMATION STORAGE AND PROCESSING": {"A", "B", "J", "K", "L"},
	"CELLULAR PROCESSES AND SIGNALING":   {"D", "M", "N", "O", "T", "U", "V", "W", "Y", "Z"},
	"METABOLISM":                         {"C", "E", "F", "G", "H", "I", "P", "Q"},
	"POORLY CHARACTERIZED":               {"R", "S", "X"},
}

// Colors assigns a display color to each category, used by the serving
// layer.
var Colors = map[string]string{
	"A": "#e6194b", "B": "#3cb44b", "C": "#ffe119", "D": "#4363d8",
	"E": "#f58231", "F": "#911eb4", "G": "#46f0f0", "H": "#f032e6",
	"I": "#bcf60c", "J": "#fabebe", "K": "#008080", "L": "#e6beff",
	"M": "#9a6324", "N": "#fffac8", "O": "#800000", "P": "#aaffc3",
	"Q": "#808000", "R": "#ffd8b1", "S": "#000075", "T": "#808080",
	"U": "#000000", "V": "#006400", "W": "#d7f9fa", "X": "#8c7088",
	"Y": "#c0c0c0", "Z": "#ff6347",
}

// SortedCategories returns the category letters in alphabetical order.
func SortedCategories() []string {
	return []string{
		"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
		"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
	}
}

// IsCategory reports whether a letter is a known COG category.
func IsCategory(letter string) bool {
	_, ok := Categories[letter]
	return ok
}

// SuperCategoryOf returns the super-category grouping for a letter.
func SuperCategoryOf(letter string) string {
	for super, letters := range SuperCategories {
		for _, l := range letters {
			if l == letter {
				return super
			}
		}
	}
	return ""
}
