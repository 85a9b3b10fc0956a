// Package deseq provides DESeq2 results file parsing functionality.
package deseq

import (
	"math"
	"regexp"
	"strings"
)

// Normalized column names
const (
	ColLog2FoldChange = "log2FoldChange"
	ColPadj           = "padj"
	ColPValue         = "pvalue"
	ColBaseMean       = "baseMean"
	ColAttributes     = "Attributes"
)

// Record holds one gene-level row of a DESeq2 results table.
// Numeric fields use NaN for missing values.
type Record struct {
	GeneID         string
	BaseMean       float64
	Log2FoldChange float64
	PValue         float64
	Padj           float64

	// Raw GFF-style annotation string and the fields extracted from it.
	Attributes string
	LocusTag   string
	GeneName   string
	Product    string
	ProteinID  string
	GOTerms    []string
}

// HasLog2FoldChange reports whether the fold change value is present.
func (r *Record) HasLog2FoldChange() bool {
	return !math.IsNaN(r.Log2FoldChange)
}

// HasPadj reports whether the adjusted p-value is present.
func (r *Record) HasPadj() bool {
	return !math.IsNaN(r.Padj)
}

var attributePattern = regexp.MustCompile(`([A-Za-z_]+)=([^;]+)`)

// ExtractAttribute returns the value for a given key from a GFF-style
// Attributes string, or "" if the key is absent.
func ExtractAttribute(attrs, key string) string {
	for _, m := range attributePattern.FindAllStringSubmatch(attrs, -1) {
		if m[1] == key {
			return m[2]
		}
	}
	return ""
}

// ExtractGOTerms returns the comma-separated Ontology_term values from a
// GFF-style Attributes string.
func ExtractGOTerms(attrs string) []string {
	raw := ExtractAttribute(attrs, "Ontology_term")
	if raw == "" {
		return nil
	}
	terms := strings.Split(raw, ",")
	for i := range terms {
		terms[i] = strings.TrimSpace(terms[i])
	}
	return terms
}
