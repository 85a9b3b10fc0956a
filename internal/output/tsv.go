// Package output provides tab-delimited result table writers.
package output

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/seqworks/funcenrich/internal/cog"
	"github.com/seqworks/funcenrich/internal/deseq"
	"github.com/seqworks/funcenrich/internal/enrich"
	"github.com/seqworks/funcenrich/internal/gsea"
)

// formatFloat renders a p-value or score, "NA" when missing.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// GeneTableWriter writes parsed DE records in tab-delimited format.
type GeneTableWriter struct {
	w *bufio.Writer
}

// NewGeneTableWriter creates a gene table writer.
func NewGeneTableWriter(w io.Writer) *GeneTableWriter {
	return &GeneTableWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (gw *GeneTableWriter) WriteHeader() error {
	cols := []string{
		"gene_id", "baseMean", "log2FoldChange", "pvalue", "padj",
		"locus_tag", "gene_name", "product", "protein_id", "go_terms",
	}
	_, err := gw.w.WriteString(strings.Join(cols, "\t") + "\n")
	return err
}

// Write writes a single record.
func (gw *GeneTableWriter) Write(r *deseq.Record) error {
	fields := []string{
		r.GeneID,
		formatFloat(r.BaseMean),
		formatFloat(r.Log2FoldChange),
		formatFloat(r.PValue),
		formatFloat(r.Padj),
		r.LocusTag,
		r.GeneName,
		r.Product,
		r.ProteinID,
		strings.Join(r.GOTerms, ","),
	}
	_, err := gw.w.WriteString(strings.Join(fields, "\t") + "\n")
	return err
}

// WriteAll writes the header and every record, then flushes.
func (gw *GeneTableWriter) WriteAll(records []*deseq.Record) error {
	if err := gw.WriteHeader(); err != nil {
		return err
	}
	for _, r := range records {
		if err := gw.Write(r); err != nil {
			return err
		}
	}
	return gw.Flush()
}

// Flush flushes buffered output.
func (gw *GeneTableWriter) Flush() error {
	return gw.w.Flush()
}

// ORAWriter writes pathway over-representation results.
type ORAWriter struct {
	w *bufio.Writer
}

// NewORAWriter creates an ORA result writer.
func NewORAWriter(w io.Writer) *ORAWriter {
	return &ORAWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (ow *ORAWriter) WriteHeader() error {
	cols := []string{
		"Pathway_ID", "Description", "GeneRatio", "BgRatio",
		"pvalue", "p.adjust", "OddsRatio", "Count", "Genes",
	}
	_, err := ow.w.WriteString(strings.Join(cols, "\t") + "\n")
	return err
}

// Write writes a single tested pathway.
func (ow *ORAWriter) Write(r *enrich.Result) error {
	odds := "Inf"
	if !math.IsInf(r.OddsRatio, 1) {
		odds = strconv.FormatFloat(r.OddsRatio, 'f', 4, 64)
	}
	fields := []string{
		r.SetID,
		r.Description,
		fmt.Sprintf("%d/%d", r.Count, r.SubsetSize),
		fmt.Sprintf("%d/%d", r.SetSize, r.Universe),
		formatFloat(r.PValue),
		formatFloat(r.Padj),
		odds,
		strconv.Itoa(r.Count),
		strings.Join(r.Genes, ";"),
	}
	_, err := ow.w.WriteString(strings.Join(fields, "\t") + "\n")
	return err
}

// WriteAll writes the header and every result, then flushes.
func (ow *ORAWriter) WriteAll(results []*enrich.Result) error {
	if err := ow.WriteHeader(); err != nil {
		return err
	}
	for _, r := range results {
		if err := ow.Write(r); err != nil {
			return err
		}
	}
	return ow.Flush()
}

// Flush flushes buffered output.
func (ow *ORAWriter) Flush() error {
	return ow.w.Flush()
}

// GSEAWriter writes prerank enrichment results.
type GSEAWriter struct {
	w *bufio.Writer
}

// NewGSEAWriter creates a GSEA result writer.
func NewGSEAWriter(w io.Writer) *GSEAWriter {
	return &GSEAWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (gw *GSEAWriter) WriteHeader() error {
	cols := []string{
		"Term", "ES", "NES", "NOM_pval", "FDR_qval",
		"Set_Size", "Matched_Size", "Leading_Edge",
	}
	_, err := gw.w.WriteString(strings.Join(cols, "\t") + "\n")
	return err
}

// Write writes a single tested gene set.
func (gw *GSEAWriter) Write(r *gsea.Result) error {
	fields := []string{
		r.Term,
		strconv.FormatFloat(r.ES, 'f', 4, 64),
		strconv.FormatFloat(r.NES, 'f', 4, 64),
		formatFloat(r.PValue),
		formatFloat(r.FDR),
		strconv.Itoa(r.SetSize),
		strconv.Itoa(r.MatchedSize),
		strings.Join(r.LeadingEdge, ";"),
	}
	_, err := gw.w.WriteString(strings.Join(fields, "\t") + "\n")
	return err
}

// WriteAll writes the header and every result, then flushes.
func (gw *GSEAWriter) WriteAll(results []*gsea.Result) error {
	if err := gw.WriteHeader(); err != nil {
		return err
	}
	for _, r := range results {
		if err := gw.Write(r); err != nil {
			return err
		}
	}
	return gw.Flush()
}

// Flush flushes buffered output.
func (gw *GSEAWriter) Flush() error {
	return gw.w.Flush()
}

// COGEnrichmentWriter writes COG category enrichment results.
type COGEnrichmentWriter struct {
	w *bufio.Writer
}

// NewCOGEnrichmentWriter creates a COG enrichment writer.
func NewCOGEnrichmentWriter(w io.Writer) *COGEnrichmentWriter {
	return &COGEnrichmentWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (cw *COGEnrichmentWriter) WriteHeader() error {
	cols := []string{
		"COG_Category", "Description", "DE_Count", "Background_Count",
		"DE_Total", "Background_Total", "Ratio_DE", "Ratio_BG",
		"Fold_Enrichment", "pvalue", "p.adjust", "OddsRatio",
	}
	_, err := cw.w.WriteString(strings.Join(cols, "\t") + "\n")
	return err
}

// Write writes a single tested category.
func (cw *COGEnrichmentWriter) Write(r *enrich.Result) error {
	ratioDE := 0.0
	if r.SubsetSize > 0 {
		ratioDE = float64(r.Count) / float64(r.SubsetSize) * 100
	}
	ratioBG := 0.0
	if r.Universe > 0 {
		ratioBG = float64(r.SetSize) / float64(r.Universe) * 100
	}
	fields := []string{
		r.SetID,
		r.Description,
		strconv.Itoa(r.Count),
		strconv.Itoa(r.SetSize),
		strconv.Itoa(r.SubsetSize),
		strconv.Itoa(r.Universe),
		strconv.FormatFloat(ratioDE, 'f', 2, 64),
		strconv.FormatFloat(ratioBG, 'f', 2, 64),
		strconv.FormatFloat(r.FoldEnrichment(), 'f', 4, 64),
		formatFloat(r.PValue),
		formatFloat(r.Padj),
		strconv.FormatFloat(r.OddsRatio, 'f', 4, 64),
	}
	_, err := cw.w.WriteString(strings.Join(fields, "\t") + "\n")
	return err
}

// WriteAll writes the header and every result, then flushes.
func (cw *COGEnrichmentWriter) WriteAll(results []*enrich.Result) error {
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	for _, r := range results {
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	return cw.Flush()
}

// Flush flushes buffered output.
func (cw *COGEnrichmentWriter) Flush() error {
	return cw.w.Flush()
}

// COGDistributionWriter writes COG category distribution tables.
type COGDistributionWriter struct {
	w *bufio.Writer
}

// NewCOGDistributionWriter creates a COG distribution writer.
func NewCOGDistributionWriter(w io.Writer) *COGDistributionWriter {
	return &COGDistributionWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (dw *COGDistributionWriter) WriteHeader() error {
	cols := []string{"COG_Category", "Description", "Count", "Percentage", "Group"}
	_, err := dw.w.WriteString(strings.Join(cols, "\t") + "\n")
	return err
}

// Write writes a single category row.
func (dw *COGDistributionWriter) Write(r cog.DistributionRow) error {
	fields := []string{
		r.Category,
		r.Description,
		strconv.Itoa(r.Count),
		strconv.FormatFloat(r.Percentage, 'f', 2, 64),
		r.Group,
	}
	_, err := dw.w.WriteString(strings.Join(fields, "\t") + "\n")
	return err
}

// WriteAll writes the header and every row, then flushes.
func (dw *COGDistributionWriter) WriteAll(rows []cog.DistributionRow) error {
	if err := dw.WriteHeader(); err != nil {
		return err
	}
	for _, r := range rows {
		if err := dw.Write(r); err != nil {
			return err
		}
	}
	return dw.Flush()
}

// Flush flushes buffered output.
func (dw *COGDistributionWriter) Flush() error {
	return dw.w.Flush()
}
