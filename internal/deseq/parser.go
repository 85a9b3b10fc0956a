package deseq

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Table holds a parsed DESeq2 results table. Records are immutable after
// parsing; subsets are filtered views over the same records.
type Table struct {
	Records []*Record

	// columns present in the input after name normalization
	hasBaseMean bool
	hasPValue   bool
}

// GeneIDs returns all gene IDs in table order.
func (t *Table) GeneIDs() []string {
	ids := make([]string, len(t.Records))
	for i, r := range t.Records {
		ids[i] = r.GeneID
	}
	return ids
}

// GeneNameMap returns gene ID to gene name for records with a name.
func (t *Table) GeneNameMap() map[string]string {
	m := make(map[string]string)
	for _, r := range t.Records {
		if r.GeneName != "" {
			m[r.GeneID] = r.GeneName
		}
	}
	return m
}

// ProductMap returns gene ID to product description for records with one.
func (t *Table) ProductMap() map[string]string {
	m := make(map[string]string)
	for _, r := range t.Records {
		if r.Product != "" {
			m[r.GeneID] = r.Product
		}
	}
	return m
}

// columnIndices holds the positions of recognized columns, -1 if absent.
type columnIndices struct {
	log2FoldChange int
	padj           int
	pvalue         int
	baseMean       int
	attributes     int
}

// ParseFile parses a DESeq2 results file. Plain and gzipped files are
// supported.
func ParseFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse parses a DESeq2 results table from a reader. The column separator
// is auto-detected from the header line: tab wins, otherwise comma when
// the header contains more than five commas.
func Parse(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)

	// Check for gzip magic number (0x1f, 0x8b)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gz.Close()
		br = bufio.NewReader(gz)
	}

	header, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if strings.TrimSpace(header) == "" {
		return nil, fmt.Errorf("results file is empty")
	}

	sep := detectSeparator(header)

	cr := csv.NewReader(io.MultiReader(strings.NewReader(header), br))
	cr.Comma = sep
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	headerFields, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	cols, err := mapColumns(headerFields)
	if err != nil {
		return nil, err
	}

	t := &Table{
		hasBaseMean: cols.baseMean >= 0,
		hasPValue:   cols.pvalue >= 0,
	}
	seen := make(map[string]bool)
	rowNum := 0

	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse row %d: %w", rowNum+1, err)
		}
		rowNum++

		rec := buildRecord(fields, cols, rowNum)
		if rec.GeneID == "" || seen[rec.GeneID] {
			// Duplicate gene IDs keep the first occurrence.
			continue
		}
		seen[rec.GeneID] = true
		t.Records = append(t.Records, rec)
	}

	return t, nil
}

func detectSeparator(header string) rune {
	if strings.Contains(header, "\t") {
		return '\t'
	}
	if strings.Count(header, ",") > 5 {
		return ','
	}
	return '\t'
}

// mapColumns normalizes header names and locates recognized columns.
// Missing log2FoldChange or padj is a hard error; everything else is
// optional.
func mapColumns(header []string) (columnIndices, error) {
	cols := columnIndices{
		log2FoldChange: -1,
		padj:           -1,
		pvalue:         -1,
		baseMean:       -1,
		attributes:     -1,
	}

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "log2foldchange", "log2fc":
			if cols.log2FoldChange < 0 {
				cols.log2FoldChange = i
			}
		case "padj", "p.adj", "pvalue_adjusted", "fdr", "qvalue":
			if cols.padj < 0 {
				cols.padj = i
			}
		case "pvalue", "p.value":
			if cols.pvalue < 0 {
				cols.pvalue = i
			}
		case "basemean":
			if cols.baseMean < 0 {
				cols.baseMean = i
			}
		case "attributes":
			if cols.attributes < 0 {
				cols.attributes = i
			}
		}
	}

	if cols.log2FoldChange < 0 {
		return cols, fmt.Errorf("missing required column log2FoldChange")
	}
	if cols.padj < 0 {
		return cols, fmt.Errorf("missing required column padj")
	}
	return cols, nil
}

func buildRecord(fields []string, cols columnIndices, rowNum int) *Record {
	rec := &Record{
		BaseMean:       math.NaN(),
		Log2FoldChange: math.NaN(),
		PValue:         math.NaN(),
		Padj:           math.NaN(),
	}

	rec.Log2FoldChange = parseFloatField(fields, cols.log2FoldChange)
	rec.Padj = parseFloatField(fields, cols.padj)
	rec.PValue = parseFloatField(fields, cols.pvalue)
	rec.BaseMean = parseFloatField(fields, cols.baseMean)

	if cols.attributes >= 0 && cols.attributes < len(fields) {
		rec.Attributes = fields[cols.attributes]
		rec.LocusTag = ExtractAttribute(rec.Attributes, "locus_tag")
		rec.GeneName = ExtractAttribute(rec.Attributes, "gene")
		rec.Product = ExtractAttribute(rec.Attributes, "product")
		rec.ProteinID = ExtractAttribute(rec.Attributes, "protein_id")
		rec.GOTerms = ExtractGOTerms(rec.Attributes)
	}

	// Gene ID preference: locus tag, then gene name, then row index.
	switch {
	case rec.LocusTag != "":
		rec.GeneID = rec.LocusTag
	case rec.GeneName != "":
		rec.GeneID = rec.GeneName
	default:
		rec.GeneID = strconv.Itoa(rowNum)
	}

	return rec
}

// parseFloatField parses a numeric field, returning NaN for missing
// columns, empty values, and unparseable text.
func parseFloatField(fields []string, idx int) float64 {
	if idx < 0 || idx >= len(fields) {
		return math.NaN()
	}
	v := strings.TrimSpace(fields[idx])
	if v == "" || strings.EqualFold(v, "na") || strings.EqualFold(v, "nan") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
