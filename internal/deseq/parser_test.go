package deseq

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTSV = "GeneID\tbaseMean\tlog2FoldChange\tpvalue\tpadj\tAttributes\n" +
	"g1\t1200.5\t2.5\t1e-10\t1e-8\tID=cds-1;locus_tag=STM0001;gene=thrL;product=thr operon leader peptide\n" +
	"g2\t800.0\t-3.1\t1e-9\t1e-7\tID=cds-2;locus_tag=STM0002;gene=thrA;product=bifunctional aspartokinase I;protein_id=NP_459007.1\n" +
	"g3\t50.2\t0.3\t0.4\t0.6\tID=cds-3;locus_tag=STM0003;product=hypothetical protein\n" +
	"g4\t10.0\tNA\t\tNA\tID=cds-4;locus_tag=STM0004\n" +
	"g5\t99.9\t1.7\t0.001\t0.01\tID=cds-5;product=putative transporter\n"

func TestParse_ExtractsAttributes(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleTSV))
	require.NoError(t, err)
	require.Len(t, table.Records, 5)

	r := table.Records[0]
	assert.Equal(t, "STM0001", r.GeneID)
	assert.Equal(t, "STM0001", r.LocusTag)
	assert.Equal(t, "thrL", r.GeneName)
	assert.Equal(t, "thr operon leader peptide", r.Product)
	assert.Equal(t, 2.5, r.Log2FoldChange)
	assert.Equal(t, 1e-8, r.Padj)
	assert.Equal(t, 1200.5, r.BaseMean)

	assert.Equal(t, "NP_459007.1", table.Records[1].ProteinID)
}

func TestExtractAttribute(t *testing.T) {
	attrs := "locus_tag=X;gene=Y;product=Z"
	assert.Equal(t, "X", ExtractAttribute(attrs, "locus_tag"))
	assert.Equal(t, "Y", ExtractAttribute(attrs, "gene"))
	assert.Equal(t, "Z", ExtractAttribute(attrs, "product"))
	assert.Equal(t, "", ExtractAttribute(attrs, "protein_id"))

	// A key must match the whole token, not a suffix of another key.
	assert.Equal(t, "", ExtractAttribute("old_locus_tag=A", "locus_tag"))
}

func TestExtractGOTerms(t *testing.T) {
	attrs := "locus_tag=X;Ontology_term=GO:0005737,GO:0016020;product=Z"
	assert.Equal(t, []string{"GO:0005737", "GO:0016020"}, ExtractGOTerms(attrs))
	assert.Nil(t, ExtractGOTerms("locus_tag=X"))
}

func TestParse_MissingNumericValues(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleTSV))
	require.NoError(t, err)

	r := table.Records[3] // g4: NA fold change, empty pvalue
	assert.Equal(t, "STM0004", r.GeneID)
	assert.False(t, r.HasLog2FoldChange())
	assert.False(t, r.HasPadj())
	assert.True(t, math.IsNaN(r.PValue))
}

func TestParse_GeneIDPreference(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleTSV))
	require.NoError(t, err)

	// Row 5 has no locus_tag and no gene: falls back to the row index.
	assert.Equal(t, "5", table.Records[4].GeneID)
	assert.Equal(t, "putative transporter", table.Records[4].Product)
}

func TestParse_GeneNameFallback(t *testing.T) {
	in := "log2FoldChange\tpadj\tAttributes\n" +
		"1.0\t0.01\tgene=rpoS;product=sigma factor\n"
	table, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "rpoS", table.Records[0].GeneID)
}

func TestParse_DuplicateGeneIDsKeepFirst(t *testing.T) {
	in := "log2FoldChange\tpadj\tAttributes\n" +
		"1.0\t0.01\tlocus_tag=A\n" +
		"2.0\t0.02\tlocus_tag=A\n" +
		"3.0\t0.03\tlocus_tag=B\n"
	table, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	assert.Equal(t, 1.0, table.Records[0].Log2FoldChange)
	assert.Equal(t, "B", table.Records[1].GeneID)
}

func TestParse_ColumnNameNormalization(t *testing.T) {
	in := "log2FC\tFDR\tbasemean\tAttributes\n" +
		"1.5\t0.02\t300\tlocus_tag=A\n"
	table, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, 1.5, table.Records[0].Log2FoldChange)
	assert.Equal(t, 0.02, table.Records[0].Padj)
	assert.Equal(t, 300.0, table.Records[0].BaseMean)
}

func TestParse_CommaSeparated(t *testing.T) {
	in := "GeneID,baseMean,log2FoldChange,pvalue,padj,stat,Attributes\n" +
		"g1,100,2.0,0.001,0.01,5.5,locus_tag=A;gene=thrA\n"
	table, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "A", table.Records[0].GeneID)
	assert.Equal(t, "thrA", table.Records[0].GeneName)
}

func TestParse_MissingRequiredColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("GeneID\tbaseMean\n" + "g1\t100\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log2FoldChange")

	_, err = Parse(strings.NewReader("log2FoldChange\tbaseMean\n" + "1.0\t100\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "padj")
}

func TestParse_EmptyFile(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	require.Error(t, err)
}

func TestTable_AnnotationMaps(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleTSV))
	require.NoError(t, err)

	names := table.GeneNameMap()
	assert.Equal(t, "thrA", names["STM0002"])
	_, ok := names["STM0003"]
	assert.False(t, ok)

	products := table.ProductMap()
	assert.Equal(t, "hypothetical protein", products["STM0003"])
}
