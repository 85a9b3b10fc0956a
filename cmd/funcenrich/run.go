package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/seqworks/funcenrich/internal/cog"
	"github.com/seqworks/funcenrich/internal/deseq"
	"github.com/seqworks/funcenrich/internal/enrich"
	"github.com/seqworks/funcenrich/internal/kegg"
	"github.com/seqworks/funcenrich/internal/keggstore"
	"github.com/seqworks/funcenrich/internal/output"
	"github.com/seqworks/funcenrich/internal/pipeline"
)

func runAnalysis(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)

	defaults := configDefaults()

	var (
		input        string
		outDir       string
		org          string
		padjCutoff   float64
		log2fcCutoff float64
		minSetSize   int
		maxSetSize   int
		permutations int
		seed         int64
		cogSource    string
		cogFile      string
		cogDefs      string
		cacheDir     string
		offline      bool
		verbose      bool
	)

	fs.StringVar(&input, "input", "", "DESeq2 results file (TSV or CSV, required)")
	fs.StringVar(&outDir, "out-dir", "funcenrich-results", "Output directory for result tables")
	fs.StringVar(&org, "org", defaults.org, "KEGG organism code (e.g. eco, sey, stm)")
	fs.Float64Var(&padjCutoff, "padj", defaults.padj, "Adjusted p-value cutoff for DE gene selection")
	fs.Float64Var(&log2fcCutoff, "log2fc", defaults.log2fc, "Absolute log2 fold change cutoff")
	fs.IntVar(&minSetSize, "min-set-size", enrich.DefaultMinSetSize, "Minimum gene set size")
	fs.IntVar(&maxSetSize, "max-set-size", enrich.DefaultMaxSetSize, "Maximum gene set size")
	fs.IntVar(&permutations, "permutations", defaults.permutations, "GSEA permutation count")
	fs.Int64Var(&seed, "seed", 42, "GSEA permutation seed")
	fs.StringVar(&cogSource, "cog-source", "infer", "COG annotation source: infer, kegg, or file")
	fs.StringVar(&cogFile, "cog-file", "", "COG annotation table (gene_id TAB categories, for --cog-source file)")
	fs.StringVar(&cogDefs, "cog-defs", "", "COG definition table (e.g. NCBI cog-20.def.tab, for --cog-source kegg)")
	fs.StringVar(&cacheDir, "cache-dir", "", "KEGG cache directory (default: ~/.funcenrich)")
	fs.BoolVar(&offline, "offline", false, "Use only cached KEGG data, no network")
	fs.BoolVar(&verbose, "v", false, "Verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Run pathway ORA, GSEA prerank, and COG enrichment on a DESeq2 results table.

Usage:
  funcenrich run [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  funcenrich run --input results.tsv --org eco
  funcenrich run --input results.csv --org sey --padj 0.01 --log2fc 1.5
  funcenrich run --input results.tsv --org eco --offline
`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	if input == "" {
		fmt.Fprintf(os.Stderr, "Error: --input is required\n\n")
		fs.Usage()
		return ExitUsage
	}
	if org == "" {
		fmt.Fprintf(os.Stderr, "Error: --org is required (see the KEGG organism list)\n\n")
		fs.Usage()
		return ExitUsage
	}

	source, err := cog.ParseSource(cogSource)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitUsage
	}
	if source == cog.SourceFile && cogFile == "" {
		fmt.Fprintf(os.Stderr, "Error: --cog-source file requires --cog-file\n")
		return ExitUsage
	}

	logger := newLogger(verbose)
	defer logger.Sync()

	table, err := deseq.ParseFile(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	fmt.Fprintf(os.Stderr, "Parsed %d genes from %s\n", len(table.Records), input)

	store, err := openStore(cacheDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: KEGG cache unavailable: %v\n", err)
	}
	if store != nil {
		defer store.Close()
	}

	var client *kegg.Client
	if !offline {
		client = kegg.NewClient()
	}

	params := pipeline.DefaultParams()
	params.Organism = org
	params.PadjCutoff = padjCutoff
	params.Log2FCCutoff = log2fcCutoff
	params.MinSetSize = minSetSize
	params.MaxSetSize = maxSetSize
	params.Permutations = permutations
	params.Seed = seed
	params.COGSource = source
	params.COGFile = cogFile
	params.COGDefsFile = cogDefs
	params.Offline = offline

	p := pipeline.New(client, store)
	p.SetLogger(logger)

	results, err := p.Run(table, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}

	for _, warning := range results.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}

	if err := writeResults(outDir, results); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}

	fmt.Fprintf(os.Stderr, "DE genes: %d up, %d down, %d total\n",
		len(results.UpIDs), len(results.DownIDs), len(results.AllIDs))
	fmt.Fprintf(os.Stderr, "Mapped %d/%d genes to KEGG\n",
		len(results.Mapping), len(table.Records))
	fmt.Fprintf(os.Stderr, "Results written to %s\n", outDir)

	return ExitSuccess
}

// writeResults writes every result table to the output directory.
func writeResults(outDir string, results *pipeline.Results) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	writers := []struct {
		name  string
		write func(*os.File) error
	}{
		{"genes.tsv", func(f *os.File) error {
			return output.NewGeneTableWriter(f).WriteAll(results.Table.Records)
		}},
		{"ora_up.tsv", func(f *os.File) error {
			return output.NewORAWriter(f).WriteAll(results.ORAUp)
		}},
		{"ora_down.tsv", func(f *os.File) error {
			return output.NewORAWriter(f).WriteAll(results.ORADown)
		}},
		{"ora_all.tsv", func(f *os.File) error {
			return output.NewORAWriter(f).WriteAll(results.ORAAll)
		}},
		{"gsea.tsv", func(f *os.File) error {
			return output.NewGSEAWriter(f).WriteAll(results.GSEA)
		}},
		{"cog_distribution.tsv", func(f *os.File) error {
			return output.NewCOGDistributionWriter(f).WriteAll(results.COGDistribution)
		}},
		{"cog_enrichment_up.tsv", func(f *os.File) error {
			return output.NewCOGEnrichmentWriter(f).WriteAll(results.COGUp)
		}},
		{"cog_enrichment_down.tsv", func(f *os.File) error {
			return output.NewCOGEnrichmentWriter(f).WriteAll(results.COGDown)
		}},
		{"cog_enrichment_all.tsv", func(f *os.File) error {
			return output.NewCOGEnrichmentWriter(f).WriteAll(results.COGAll)
		}},
	}

	for _, w := range writers {
		f, err := os.Create(filepath.Join(outDir, w.name))
		if err != nil {
			return fmt.Errorf("create %s: %w", w.name, err)
		}
		if err := w.write(f); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", w.name, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", w.name, err)
		}
	}

	return nil
}

// openStore opens the DuckDB KEGG cache under the cache directory,
// defaulting to ~/.funcenrich.
func openStore(cacheDir string) (*keggstore.Store, error) {
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		cacheDir = filepath.Join(home, ".funcenrich")
	}
	return keggstore.Open(filepath.Join(cacheDir, "kegg.duckdb"))
}

// newLogger builds the zap logger used by the engines.
func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
