package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/seqworks/funcenrich/internal/kegg"
	"github.com/seqworks/funcenrich/internal/server"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)

	var (
		addr     string
		cacheDir string
		verbose  bool
	)

	fs.StringVar(&addr, "addr", "", "Listen address (default: FUNCENRICH_ADDR or :8080)")
	fs.StringVar(&cacheDir, "cache-dir", "", "KEGG cache directory (default: ~/.funcenrich)")
	fs.BoolVar(&verbose, "v", false, "Verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Start the dashboard HTTP backend.

Usage:
  funcenrich serve [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Endpoints:
  POST   /api/v1/session                       upload a DESeq2 table (multipart "file",
                                               optional "cog_file")
  POST   /api/v1/session/{id}/run              run the analysis (?org=eco&padj=0.05&...)
  GET    /api/v1/session/{id}                  session summary
  GET    /api/v1/session/{id}/result/{table}   download a result table as TSV
  DELETE /api/v1/session/{id}                  discard a session
  GET    /api/v1/health                        liveness check
`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	// Optional .env for deployment configuration.
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "Loaded .env")
	}

	if addr == "" {
		addr = os.Getenv("FUNCENRICH_ADDR")
	}
	if addr == "" {
		addr = ":8080"
	}

	logger := newLogger(verbose)
	defer logger.Sync()

	store, err := openStore(cacheDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: KEGG cache unavailable: %v\n", err)
	}
	if store != nil {
		defer store.Close()
	}

	srv := server.New(kegg.NewClient(), store, logger)
	if err := srv.ListenAndServe(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}
