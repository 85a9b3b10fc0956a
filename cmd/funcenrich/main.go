// Package main provides the funcenrich command-line tool.
package main

import (
	"flag"
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Global flags
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Parse()

	if showVersion {
		fmt.Printf("funcenrich version %s (%s) built %s\n", version, commit, date)
		return ExitSuccess
	}

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		return ExitUsage
	}

	switch args[0] {
	case "run":
		return runAnalysis(args[1:])
	case "download":
		return runDownload(args[1:])
	case "serve":
		return runServe(args[1:])
	case "config":
		return runConfig(args[1:])
	case "help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", args[0])
		printUsage()
		return ExitUsage
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `funcenrich - KEGG pathway and COG functional enrichment for bacterial RNA-seq

Usage:
  funcenrich [options] <command> [arguments]

Commands:
  run         Run ORA, GSEA, and COG analysis on a DESeq2 results table
  download    Prefetch KEGG organism data into the local cache
  serve       Start the dashboard HTTP backend
  config      Manage persisted defaults (~/.funcenrich.yaml)
  help        Show this help message

Global Options:
  --version   Show version information

Examples:
  # Prefetch KEGG data for E. coli (one-time setup, enables offline runs)
  funcenrich download --org eco

  # Run the full analysis
  funcenrich run --input results.tsv --org eco --out-dir results/

  # Run with a user-supplied COG annotation
  funcenrich run --input results.tsv --org eco --cog-source file --cog-file cogs.tsv

  # Start the dashboard backend
  funcenrich serve --addr :8080

For more information on a command, use:
  funcenrich <command> --help
`)
}
