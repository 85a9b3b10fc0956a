package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/seqworks/funcenrich/internal/kegg"
	"github.com/seqworks/funcenrich/internal/keggstore"
)

// NCBI COG definition table, used to resolve KEGG COG links into
// functional category letters.
const cogDefsURL = "https://ftp.ncbi.nlm.nih.gov/pub/COG/COG2020/data/cog-20.def.tab"

func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ExitOnError)

	var (
		org      string
		cacheDir string
		withCOG  bool
		cogDefs  bool
	)

	fs.StringVar(&org, "org", "", "KEGG organism code (required)")
	fs.StringVar(&cacheDir, "cache-dir", "", "Cache directory (default: ~/.funcenrich)")
	fs.BoolVar(&withCOG, "cog", false, "Also fetch gene-to-COG links")
	fs.BoolVar(&cogDefs, "cog-defs", false, "Also download the NCBI COG definition table")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Prefetch KEGG organism data into the local cache for offline analysis.

Usage:
  funcenrich download [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Fetch pathway data for E. coli
  funcenrich download --org eco

  # Fetch pathway and COG data plus the COG definition table
  funcenrich download --org eco --cog --cog-defs

Data fetched:
  - gene list (list/{org})
  - pathway list (list/pathway/{org})
  - gene-pathway links (link/pathway/{org})
  - gene-COG links (link/cog/{org}, with --cog)

After downloading, 'funcenrich run --offline' works without network access.
`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	if org == "" {
		fmt.Fprintf(os.Stderr, "Error: --org is required\n\n")
		fs.Usage()
		return ExitUsage
	}

	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot determine home directory: %v\n", err)
			return ExitError
		}
		cacheDir = filepath.Join(home, ".funcenrich")
	}

	store, err := keggstore.Open(filepath.Join(cacheDir, "kegg.duckdb"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot open cache: %v\n", err)
		return ExitError
	}
	defer store.Close()

	client := kegg.NewClient()

	fmt.Printf("Fetching KEGG data for %s...\n", org)
	start := time.Now()

	genes, err := client.ListGenes(org)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching gene list: %v\n", err)
		return ExitError
	}
	if err := store.PutGenes(org, genes); err != nil {
		fmt.Fprintf(os.Stderr, "Error caching gene list: %v\n", err)
		return ExitError
	}
	fmt.Printf("  %d genes\n", len(genes))

	pathways, err := client.ListPathways(org)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching pathway list: %v\n", err)
		return ExitError
	}
	if err := store.PutPathways(org, pathways); err != nil {
		fmt.Fprintf(os.Stderr, "Error caching pathway list: %v\n", err)
		return ExitError
	}
	fmt.Printf("  %d pathways\n", len(pathways))

	links, err := client.LinkPathways(org)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching pathway links: %v\n", err)
		return ExitError
	}
	if err := store.PutLinks(org, keggstore.DatasetPathwayLinks, links); err != nil {
		fmt.Fprintf(os.Stderr, "Error caching pathway links: %v\n", err)
		return ExitError
	}
	fmt.Printf("  %d genes with pathway links\n", len(links))

	if withCOG {
		cogLinks, err := client.LinkCOGs(org)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: COG links unavailable: %v\n", err)
		} else {
			if err := store.PutLinks(org, keggstore.DatasetCOGLinks, cogLinks); err != nil {
				fmt.Fprintf(os.Stderr, "Error caching COG links: %v\n", err)
				return ExitError
			}
			fmt.Printf("  %d genes with COG links\n", len(cogLinks))
		}
	}

	if cogDefs {
		dest := filepath.Join(cacheDir, "cog-20.def.tab")
		if err := downloadFile(cogDefsURL, dest); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: COG definitions download failed: %v\n", err)
		} else {
			fmt.Printf("  COG definitions saved to %s\n", dest)
		}
	}

	fmt.Printf("Done in %s\n", time.Since(start).Round(time.Second))
	return ExitSuccess
}

// downloadFile downloads a URL to a local file, skipping files that
// already exist.
func downloadFile(url, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		fmt.Printf("  %s already exists, skipping\n", filepath.Base(dest))
		return nil
	}

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP %d", url, resp.StatusCode)
	}

	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	return os.Rename(tmp, dest)
}
