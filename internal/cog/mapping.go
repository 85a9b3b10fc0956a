package cog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Source selects how COG category assignments are obtained. The
// strategies are mutually exclusive per run.
type Source string

const (
	SourceInfer Source = "infer" // keyword inference from product descriptions
	SourceKEGG  Source = "kegg"  // KEGG link/cog plus a COG definition table
	SourceFile  Source = "file"  // user-supplied two-column annotation table
)

// ParseSource validates a source name from a flag or request parameter.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceInfer, "":
		return SourceInfer, nil
	case SourceKEGG:
		return SourceKEGG, nil
	case SourceFile:
		return SourceFile, nil
	default:
		return "", fmt.Errorf("unknown COG source %q (want infer, kegg, or file)", s)
	}
}

// LoadAnnotationFile parses a user-supplied COG annotation table:
// gene_id TAB category letters ("J", "KL"), '#' comment lines skipped.
// Non-letter values such as "-" yield no assignment for that gene.
func LoadAnnotationFile(path string) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open COG annotation: %w", err)
	}
	defer f.Close()
	return ParseAnnotation(f)
}

// ParseAnnotation parses a COG annotation table from a reader.
func ParseAnnotation(r io.Reader) (map[string][]string, error) {
	mapping := make(map[string][]string)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		geneID := strings.TrimSpace(fields[0])
		cogStr := strings.TrimSpace(fields[1])
		if geneID == "" || cogStr == "" || cogStr == "-" {
			continue
		}

		var cats []string
		seen := make(map[string]bool)
		for _, ch := range cogStr {
			letter := strings.ToUpper(string(ch))
			if IsCategory(letter) && !seen[letter] {
				seen[letter] = true
				cats = append(cats, letter)
			}
		}
		if len(cats) > 0 {
			mapping[geneID] = cats
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read COG annotation: %w", err)
	}

	return mapping, nil
}

// Definitions maps COG entry IDs (COG0001) to category letters. KEGG
// link/cog yields entry IDs, not letters, so resolving KEGG-derived
// assignments needs this table. The NCBI cog-20.def.tab file is the
// usual source.
type Definitions map[string][]string

// LoadDefinitions parses a COG definition table. The first column is
// the COG ID, the second its category letters; extra columns (name,
// gene, pathway) are ignored.
func LoadDefinitions(path string) (Definitions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open COG definitions: %w", err)
	}
	defer f.Close()
	return ParseDefinitions(f)
}

// ParseDefinitions parses a COG definition table from a reader.
func ParseDefinitions(r io.Reader) (Definitions, error) {
	defs := make(Definitions)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		cogID := strings.TrimSpace(fields[0])
		var cats []string
		for _, ch := range strings.TrimSpace(fields[1]) {
			letter := strings.ToUpper(string(ch))
			if IsCategory(letter) {
				cats = append(cats, letter)
			}
		}
		if cogID != "" && len(cats) > 0 {
			defs[cogID] = cats
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read COG definitions: %w", err)
	}

	return defs, nil
}

// FromKEGGLinks resolves KEGG gene-to-COG links into category letters
// using a definition table. Genes whose COG entries are absent from the
// definitions get no assignment.
func FromKEGGLinks(links map[string][]string, defs Definitions) map[string][]string {
	mapping := make(map[string][]string)
	for gene, cogIDs := range links {
		catSet := make(map[string]bool)
		for _, cogID := range cogIDs {
			for _, cat := range defs[cogID] {
				catSet[cat] = true
			}
		}
		if len(catSet) == 0 {
			continue
		}
		cats := make([]string, 0, len(catSet))
		for cat := range catSet {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
		mapping[gene] = cats
	}
	return mapping
}
