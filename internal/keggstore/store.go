// Package keggstore caches fetched KEGG organism data in DuckDB so runs
// can work offline after a one-time download.
package keggstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

// Dataset names tracked in fetch metadata.
const (
	DatasetGenes        = "genes"
	DatasetPathways     = "pathways"
	DatasetPathwayLinks = "pathway_links"
	DatasetCOGLinks     = "cog_links"
)

// DefaultTTL is how long cached KEGG data is considered fresh.
const DefaultTTL = 24 * time.Hour

// Store manages a DuckDB connection for cached KEGG data.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path. Use an
// empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kegg_genes (
			org VARCHAR,
			gene_id VARCHAR,
			description VARCHAR,
			PRIMARY KEY (org, gene_id)
		)`,
		`CREATE TABLE IF NOT EXISTS kegg_pathways (
			org VARCHAR,
			pathway_id VARCHAR,
			name VARCHAR,
			PRIMARY KEY (org, pathway_id)
		)`,
		`CREATE TABLE IF NOT EXISTS kegg_pathway_links (
			org VARCHAR,
			gene_id VARCHAR,
			pathway_id VARCHAR,
			PRIMARY KEY (org, gene_id, pathway_id)
		)`,
		`CREATE TABLE IF NOT EXISTS kegg_cog_links (
			org VARCHAR,
			gene_id VARCHAR,
			cog_id VARCHAR,
			PRIMARY KEY (org, gene_id, cog_id)
		)`,
		`CREATE TABLE IF NOT EXISTS fetch_meta (
			org VARCHAR,
			dataset VARCHAR,
			fetched_at TIMESTAMP,
			row_count BIGINT,
			PRIMARY KEY (org, dataset)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// FetchedAt returns when a dataset was last stored for an organism.
func (s *Store) FetchedAt(org, dataset string) (time.Time, bool, error) {
	var t time.Time
	err := s.db.QueryRow(
		`SELECT fetched_at FROM fetch_meta WHERE org = ? AND dataset = ?`,
		org, dataset).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query fetch meta: %w", err)
	}
	return t, true, nil
}

// Fresh reports whether a dataset exists and is younger than ttl.
func (s *Store) Fresh(org, dataset string, ttl time.Duration) (bool, error) {
	t, ok, err := s.FetchedAt(org, dataset)
	if err != nil || !ok {
		return false, err
	}
	return time.Since(t) < ttl, nil
}

func (s *Store) markFetched(tx *sql.Tx, org, dataset string, rows int) error {
	if _, err := tx.Exec(
		`DELETE FROM fetch_meta WHERE org = ? AND dataset = ?`, org, dataset); err != nil {
		return err
	}
	_, err := tx.Exec(
		`INSERT INTO fetch_meta (org, dataset, fetched_at, row_count) VALUES (?, ?, ?, ?)`,
		org, dataset, time.Now().UTC(), rows)
	return err
}

// PutGenes replaces the cached gene list for an organism.
func (s *Store) PutGenes(org string, genes map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM kegg_genes WHERE org = ?`, org); err != nil {
		return fmt.Errorf("clear genes: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO kegg_genes (org, gene_id, description) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for id, desc := range genes {
		if _, err := stmt.Exec(org, id, desc); err != nil {
			return fmt.Errorf("insert gene %s: %w", id, err)
		}
	}
	if err := s.markFetched(tx, org, DatasetGenes, len(genes)); err != nil {
		return fmt.Errorf("mark fetched: %w", err)
	}
	return tx.Commit()
}

// Genes returns the cached gene list for an organism. A missing dataset
// yields an empty map.
func (s *Store) Genes(org string) (map[string]string, error) {
	rows, err := s.db.Query(
		`SELECT gene_id, description FROM kegg_genes WHERE org = ?`, org)
	if err != nil {
		return nil, fmt.Errorf("query genes: %w", err)
	}
	defer rows.Close()

	genes := make(map[string]string)
	for rows.Next() {
		var id, desc string
		if err := rows.Scan(&id, &desc); err != nil {
			return nil, fmt.Errorf("scan gene: %w", err)
		}
		genes[id] = desc
	}
	return genes, rows.Err()
}

// PutPathways replaces the cached pathway list for an organism.
func (s *Store) PutPathways(org string, pathways map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM kegg_pathways WHERE org = ?`, org); err != nil {
		return fmt.Errorf("clear pathways: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO kegg_pathways (org, pathway_id, name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for id, name := range pathways {
		if _, err := stmt.Exec(org, id, name); err != nil {
			return fmt.Errorf("insert pathway %s: %w", id, err)
		}
	}
	if err := s.markFetched(tx, org, DatasetPathways, len(pathways)); err != nil {
		return fmt.Errorf("mark fetched: %w", err)
	}
	return tx.Commit()
}

// Pathways returns the cached pathway list for an organism.
func (s *Store) Pathways(org string) (map[string]string, error) {
	rows, err := s.db.Query(
		`SELECT pathway_id, name FROM kegg_pathways WHERE org = ?`, org)
	if err != nil {
		return nil, fmt.Errorf("query pathways: %w", err)
	}
	defer rows.Close()

	pathways := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan pathway: %w", err)
		}
		pathways[id] = name
	}
	return pathways, rows.Err()
}

// PutLinks replaces cached gene-to-target links for an organism. The
// dataset selects the table: DatasetPathwayLinks or DatasetCOGLinks.
func (s *Store) PutLinks(org, dataset string, links map[string][]string) error {
	table, col, err := linkTable(dataset)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM `+table+` WHERE org = ?`, org); err != nil {
		return fmt.Errorf("clear links: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO ` + table + ` (org, gene_id, ` + col + `) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for gene, targets := range links {
		for _, target := range targets {
			if _, err := stmt.Exec(org, gene, target); err != nil {
				return fmt.Errorf("insert link %s: %w", gene, err)
			}
			count++
		}
	}
	if err := s.markFetched(tx, org, dataset, count); err != nil {
		return fmt.Errorf("mark fetched: %w", err)
	}
	return tx.Commit()
}

// Links returns cached gene-to-target links for an organism.
func (s *Store) Links(org, dataset string) (map[string][]string, error) {
	table, col, err := linkTable(dataset)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT gene_id, `+col+` FROM `+table+` WHERE org = ? ORDER BY gene_id, `+col, org)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	links := make(map[string][]string)
	for rows.Next() {
		var gene, target string
		if err := rows.Scan(&gene, &target); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links[gene] = append(links[gene], target)
	}
	return links, rows.Err()
}

func linkTable(dataset string) (table, col string, err error) {
	switch dataset {
	case DatasetPathwayLinks:
		return "kegg_pathway_links", "pathway_id", nil
	case DatasetCOGLinks:
		return "kegg_cog_links", "cog_id", nil
	default:
		return "", "", fmt.Errorf("unknown link dataset %q", dataset)
	}
}
