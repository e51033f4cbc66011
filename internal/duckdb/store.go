// Package duckdb persists gene set collections and enrichment results
// in a DuckDB database. Collections are written whole and read whole;
// results are append-only and queryable by run, gene set or p-value.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
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

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS gene_sets (
		idx BIGINT,
		id VARCHAR,
		source VARCHAR,
		collection VARCHAR,
		name VARCHAR,
		genes VARCHAR,
		description VARCHAR,
		PRIMARY KEY (id)
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS enrichment_results (
		run_id VARCHAR,
		kind VARCHAR,
		gene_set_id VARCHAR,
		gene_set_name VARCHAR,
		universe BIGINT,
		query_size BIGINT,
		set_size BIGINT,
		overlap BIGINT,
		x BIGINT,
		l BIGINT,
		cutoff BIGINT,
		stat DOUBLE,
		pvalue DOUBLE,
		escore DOUBLE,
		genes VARCHAR
	)`)
	return err
}
