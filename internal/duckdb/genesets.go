package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/exprlab/genesettools/internal/genesets"
)

// SaveCollection replaces the stored gene sets with the given
// collection, preserving set order. Writes use the Appender API.
func (s *Store) SaveCollection(c *genesets.Collection) error {
	if _, err := s.db.Exec("DELETE FROM gene_sets"); err != nil {
		return fmt.Errorf("clear gene sets: %w", err)
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "gene_sets")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i := 0; i < c.Size(); i++ {
		gs, err := c.GetByIndex(i)
		if err != nil {
			return err
		}
		if err := appender.AppendRow(
			int64(i), gs.ID, gs.Source, gs.Collection, gs.Name,
			strings.Join(gs.Genes(), ","), gs.Description,
		); err != nil {
			return fmt.Errorf("append gene set: %w", err)
		}
	}

	return appender.Flush()
}

// LoadCollection reads the stored gene sets back in their original
// order.
func (s *Store) LoadCollection() (*genesets.Collection, error) {
	rows, err := s.db.Query(`SELECT id, source, collection, name, genes, description
		FROM gene_sets ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("query gene sets: %w", err)
	}
	defer rows.Close()

	var sets []*genesets.GeneSet
	for rows.Next() {
		var id, source, collection, name, genes, description string
		if err := rows.Scan(&id, &source, &collection, &name, &genes, &description); err != nil {
			return nil, fmt.Errorf("scan gene set: %w", err)
		}
		gs, err := genesets.New(id, name, strings.Split(genes, ","))
		if err != nil {
			return nil, fmt.Errorf("rebuild gene set %s: %w", id, err)
		}
		gs.Source = source
		gs.Collection = collection
		gs.Description = description
		sets = append(sets, gs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gene sets: %w", err)
	}
	return genesets.NewCollection(sets)
}

// CountGeneSets returns the number of stored gene sets.
func (s *Store) CountGeneSets() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM gene_sets").Scan(&n); err != nil {
		return 0, fmt.Errorf("count gene sets: %w", err)
	}
	return n, nil
}
