package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/exprlab/genesettools/internal/enrich"
)

// Result kinds stored in the kind column.
const (
	KindStatic = "static"
	KindRank   = "rank"
)

// ResultRecord is one stored enrichment result. Static and rank-based
// results share the row shape; fields that do not apply to a kind are
// zero.
type ResultRecord struct {
	RunID       string
	Kind        string
	GeneSetID   string
	GeneSetName string

	Universe  int64 // universe size N
	QuerySize int64 // static: resolved query genes
	SetSize   int64 // gene set genes in the universe
	Overlap   int64 // static: overlap count; rank: hits above the cutoff

	X      int64 // rank only
	L      int64 // rank only
	Cutoff int64 // rank only

	Stat   float64 // rank only
	PValue float64
	EScore float64 // rank only

	Genes []string
}

// StaticRecord flattens a static enrichment result for storage.
func StaticRecord(runID string, r *enrich.Result) ResultRecord {
	return ResultRecord{
		RunID:       runID,
		Kind:        KindStatic,
		GeneSetID:   r.GeneSet.ID,
		GeneSetName: r.GeneSet.Name,
		Universe:    int64(r.N),
		QuerySize:   int64(r.Query),
		SetSize:     int64(r.K),
		Overlap:     int64(r.Overlap),
		PValue:      r.PValue,
		Genes:       r.Genes,
	}
}

// RankRecord flattens a rank-based enrichment result for storage.
func RankRecord(runID string, r *enrich.RankResult) ResultRecord {
	return ResultRecord{
		RunID:       runID,
		Kind:        KindRank,
		GeneSetID:   r.GeneSet.ID,
		GeneSetName: r.GeneSet.Name,
		Universe:    int64(r.N),
		SetSize:     int64(r.K()),
		Overlap:     int64(r.KAtCutoff()),
		X:           int64(r.X),
		L:           int64(r.L),
		Cutoff:      int64(r.Cutoff),
		Stat:        r.Stat,
		PValue:      r.PValue,
		EScore:      r.EScore,
		Genes:       r.Genes,
	}
}

// SaveStaticResults batch-inserts static enrichment results under the
// given run ID using the Appender API.
func (s *Store) SaveStaticResults(runID string, results []*enrich.Result) error {
	records := make([]ResultRecord, len(results))
	for i, r := range results {
		records[i] = StaticRecord(runID, r)
	}
	return s.appendResults(records)
}

// SaveRankResults batch-inserts rank-based enrichment results under the
// given run ID using the Appender API.
func (s *Store) SaveRankResults(runID string, results []*enrich.RankResult) error {
	records := make([]ResultRecord, len(results))
	for i, r := range results {
		records[i] = RankRecord(runID, r)
	}
	return s.appendResults(records)
}

func (s *Store) appendResults(records []ResultRecord) error {
	if len(records) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "enrichment_results")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range records {
		if err := appender.AppendRow(
			r.RunID, r.Kind, r.GeneSetID, r.GeneSetName,
			r.Universe, r.QuerySize, r.SetSize, r.Overlap,
			r.X, r.L, r.Cutoff,
			r.Stat, r.PValue, r.EScore,
			strings.Join(r.Genes, ","),
		); err != nil {
			return fmt.Errorf("append enrichment result: %w", err)
		}
	}

	return appender.Flush()
}

// ResultsByRun returns all results stored under a run ID, most
// significant first.
func (s *Store) ResultsByRun(runID string) ([]ResultRecord, error) {
	return s.queryResults("WHERE run_id=? ORDER BY pvalue, gene_set_id", runID)
}

// ResultsByGeneSet returns all stored results for a gene set across
// runs.
func (s *Store) ResultsByGeneSet(geneSetID string) ([]ResultRecord, error) {
	return s.queryResults("WHERE gene_set_id=? ORDER BY pvalue, run_id", geneSetID)
}

// ResultsBelow returns all stored results with a p-value at or below
// the ceiling.
func (s *Store) ResultsBelow(maxPValue float64) ([]ResultRecord, error) {
	return s.queryResults("WHERE pvalue<=? ORDER BY pvalue, run_id, gene_set_id", maxPValue)
}

// DeleteRun removes all results stored under a run ID.
func (s *Store) DeleteRun(runID string) error {
	_, err := s.db.Exec("DELETE FROM enrichment_results WHERE run_id=?", runID)
	return err
}

func (s *Store) queryResults(clause string, args ...any) ([]ResultRecord, error) {
	rows, err := s.db.Query(`SELECT
		run_id, kind, gene_set_id, gene_set_name,
		universe, query_size, set_size, overlap,
		x, l, cutoff, stat, pvalue, escore, genes
		FROM enrichment_results `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query enrichment results: %w", err)
	}
	defer rows.Close()

	var records []ResultRecord
	for rows.Next() {
		var r ResultRecord
		var genes string
		if err := rows.Scan(
			&r.RunID, &r.Kind, &r.GeneSetID, &r.GeneSetName,
			&r.Universe, &r.QuerySize, &r.SetSize, &r.Overlap,
			&r.X, &r.L, &r.Cutoff, &r.Stat, &r.PValue, &r.EScore,
			&genes,
		); err != nil {
			return nil, fmt.Errorf("scan enrichment result: %w", err)
		}
		if genes != "" {
			r.Genes = strings.Split(genes, ",")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrichment results: %w", err)
	}
	return records, nil
}
