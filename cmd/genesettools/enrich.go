package main

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/exprlab/genesettools/internal/duckdb"
	"github.com/exprlab/genesettools/internal/enrich"
	"github.com/exprlab/genesettools/internal/expression"
	"github.com/exprlab/genesettools/internal/output"
)

func newEnrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Run gene set enrichment analyses",
	}
	cmd.AddCommand(newEnrichStaticCmd())
	cmd.AddCommand(newEnrichRankCmd())
	return cmd
}

// common flags shared by both analyses
type enrichFlags struct {
	genomePath   string
	geneSetsPath string
	outputPath   string
	geneSetIDs   []string
	noAdjust     bool
	dbPath       string
	runID        string
}

func (f *enrichFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.genomePath, "genome", "", "Genome file: gene TSV or GTF annotation (required)")
	cmd.Flags().StringVar(&f.geneSetsPath, "gene-sets", "", "Gene set file: TSV, GMT or MSigDB XML (required)")
	cmd.Flags().StringVarP(&f.outputPath, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringSliceVar(&f.geneSetIDs, "sets", nil, "Restrict the analysis to these gene set IDs")
	cmd.Flags().BoolVar(&f.noAdjust, "no-adjust", false, "Disable the Bonferroni threshold adjustment")
	cmd.Flags().StringVar(&f.dbPath, "db", "", "DuckDB database to store results in (optional)")
	cmd.Flags().StringVar(&f.runID, "run-id", "", "Run identifier for stored results (default: timestamp)")
	cmd.MarkFlagRequired("genome")
	cmd.MarkFlagRequired("gene-sets")
}

func newEnrichStaticCmd() *cobra.Command {
	flags := &enrichFlags{}
	var (
		queryPath  string
		pvalThresh float64
		minCount   int
	)

	defaults := enrich.DefaultStaticParams()
	cmd := &cobra.Command{
		Use:   "static",
		Short: "Test a fixed gene list for over-represented gene sets",
		Example: `  genesettools enrich static --genome genes.tsv --gene-sets go.gmt --query degs.txt
  genesettools enrich static --genome gencode.gtf.gz --gene-sets msigdb.xml --query degs.txt -o results.tsv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrichStatic(flags, queryPath, enrich.StaticParams{
				PValThresh:       pvalThresh,
				X:                minCount,
				AdjustPValThresh: !flags.noAdjust,
				GeneSetIDs:       flags.geneSetIDs,
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&queryPath, "query", "", "Query gene list, one gene per line (required)")
	cmd.Flags().Float64Var(&pvalThresh, "pval-thresh", defaults.PValThresh, "Significance threshold")
	cmd.Flags().IntVarP(&minCount, "min-count", "x", defaults.X, "Minimum gene set size for a set to be tested")
	cmd.MarkFlagRequired("query")
	return cmd
}

func runEnrichStatic(flags *enrichFlags, queryPath string, params enrich.StaticParams) error {
	g, err := loadGenome(flags.genomePath)
	if err != nil {
		return err
	}
	coll, err := loadCollection(flags.geneSetsPath)
	if err != nil {
		return err
	}
	query, err := readGeneList(queryPath)
	if err != nil {
		return err
	}
	logger.Info("running static enrichment analysis",
		zap.Int("genome", g.Size()),
		zap.Int("gene_sets", coll.Size()),
		zap.Int("query", len(query)))

	analysis := enrich.NewStatic(g, coll)
	analysis.SetLogger(logger)
	results, err := analysis.Test(query, params)
	if err != nil {
		return err
	}
	logger.Info("analysis complete", zap.Int("significant", len(results)))

	out, closeOut, err := openOutput(flags.outputPath)
	if err != nil {
		return err
	}
	defer closeOut()

	w := output.NewStaticWriter(out)
	if err := w.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range results {
		if err := w.Write(r); err != nil {
			return fmt.Errorf("writing result: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if flags.dbPath != "" {
		store, err := duckdb.Open(flags.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		runID := resolveRunID(flags.runID)
		if err := store.SaveStaticResults(runID, results); err != nil {
			return err
		}
		logger.Info("stored results", zap.String("run_id", runID), zap.String("db", flags.dbPath))
	}
	return nil
}

func newEnrichRankCmd() *cobra.Command {
	flags := &enrichFlags{}
	var (
		rankingPath      string
		expressionPath   string
		sample           string
		pvalThresh       float64
		xFrac            float64
		xMin             int
		cutoff           int
		escorePvalThresh float64
		workers          int
	)

	defaults := enrich.DefaultRankParams()
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Test a ranked gene list for enriched gene sets (XL-mHG)",
		Example: `  genesettools enrich rank --genome genes.tsv --gene-sets go.gmt --ranking ranked.txt
  genesettools enrich rank --genome genes.tsv --gene-sets go.gmt --expression expr.tsv --sample tumor_1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (rankingPath == "") == (expressionPath == "") {
				return fmt.Errorf("exactly one of --ranking and --expression is required")
			}
			if expressionPath != "" && sample == "" {
				return fmt.Errorf("--sample is required with --expression")
			}
			return runEnrichRank(flags, rankingPath, expressionPath, sample, enrich.RankParams{
				PValThresh:       pvalThresh,
				XFrac:            xFrac,
				XMin:             xMin,
				L:                cutoff,
				AdjustPValThresh: !flags.noAdjust,
				EScorePValThresh: escorePvalThresh,
				GeneSetIDs:       flags.geneSetIDs,
				Workers:          workers,
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&rankingPath, "ranking", "", "Ranked gene list, one gene per line, best first")
	cmd.Flags().StringVar(&expressionPath, "expression", "", "Expression matrix TSV to rank genes from")
	cmd.Flags().StringVar(&sample, "sample", "", "Sample column to rank by (with --expression)")
	cmd.Flags().Float64Var(&pvalThresh, "pval-thresh", defaults.PValThresh, "Significance threshold")
	cmd.Flags().Float64Var(&xFrac, "xfrac", defaults.XFrac, "Minimum fraction of a gene set above the cutoff")
	cmd.Flags().IntVar(&xMin, "xmin", defaults.XMin, "Minimum number of gene set genes above the cutoff")
	cmd.Flags().IntVarP(&cutoff, "cutoff", "L", defaults.L, "Lowest rank at which enrichment may be detected")
	cmd.Flags().Float64Var(&escorePvalThresh, "escore-pval-thresh", 0, "Separate threshold for E-score computation (default: pval-thresh)")
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Number of parallel workers")
	return cmd
}

func runEnrichRank(flags *enrichFlags, rankingPath, expressionPath, sample string, params enrich.RankParams) error {
	g, err := loadGenome(flags.genomePath)
	if err != nil {
		return err
	}
	coll, err := loadCollection(flags.geneSetsPath)
	if err != nil {
		return err
	}

	var ranked []string
	if rankingPath != "" {
		ranked, err = readGeneList(rankingPath)
	} else {
		var m *expression.Matrix
		m, err = expression.Read(expressionPath)
		if err == nil {
			ranked, err = m.RankGenes(sample)
		}
	}
	if err != nil {
		return err
	}

	// A cutoff beyond the universe is meaningless; cap it instead of
	// failing on small genomes.
	if params.L > g.Size() {
		logger.Debug("capping cutoff to genome size",
			zap.Int("requested", params.L), zap.Int("genome", g.Size()))
		params.L = g.Size()
	}

	logger.Info("running rank-based enrichment analysis",
		zap.Int("genome", g.Size()),
		zap.Int("gene_sets", coll.Size()),
		zap.Int("ranked", len(ranked)),
		zap.Int("cutoff", params.L))

	analysis := enrich.NewRankBased(g, coll)
	analysis.SetLogger(logger)
	results, err := analysis.Test(ranked, params)
	if err != nil {
		return err
	}
	logger.Info("analysis complete", zap.Int("significant", len(results)))

	out, closeOut, err := openOutput(flags.outputPath)
	if err != nil {
		return err
	}
	defer closeOut()

	w := output.NewRankWriter(out)
	if err := w.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range results {
		if err := w.Write(r); err != nil {
			return fmt.Errorf("writing result: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if flags.dbPath != "" {
		store, err := duckdb.Open(flags.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		runID := resolveRunID(flags.runID)
		if err := store.SaveRankResults(runID, results); err != nil {
			return err
		}
		logger.Info("stored results", zap.String("run_id", runID), zap.String("db", flags.dbPath))
	}
	return nil
}

func resolveRunID(runID string) string {
	if runID != "" {
		return runID
	}
	return "run-" + time.Now().UTC().Format("20060102T150405Z")
}

// readGeneList reads one gene name per line, skipping blank lines and
// comments. Use '-' for stdin; gzipped files are detected by extension.
func readGeneList(path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open gene list: %w", err)
		}
		defer f.Close()
		r = f
		if strings.HasSuffix(path, ".gz") {
			gz, err := gzip.NewReader(f)
			if err != nil {
				return nil, fmt.Errorf("open gzip reader: %w", err)
			}
			defer gz.Close()
			r = gz
		}
	}

	var genes []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		genes = append(genes, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gene list: %w", err)
	}
	return genes, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}
