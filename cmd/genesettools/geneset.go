package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/exprlab/genesettools/internal/duckdb"
	"github.com/exprlab/genesettools/internal/genesets"
)

func newGeneSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geneset",
		Short: "Convert and store gene set collections",
	}
	cmd.AddCommand(newGeneSetConvertCmd())
	cmd.AddCommand(newGeneSetStoreCmd())
	cmd.AddCommand(newGeneSetExportCmd())
	return cmd
}

func newGeneSetConvertCmd() *cobra.Command {
	var (
		inputPath     string
		outputPath    string
		species       string
		entrezMapPath string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert GMT or MSigDB XML gene sets to TSV",
		Example: `  genesettools geneset convert -i c5.go.bp.symbols.gmt -o go_bp.tsv
  genesettools geneset convert -i msigdb.xml -o msigdb.tsv --species "Homo sapiens" --entrez-map entrez2symbol.tsv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGeneSetConvert(inputPath, outputPath, species, entrezMapPath)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input gene set file: GMT or MSigDB XML (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output TSV file (required)")
	cmd.Flags().StringVar(&species, "species", "", "Only keep MSigDB sets for this organism (e.g. \"Homo sapiens\")")
	cmd.Flags().StringVar(&entrezMapPath, "entrez-map", "", "Two-column TSV mapping Entrez IDs to gene symbols (MSigDB XML only)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}

func runGeneSetConvert(inputPath, outputPath, species, entrezMapPath string) error {
	var c *genesets.Collection
	var err error

	base := strings.ToLower(strings.TrimSuffix(inputPath, ".gz"))
	switch {
	case strings.HasSuffix(base, ".xml"):
		opts := genesets.MSigDBOptions{Species: species}
		if species == "" {
			opts.Species = viper.GetString("msigdb.species")
		}
		if entrezMapPath != "" {
			opts.EntrezToGene, err = readEntrezMap(entrezMapPath)
			if err != nil {
				return err
			}
		}
		var stats genesets.MSigDBStats
		c, stats, err = genesets.ReadMSigDB(inputPath, opts)
		if err != nil {
			return err
		}
		logger.Info("read MSigDB gene sets",
			zap.Int("total", stats.TotalSets),
			zap.Int("species_excluded", stats.SpeciesExcluded),
			zap.Int("empty", stats.EmptySets),
			zap.Int("unknown_entrez", stats.UnknownEntrez))
	case strings.HasSuffix(base, ".gmt"):
		c, err = genesets.ReadGMT(inputPath)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported gene set format %q (want .gmt or .xml)", inputPath)
	}

	if err := genesets.Write(c, outputPath); err != nil {
		return err
	}
	logger.Info("wrote gene sets", zap.Int("sets", c.Size()), zap.String("output", outputPath))
	return nil
}

func newGeneSetStoreCmd() *cobra.Command {
	var (
		inputPath string
		dbPath    string
	)

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Store a gene set collection in a DuckDB database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCollection(inputPath)
			if err != nil {
				return err
			}
			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveCollection(c); err != nil {
				return err
			}
			logger.Info("stored gene sets", zap.Int("sets", c.Size()), zap.String("db", dbPath))
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input gene set file: TSV, GMT or MSigDB XML (required)")
	cmd.Flags().StringVar(&dbPath, "db", "", "DuckDB database path (required)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("db")
	return cmd
}

func newGeneSetExportCmd() *cobra.Command {
	var (
		outputPath string
		dbPath     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored gene sets from a DuckDB database to TSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			c, err := store.LoadCollection()
			if err != nil {
				return err
			}
			if err := genesets.Write(c, outputPath); err != nil {
				return err
			}
			logger.Info("exported gene sets", zap.Int("sets", c.Size()), zap.String("output", outputPath))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output TSV file (required)")
	cmd.Flags().StringVar(&dbPath, "db", "", "DuckDB database path (required)")
	cmd.MarkFlagRequired("output")
	cmd.MarkFlagRequired("db")
	return cmd
}

// readEntrezMap reads a two-column TSV of Entrez ID to gene symbol.
func readEntrezMap(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open Entrez map: %w", err)
	}
	defer f.Close()

	m := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			return nil, fmt.Errorf("entrez map line %d: want 2 columns, got %d", lineNum, len(fields))
		}
		m[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read Entrez map: %w", err)
	}
	return m, nil
}
