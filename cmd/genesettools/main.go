// Package main provides the genesettools command-line tool.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/exprlab/genesettools/internal/duckdb"
	"github.com/exprlab/genesettools/internal/genesets"
	"github.com/exprlab/genesettools/internal/genome"
	"github.com/exprlab/genesettools/internal/gtf"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile string
	verbose bool
	logger  = zap.NewNop()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "genesettools",
		Short: "Gene set enrichment analysis toolkit",
		Long: `genesettools tests gene lists and gene rankings for enrichment of
functional gene sets, using the hypergeometric test for fixed gene
lists and the XL-mHG test for ranked lists.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			return initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.genesettools.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newEnrichCmd())
	root.AddCommand(newGeneSetCmd())
	root.AddCommand(newGenomeCmd())
	root.AddCommand(newDownloadCmd())
	root.AddCommand(newConfigCmd())

	return root
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".genesettools")
	}

	viper.SetEnvPrefix("GENESETTOOLS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func initLogger() error {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	logger = l
	return nil
}

// dataDir returns the directory for downloaded files and caches.
func dataDir() (string, error) {
	if dir := viper.GetString("data_dir"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".genesettools"), nil
}

// loadGenome loads a genome from a TSV file, or extracts one from a GTF
// annotation file. GTF extraction results are cached next to the data
// directory and reused while the source file is unchanged.
func loadGenome(path string) (*genome.Genome, error) {
	if !isGTF(path) {
		return genome.Read(path)
	}

	fp, err := duckdb.StatFile(path)
	if err != nil {
		return nil, fmt.Errorf("stat GTF file: %w", err)
	}

	dir, err := dataDir()
	if err != nil {
		return nil, err
	}
	cache := duckdb.NewGenomeCache(filepath.Join(dir, "cache"))
	if cache.Valid(fp) {
		g, err := cache.Load()
		if err == nil {
			logger.Debug("loaded genome from cache", zap.Int("genes", g.Size()))
			return g, nil
		}
		logger.Warn("discarding unreadable genome cache", zap.Error(err))
		cache.Clear()
	}

	genes, stats, err := gtf.ExtractGenes(path, gtf.Options{
		ChromPattern: viper.GetString("gtf.chrom_pattern"),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("extracted protein-coding genes",
		zap.Int("genes", stats.Genes),
		zap.Int("lines", stats.Lines),
		zap.Int("missing_name", stats.MissingName),
		zap.Strings("excluded_chroms", stats.ExcludedChroms))

	g, err := genome.New(genes)
	if err != nil {
		return nil, err
	}
	if err := cache.Write(g, fp); err != nil {
		logger.Warn("could not write genome cache", zap.Error(err))
	}
	return g, nil
}

// loadCollection loads gene sets from TSV, GMT or MSigDB XML based on
// the file extension.
func loadCollection(path string) (*genesets.Collection, error) {
	base := strings.ToLower(path)
	base = strings.TrimSuffix(base, ".gz")
	switch {
	case strings.HasSuffix(base, ".gmt"):
		return genesets.ReadGMT(path)
	case strings.HasSuffix(base, ".xml"):
		c, stats, err := genesets.ReadMSigDB(path, genesets.MSigDBOptions{
			Species: viper.GetString("msigdb.species"),
		})
		if err != nil {
			return nil, err
		}
		logger.Info("read MSigDB gene sets",
			zap.Int("total", stats.TotalSets),
			zap.Int("species_excluded", stats.SpeciesExcluded),
			zap.Int("empty", stats.EmptySets))
		return c, nil
	default:
		return genesets.Read(path)
	}
}

func isGTF(path string) bool {
	base := strings.ToLower(path)
	base = strings.TrimSuffix(base, ".gz")
	return strings.HasSuffix(base, ".gtf")
}
