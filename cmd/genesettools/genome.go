package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/exprlab/genesettools/internal/genome"
	"github.com/exprlab/genesettools/internal/gtf"
)

func newGenomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genome",
		Short: "Build genome files from annotation data",
	}
	cmd.AddCommand(newGenomeExtractCmd())
	return cmd
}

func newGenomeExtractCmd() *cobra.Command {
	var (
		annotationPath string
		outputPath     string
		chromPattern   string
		featureType    string
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract protein-coding genes from a GTF annotation file",
		Example: `  genesettools genome extract -a gencode.v46.annotation.gtf.gz -o genes.tsv
  genesettools genome extract -a anno.gtf -o genes.tsv --chrom-pattern '\d\d?|X'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			genes, stats, err := gtf.ExtractGenes(annotationPath, gtf.Options{
				ChromPattern: chromPattern,
				FeatureType:  featureType,
			})
			if err != nil {
				return err
			}
			logger.Info("extracted protein-coding genes",
				zap.Int("genes", stats.Genes),
				zap.Int("lines", stats.Lines),
				zap.Int("missing_name", stats.MissingName),
				zap.Int("redundant", stats.RedundantGenes),
				zap.Strings("excluded_chroms", stats.ExcludedChroms))

			g, err := genome.New(genes)
			if err != nil {
				return err
			}
			if err := genome.Write(g, outputPath); err != nil {
				return err
			}
			logger.Info("wrote genome", zap.Int("genes", g.Size()), zap.String("output", outputPath))
			return nil
		},
	}

	cmd.Flags().StringVarP(&annotationPath, "annotation", "a", "", "Input GTF annotation file (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output gene TSV file (required)")
	cmd.Flags().StringVar(&chromPattern, "chrom-pattern", "", "Regular expression for chromosome names to keep")
	cmd.Flags().StringVar(&featureType, "feature-type", "", "GTF feature type to scan (default: gene)")
	cmd.MarkFlagRequired("annotation")
	cmd.MarkFlagRequired("output")
	return cmd
}
