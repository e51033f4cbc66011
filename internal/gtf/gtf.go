// Package gtf extracts protein-coding gene annotations from Ensembl and
// GENCODE GTF files. The extracted genes feed genome construction; the
// exon-level structure of the GTF is ignored.
package gtf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/exprlab/genesettools/internal/genome"
)

// DefaultChromPattern matches the canonical human chromosomes (1-22, X,
// Y, MT) after any "chr" prefix has been stripped.
const DefaultChromPattern = `\d\d?|MT|X|Y`

// Biotypes counted as protein-coding. Polymorphic pseudogenes code for
// proteins in some individuals and are kept.
var codingBiotypes = map[string]bool{
	"protein_coding":         true,
	"polymorphic_pseudogene": true,
}

// Options control gene extraction.
type Options struct {
	// ChromPattern is a regular expression a chromosome name must fully
	// match (after "chr" prefix stripping) for its genes to be kept.
	// Empty means DefaultChromPattern.
	ChromPattern string

	// FeatureType is the GTF feature column value to scan. Empty means
	// "gene".
	FeatureType string
}

// Stats reports what was seen during extraction.
type Stats struct {
	Lines          int
	Genes          int
	MissingName    int
	RedundantGenes int
	Biotypes       map[string]int
	Sources        map[string]int
	ExcludedChroms []string
}

// ExtractGenes parses a GTF file and returns its protein-coding genes,
// one record per gene name with chromosomes and Ensembl IDs aggregated
// across annotations. Gzipped files are detected by extension.
func ExtractGenes(path string, opts Options) ([]genome.Gene, *Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return ExtractGenesFrom(r, opts)
}

// ExtractGenesFrom parses GTF content from a reader.
func ExtractGenesFrom(r io.Reader, opts Options) ([]genome.Gene, *Stats, error) {
	pattern := opts.ChromPattern
	if pattern == "" {
		pattern = DefaultChromPattern
	}
	chromRe, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, nil, fmt.Errorf("compile chromosome pattern: %w", err)
	}
	featureType := opts.FeatureType
	if featureType == "" {
		featureType = "gene"
	}

	stats := &Stats{
		Biotypes: make(map[string]int),
		Sources:  make(map[string]int),
	}
	chromsByGene := make(map[string]map[string]bool)
	idsByGene := make(map[string]map[string]bool)
	annotations := make(map[string]int)
	excluded := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		stats.Lines++
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 9 || fields[2] != featureType {
			continue
		}

		attrs := parseAttributes(fields[8])
		biotype := attrs["gene_biotype"]
		if biotype == "" {
			// GENCODE files use gene_type instead of gene_biotype.
			biotype = attrs["gene_type"]
		}
		if !codingBiotypes[biotype] {
			continue
		}

		chrom := normalizeChrom(fields[0])
		if !chromRe.MatchString(chrom) {
			excluded[chrom] = true
			continue
		}

		name := attrs["gene_name"]
		if name == "" {
			stats.MissingName++
			continue
		}
		id := stripVersion(attrs["gene_id"])

		annotations[name]++
		if chromsByGene[name] == nil {
			chromsByGene[name] = make(map[string]bool)
			idsByGene[name] = make(map[string]bool)
		}
		chromsByGene[name][chrom] = true
		if id != "" {
			idsByGene[name][id] = true
		}

		stats.Sources[fields[1]]++
		stats.Biotypes[biotype]++
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan GTF: %w", err)
	}

	names := make([]string, 0, len(annotations))
	for name, n := range annotations {
		names = append(names, name)
		if n > 1 {
			stats.RedundantGenes++
		}
	}
	sort.Strings(names)

	genes := make([]genome.Gene, len(names))
	for i, name := range names {
		genes[i] = genome.Gene{
			Name:        name,
			Chromosomes: sortedKeys(chromsByGene[name]),
			EnsemblIDs:  sortedKeys(idsByGene[name]),
		}
	}
	stats.Genes = len(genes)
	stats.ExcludedChroms = sortedKeys(excluded)
	return genes, stats, nil
}

// parseAttributes parses the 9th GTF field into a key/value map.
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)
	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, " ")
		if idx == -1 {
			continue
		}
		key := part[:idx]
		value := strings.TrimSpace(part[idx+1:])
		value = strings.Trim(value, "\"")
		attrs[key] = value
	}
	return attrs
}

// stripVersion removes the trailing version suffix from an Ensembl ID.
func stripVersion(id string) string {
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}

// normalizeChrom removes the "chr" prefix GENCODE uses so chromosome
// names match Ensembl conventions.
func normalizeChrom(chrom string) string {
	if strings.HasPrefix(chrom, "chr") {
		return chrom[3:]
	}
	return chrom
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
