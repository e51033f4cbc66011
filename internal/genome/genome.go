// Package genome provides the ordered gene universe used by enrichment
// analyses. A Genome fixes the set of "known" genes and assigns each a
// stable 0-based index; everything downstream (membership matrices,
// enrichment engines) refers to genes by these indices.
package genome

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrDuplicateGene is returned when a Genome is constructed from a
	// gene list containing the same name twice. Silent deduplication
	// would shrink the universe and desynchronize externally held
	// indices, so this is always a hard error.
	ErrDuplicateGene = errors.New("genome: duplicate gene name")

	// ErrNotFound is returned when a gene name is not in the Genome.
	ErrNotFound = errors.New("genome: gene not found")
)

// Gene is a single gene in the analysis universe. Chromosomes and
// EnsemblIDs are slices to accommodate genes in the pseudoautosomal
// region of X/Y, which carry one Ensembl ID per chromosome copy but are
// treated as a single gene in expression analyses.
type Gene struct {
	Name        string
	Chromosomes []string
	EnsemblIDs  []string
}

// NewGene returns a Gene with only a name set.
func NewGene(name string) Gene {
	return Gene{Name: name}
}

func (g Gene) String() string {
	return fmt.Sprintf("<Gene %q (chromosomes: %s; Ensembl IDs: %s)>",
		g.Name, strings.Join(g.Chromosomes, ","), strings.Join(g.EnsemblIDs, ","))
}

// Genome is an immutable, ordered collection of distinct genes.
type Genome struct {
	genes []Gene
	index map[string]int
}

// New constructs a Genome from an ordered gene list. It fails with
// ErrDuplicateGene if two genes share a name.
func New(genes []Gene) (*Genome, error) {
	g := &Genome{
		genes: make([]Gene, len(genes)),
		index: make(map[string]int, len(genes)),
	}
	copy(g.genes, genes)
	for i, gene := range g.genes {
		if gene.Name == "" {
			return nil, fmt.Errorf("genome: gene at position %d has empty name", i)
		}
		if _, ok := g.index[gene.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateGene, gene.Name)
		}
		g.index[gene.Name] = i
	}
	return g, nil
}

// FromNames constructs a Genome from bare gene names.
func FromNames(names []string) (*Genome, error) {
	genes := make([]Gene, len(names))
	for i, n := range names {
		genes[i] = NewGene(n)
	}
	return New(genes)
}

// Size returns the number of genes in the universe.
func (g *Genome) Size() int {
	return len(g.genes)
}

// Index returns the 0-based position of the named gene.
func (g *Genome) Index(name string) (int, error) {
	i, ok := g.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return i, nil
}

// GeneAt returns the gene at position i.
func (g *Genome) GeneAt(i int) (Gene, error) {
	if i < 0 || i >= len(g.genes) {
		return Gene{}, fmt.Errorf("genome: index %d out of range [0, %d)", i, len(g.genes))
	}
	return g.genes[i], nil
}

// Contains reports whether the named gene is part of the universe.
func (g *Genome) Contains(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Names returns the gene names in genome order.
func (g *Genome) Names() []string {
	names := make([]string, len(g.genes))
	for i, gene := range g.genes {
		names[i] = gene.Name
	}
	return names
}

func (g *Genome) String() string {
	return fmt.Sprintf("<Genome with %d genes>", len(g.genes))
}

const tsvHeader = "name\tchromosomes\tensembl_ids"

// Read loads a Genome from a tab-delimited file. Gzipped files are
// detected by extension.
func Read(path string) (*Genome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genome file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return ReadFrom(r)
}

// ReadFrom loads a Genome from tab-delimited text with a header row of
// [name, chromosomes, ensembl_ids]; the latter two are comma-joined and
// may be empty.
func ReadFrom(r io.Reader) (*Genome, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var genes []Gene
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}
		if lineNum == 1 && strings.HasPrefix(line, "name\t") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("genome: line %d has %d columns, want 3", lineNum, len(fields))
		}
		gene := Gene{Name: fields[0]}
		if fields[1] != "" {
			gene.Chromosomes = strings.Split(fields[1], ",")
		}
		if fields[2] != "" {
			gene.EnsemblIDs = strings.Split(fields[2], ",")
		}
		genes = append(genes, gene)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read genome: %w", err)
	}
	return New(genes)
}

// Write stores the Genome as tab-delimited text.
func Write(g *Genome, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create genome file: %w", err)
	}
	defer f.Close()
	if err := WriteTo(g, f); err != nil {
		return err
	}
	return f.Sync()
}

// WriteTo writes the Genome as tab-delimited text with a header row.
func WriteTo(g *Genome, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(tsvHeader + "\n"); err != nil {
		return fmt.Errorf("write genome header: %w", err)
	}
	for _, gene := range g.genes {
		row := gene.Name + "\t" +
			strings.Join(gene.Chromosomes, ",") + "\t" +
			strings.Join(gene.EnsemblIDs, ",")
		if _, err := bw.WriteString(row + "\n"); err != nil {
			return fmt.Errorf("write genome row: %w", err)
		}
	}
	return bw.Flush()
}
