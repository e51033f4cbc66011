package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/exprlab/genesettools/internal/genome"
)

// FileFingerprint holds stat-based identity for a source file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// GenomeCache manages a gob-serialized genome extracted from a GTF
// file, so repeated runs skip the GTF parse. Files live alongside the
// database:
//
//	{dir}/genome.gob       (serialized gene records)
//	{dir}/genome.gob.meta  (source GTF fingerprint)
type GenomeCache struct {
	dir string
}

// NewGenomeCache creates a genome cache for the given directory.
func NewGenomeCache(dir string) *GenomeCache {
	return &GenomeCache{dir: dir}
}

func (gc *GenomeCache) gobPath() string {
	return filepath.Join(gc.dir, "genome.gob")
}

func (gc *GenomeCache) metaPath() string {
	return filepath.Join(gc.dir, "genome.gob.meta")
}

// Valid checks whether the cached genome matches the current GTF file.
func (gc *GenomeCache) Valid(gtf FileFingerprint) bool {
	meta, err := gc.readMeta()
	if err != nil {
		return false
	}
	if meta["gtf_size"] != strconv.FormatInt(gtf.Size, 10) {
		return false
	}
	if meta["gtf_modtime"] != gtf.ModTime.UTC().Format(time.RFC3339Nano) {
		return false
	}
	if _, err := os.Stat(gc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads the serialized genome from disk.
func (gc *GenomeCache) Load() (*genome.Genome, error) {
	f, err := os.Open(gc.gobPath())
	if err != nil {
		return nil, fmt.Errorf("open genome cache: %w", err)
	}
	defer f.Close()

	var genes []genome.Gene
	if err := gob.NewDecoder(f).Decode(&genes); err != nil {
		return nil, fmt.Errorf("decode genome cache: %w", err)
	}
	return genome.New(genes)
}

// Write serializes the genome to disk along with the GTF fingerprint it
// was extracted from.
func (gc *GenomeCache) Write(g *genome.Genome, gtf FileFingerprint) error {
	if err := os.MkdirAll(gc.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	genes := make([]genome.Gene, g.Size())
	for i := range genes {
		gene, err := g.GeneAt(i)
		if err != nil {
			return err
		}
		genes[i] = gene
	}

	f, err := os.Create(gc.gobPath())
	if err != nil {
		return fmt.Errorf("create genome cache: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(genes); err != nil {
		f.Close()
		os.Remove(gc.gobPath())
		return fmt.Errorf("encode genome cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close genome cache: %w", err)
	}

	return gc.writeMeta(gtf)
}

// Clear removes the cached genome files.
func (gc *GenomeCache) Clear() {
	os.Remove(gc.gobPath())
	os.Remove(gc.metaPath())
}

func (gc *GenomeCache) writeMeta(gtf FileFingerprint) error {
	lines := []string{
		"gtf_path=" + gtf.Path,
		"gtf_size=" + strconv.FormatInt(gtf.Size, 10),
		"gtf_modtime=" + gtf.ModTime.UTC().Format(time.RFC3339Nano),
		"created_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}
	return os.WriteFile(gc.metaPath(), []byte(strings.Join(lines, "\n")), 0644)
}

func (gc *GenomeCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(gc.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
