package genesets

import (
	"compress/gzip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// MSigDBOptions configures parsing of the full MSigDB XML database.
type MSigDBOptions struct {
	// Species keeps only gene sets whose ORGANISM attribute matches
	// (e.g. "Homo sapiens"). Empty keeps all species.
	Species string

	// EntrezToGene translates the Entrez IDs listed in MEMBERS_EZID to
	// gene symbols. IDs without a mapping are dropped and counted. If
	// nil, the raw Entrez IDs are used as gene names.
	EntrezToGene map[string]string
}

// MSigDBStats accumulates diagnostics from an MSigDB parse. Unknown
// Entrez IDs and species exclusions are data-quality conditions, not
// errors; callers decide whether the counts warrant a warning.
type MSigDBStats struct {
	TotalSets       int // GENESET entries seen
	SpeciesExcluded int // entries dropped by the species filter
	EmptySets       int // entries dropped because no gene resolved
	TotalGenes      int // gene references seen in kept entries
	UnknownEntrez   int // gene references without a symbol mapping
}

// ReadMSigDB parses the complete MSigDB database from its XML dump.
// Gzipped files are detected by extension.
func ReadMSigDB(path string, opts MSigDBOptions) (*Collection, MSigDBStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, MSigDBStats{}, fmt.Errorf("open msigdb file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, MSigDBStats{}, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return ReadMSigDBFrom(r, opts)
}

// ReadMSigDBFrom parses MSigDB XML from a reader using a streaming
// decoder, so the full document is never held in memory.
func ReadMSigDBFrom(r io.Reader, opts MSigDBOptions) (*Collection, MSigDBStats, error) {
	var stats MSigDBStats
	var sets []*GeneSet

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("parse msigdb xml: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "GENESET" {
			continue
		}

		attrs := make(map[string]string, len(start.Attr))
		for _, a := range start.Attr {
			attrs[a.Name.Local] = a.Value
		}
		stats.TotalSets++

		if opts.Species != "" && attrs["ORGANISM"] != opts.Species {
			stats.SpeciesExcluded++
			continue
		}

		var genes []string
		for _, ez := range strings.Split(attrs["MEMBERS_EZID"], ",") {
			if ez == "" {
				continue
			}
			stats.TotalGenes++
			if opts.EntrezToGene == nil {
				genes = append(genes, ez)
				continue
			}
			if symbol, ok := opts.EntrezToGene[ez]; ok {
				genes = append(genes, symbol)
			} else {
				stats.UnknownEntrez++
			}
		}
		if len(genes) == 0 {
			stats.EmptySets++
			continue
		}

		s, err := New(attrs["SYSTEMATIC_NAME"], attrs["STANDARD_NAME"], genes)
		if err != nil {
			return nil, stats, fmt.Errorf("msigdb entry %d: %w", stats.TotalSets, err)
		}
		s.Source = "MSigDB"
		s.Collection = attrs["CATEGORY_CODE"]
		s.Description = attrs["DESCRIPTION_BRIEF"]
		sets = append(sets, s)
	}

	c, err := NewCollection(sets)
	if err != nil {
		return nil, stats, err
	}
	return c, stats, nil
}
