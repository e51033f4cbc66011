package genesets

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// GMT is the tab-delimited "gene matrix transposed" format used for
// MSigDB downloads: one gene set per line, first column the set name,
// second a description or URL, remaining columns the gene names.

// ReadGMT loads a Collection from a GMT file. Gzipped files are detected
// by extension. The set name doubles as the set ID.
func ReadGMT(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gmt file: %w", err)
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
	return ReadGMTFrom(r)
}

// ReadGMTFrom loads a Collection from GMT-formatted text.
func ReadGMTFrom(r io.Reader) (*Collection, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var sets []*GeneSet
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("genesets: gmt line %d has %d columns, want >= 3",
				lineNum, len(fields))
		}
		s, err := New(fields[0], fields[0], fields[2:])
		if err != nil {
			return nil, fmt.Errorf("genesets: gmt line %d: %w", lineNum, err)
		}
		if !strings.HasPrefix(fields[1], "http") {
			s.Description = fields[1]
		}
		sets = append(sets, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gmt: %w", err)
	}
	return NewCollection(sets)
}
