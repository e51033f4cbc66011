package genesets

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Flat TSV serialization: one row per gene set, columns
// [id, source, collection, name, comma-joined-sorted-genes, description].
// Empty optional fields serialize as empty strings. The round trip is
// lossless except for gene ordering, which is canonicalized to sorted.

const tsvColumns = 6

// Read loads a Collection from a tab-delimited file. Gzipped files are
// detected by extension.
func Read(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene set file: %w", err)
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

// ReadFrom loads a Collection from tab-delimited text.
func ReadFrom(r io.Reader) (*Collection, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var sets []*GeneSet
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != tsvColumns {
			return nil, fmt.Errorf("genesets: line %d has %d columns, want %d",
				lineNum, len(fields), tsvColumns)
		}
		s, err := New(fields[0], fields[3], strings.Split(fields[4], ","))
		if err != nil {
			return nil, fmt.Errorf("genesets: line %d: %w", lineNum, err)
		}
		s.Source = fields[1]
		s.Collection = fields[2]
		s.Description = fields[5]
		sets = append(sets, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gene sets: %w", err)
	}
	return NewCollection(sets)
}

// Write stores the Collection as tab-delimited text.
func Write(c *Collection, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gene set file: %w", err)
	}
	defer f.Close()
	if err := WriteTo(c, f); err != nil {
		return err
	}
	return f.Sync()
}

// WriteTo writes the Collection as tab-delimited text.
func WriteTo(c *Collection, w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, s := range c.Sets() {
		row := strings.Join([]string{
			s.ID, s.Source, s.Collection, s.Name,
			strings.Join(s.Genes(), ","), s.Description,
		}, "\t")
		if _, err := bw.WriteString(row + "\n"); err != nil {
			return fmt.Errorf("write gene set row: %w", err)
		}
	}
	return bw.Flush()
}
