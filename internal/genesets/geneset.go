// Package genesets provides gene set containers and readers for the
// common gene set database formats (flat TSV, GMT, MSigDB XML).
package genesets

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateID is returned when a Collection is constructed from
	// gene sets sharing an ID.
	ErrDuplicateID = errors.New("genesets: duplicate gene set ID")

	// ErrNotFound is returned when a gene set ID is not in a Collection.
	ErrNotFound = errors.New("genesets: gene set not found")
)

// GeneSet is a named, unordered set of gene identifiers, usually grouping
// genes that share some biological property. Metadata fields are free-form;
// Source names the database of origin (e.g. "MSigDB") and Collection the
// sub-collection within it (e.g. "c2"). The gene list is fixed at
// construction: a membership matrix derived from a GeneSet stays valid for
// its lifetime.
type GeneSet struct {
	ID          string
	Name        string
	Source      string
	Collection  string
	Description string

	genes   []string
	members map[string]struct{}
}

// New constructs a GeneSet. Duplicate gene names collapse; genes are kept
// sorted. An empty ID, name or gene list is an error.
func New(id, name string, genes []string) (*GeneSet, error) {
	if id == "" {
		return nil, fmt.Errorf("genesets: gene set with empty ID")
	}
	if name == "" {
		return nil, fmt.Errorf("genesets: gene set %q has empty name", id)
	}
	members := make(map[string]struct{}, len(genes))
	for _, g := range genes {
		if g == "" {
			continue
		}
		members[g] = struct{}{}
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("genesets: gene set %q has no genes", id)
	}
	sorted := make([]string, 0, len(members))
	for g := range members {
		sorted = append(sorted, g)
	}
	sort.Strings(sorted)
	return &GeneSet{ID: id, Name: name, genes: sorted, members: members}, nil
}

// Size returns the number of genes in the set.
func (s *GeneSet) Size() int {
	return len(s.genes)
}

// Genes returns the gene names in sorted order. The returned slice is
// shared; callers must not modify it.
func (s *GeneSet) Genes() []string {
	return s.genes
}

// Contains reports whether the named gene belongs to the set.
func (s *GeneSet) Contains(gene string) bool {
	_, ok := s.members[gene]
	return ok
}

func (s *GeneSet) String() string {
	return fmt.Sprintf("<GeneSet %q (id=%s; source=%s; collection=%s; size=%d)>",
		s.Name, s.ID, s.Source, s.Collection, len(s.genes))
}

// Equal reports content-based equality: same ID, metadata and gene names.
func (s *GeneSet) Equal(o *GeneSet) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	if s.ID != o.ID || s.Name != o.Name || s.Source != o.Source ||
		s.Collection != o.Collection || s.Description != o.Description ||
		len(s.genes) != len(o.genes) {
		return false
	}
	for i, g := range s.genes {
		if o.genes[i] != g {
			return false
		}
	}
	return true
}

// Collection is an ordered, ID-unique sequence of gene sets with eager
// by-ID and by-position indexes.
type Collection struct {
	sets []*GeneSet
	byID map[string]int
}

// NewCollection constructs a Collection. It fails with ErrDuplicateID if
// two gene sets share an ID.
func NewCollection(sets []*GeneSet) (*Collection, error) {
	c := &Collection{
		sets: make([]*GeneSet, len(sets)),
		byID: make(map[string]int, len(sets)),
	}
	copy(c.sets, sets)
	for i, s := range c.sets {
		if s == nil {
			return nil, fmt.Errorf("genesets: nil gene set at position %d", i)
		}
		if _, ok := c.byID[s.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, s.ID)
		}
		c.byID[s.ID] = i
	}
	return c, nil
}

// Size returns the number of gene sets.
func (c *Collection) Size() int {
	return len(c.sets)
}

// GetByID returns the gene set with the given ID.
func (c *Collection) GetByID(id string) (*GeneSet, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return c.sets[i], nil
}

// GetByIndex returns the gene set at position i.
func (c *Collection) GetByIndex(i int) (*GeneSet, error) {
	if i < 0 || i >= len(c.sets) {
		return nil, fmt.Errorf("genesets: index %d out of range [0, %d)", i, len(c.sets))
	}
	return c.sets[i], nil
}

// Index returns the position of the gene set with the given ID.
func (c *Collection) Index(id string) (int, error) {
	i, ok := c.byID[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return i, nil
}

// Sets returns the gene sets in collection order. The returned slice is
// shared; callers must not modify it.
func (c *Collection) Sets() []*GeneSet {
	return c.sets
}

// IDs returns the gene set IDs in collection order.
func (c *Collection) IDs() []string {
	ids := make([]string, len(c.sets))
	for i, s := range c.sets {
		ids[i] = s.ID
	}
	return ids
}

func (c *Collection) String() string {
	return fmt.Sprintf("<Collection with %d gene sets>", len(c.sets))
}

// Equal reports content-based equality: same gene sets in the same order.
func (c *Collection) Equal(o *Collection) bool {
	if c == o {
		return true
	}
	if c == nil || o == nil || len(c.sets) != len(o.sets) {
		return false
	}
	for i, s := range c.sets {
		if !s.Equal(o.sets[i]) {
			return false
		}
	}
	return true
}
