package survey

import (
	"errors"
	"fmt"
	"strings"
)

// LocationRowSize is the number of location ids shown per keyboard row.
const LocationRowSize = 3

var defaultPrompts = []string{
	"Протерли пыль на подоконниках?",
	"Пропарили белье?",
	"Поменяли водичку в ершиках?",
}

var defaultLocations = []string{
	"9к3-27", "9к3-28", "9к3-29", "9к3-78", "13-51", "11с1-347", "5.-4",
	"42-1", "42-52", "42-105", "42-144", "3-174", "3-334", "3-852",
	"69к5-138", "7к1-348", "73к5-751", "73к5-752",
}

// Catalog is the read-only set of prompts and location ids a conversation walks through.
type Catalog struct {
	prompts   []string
	locations []string
	known     map[string]struct{}
}

// NewCatalog validates and freezes the provided prompts and locations.
func NewCatalog(prompts, locations []string) (*Catalog, error) {
	if len(prompts) == 0 {
		return nil, errors.New("survey: catalog needs at least one prompt")
	}
	if len(locations) == 0 {
		return nil, errors.New("survey: catalog needs at least one location")
	}
	for i, p := range prompts {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("survey: prompt %d is blank", i+1)
		}
	}

	known := make(map[string]struct{}, len(locations))
	for _, loc := range locations {
		if strings.TrimSpace(loc) == "" {
			return nil, errors.New("survey: blank location id")
		}
		if _, dup := known[loc]; dup {
			return nil, fmt.Errorf("survey: duplicate location id %q", loc)
		}
		known[loc] = struct{}{}
	}

	return &Catalog{
		prompts:   append([]string(nil), prompts...),
		locations: append([]string(nil), locations...),
		known:     known,
	}, nil
}

// DefaultCatalog returns the built-in prompts and apartments.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultPrompts, defaultLocations)
	if err != nil {
		panic(err)
	}
	return c
}

// Len is the number of prompts.
func (c *Catalog) Len() int { return len(c.prompts) }

// Prompt returns the i-th prompt.
func (c *Catalog) Prompt(i int) string { return c.prompts[i] }

// Prompts returns a copy of the prompts in order.
func (c *Catalog) Prompts() []string {
	return append([]string(nil), c.prompts...)
}

// Locations returns a copy of the location ids in presentation order.
func (c *Catalog) Locations() []string {
	return append([]string(nil), c.locations...)
}

// ValidLocation reports whether id is one of the catalog locations.
func (c *Catalog) ValidLocation(id string) bool {
	_, ok := c.known[id]
	return ok
}

// LocationRows groups location ids into rows of LocationRowSize for reply keyboards.
func (c *Catalog) LocationRows() [][]string {
	rows := make([][]string, 0, (len(c.locations)+LocationRowSize-1)/LocationRowSize)
	for i := 0; i < len(c.locations); i += LocationRowSize {
		end := i + LocationRowSize
		if end > len(c.locations) {
			end = len(c.locations)
		}
		rows = append(rows, append([]string(nil), c.locations[i:end]...))
	}
	return rows
}
