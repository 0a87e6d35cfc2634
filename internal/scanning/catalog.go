package scanning

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// CatalogEntry is a known product with its list price
type CatalogEntry struct {
	Name      string  `json:"name"`
	Code      string  `json:"code,omitempty"`
	UnitPrice float64 `json:"unitPrice"`
}

// Catalog finds known product names anywhere in a receipt's text.
// It is only consulted when no product rows could be read.
type Catalog struct {
	entries []CatalogEntry
	matcher *ahocorasick.Matcher
}

// NewCatalog builds a case-insensitive matcher over the entry names.
// Entries with empty names are skipped.
func NewCatalog(entries []CatalogEntry) *Catalog {
	c := &Catalog{}
	patterns := make([][]byte, 0, len(entries))
	for _, e := range entries {
		name := strings.ToLower(strings.TrimSpace(e.Name))
		if name == "" {
			continue
		}
		c.entries = append(c.entries, e)
		patterns = append(patterns, []byte(name))
	}
	if len(patterns) > 0 {
		c.matcher = ahocorasick.NewMatcher(patterns)
	}
	return c
}

// LoadCatalog reads a JSON array of catalog entries from disk
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var entries []CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return NewCatalog(entries), nil
}

// Len returns the number of usable entries
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Match returns one inferred line item per entry found in text, in catalog order
func (c *Catalog) Match(text string) []LineItem {
	if c == nil || c.matcher == nil {
		return nil
	}

	hits := c.matcher.MatchThreadSafe([]byte(strings.ToLower(text)))
	if len(hits) == 0 {
		return nil
	}
	sort.Ints(hits)

	items := make([]LineItem, 0, len(hits))
	seen := make(map[int]bool, len(hits))
	for _, idx := range hits {
		if idx < 0 || idx >= len(c.entries) || seen[idx] {
			continue
		}
		seen[idx] = true
		e := c.entries[idx]
		items = append(items, NormalizeLineItem(LineItem{
			Description: e.Name,
			Code:        e.Code,
			Quantity:    1,
			UnitPrice:   e.UnitPrice,
			Inferred:    true,
		}))
	}
	return items
}
