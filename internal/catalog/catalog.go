// Package catalog loads the municipality reference list used to drive a run.
package catalog

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"muniresults/internal/models"
)

// DefaultPath is the file name the reference catalog is published under.
const DefaultPath = "municipios_brasileiros_tse.json"

// entry is one element of the published catalog; other keys are ignored.
type entry struct {
	State         string `json:"uf"`
	ElectoralCode int    `json:"codigo_tse"`
	Name          string `json:"nome_municipio"`
}

// Catalog is the ordered list of municipalities
type Catalog struct {
	Municipalities []models.MunicipalityDescriptor
}

// Load reads the catalog file at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Read decodes a catalog keeping the order of the source.
func Read(r io.Reader) (*Catalog, error) {
	var entries []entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	c := &Catalog{Municipalities: make([]models.MunicipalityDescriptor, 0, len(entries))}
	for i, e := range entries {
		m := models.MunicipalityDescriptor{
			StateCode:     strings.ToLower(strings.TrimSpace(e.State)),
			ElectoralCode: e.ElectoralCode,
			DisplayName:   strings.TrimSpace(e.Name),
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		c.Municipalities = append(c.Municipalities, m)
	}
	return c, nil
}

// Len returns the number of municipalities.
func (c *Catalog) Len() int {
	return len(c.Municipalities)
}

// StateCount is the number of municipalities of one state
type StateCount struct {
	StateCode string
	Count     int
}

// CountByState returns the municipality count per state sorted by state code.
func (c *Catalog) CountByState() []StateCount {
	counts := make(map[string]int)
	for _, m := range c.Municipalities {
		counts[m.StateCode]++
	}
	out := make([]StateCount, 0, len(counts))
	for state, n := range counts {
		out = append(out, StateCount{StateCode: state, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StateCode < out[j].StateCode })
	return out
}
