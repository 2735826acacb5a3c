// Package knowledge holds the static aromatic-ingredient reference table
// consulted by the matching and feature-derivation stages. A Base is
// immutable after construction and safe for unlimited concurrent readers.
package knowledge

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed data/ingredients.yaml
var seedData []byte

// Volatility is the evaporation-rate class of an ingredient.
type Volatility string

const (
	VolatilityTop     Volatility = "top"
	VolatilityHeart   Volatility = "heart"
	VolatilityBase    Volatility = "base"
	VolatilityUnknown Volatility = "unknown"
)

// Range is a typical usage range in percent of the total formula.
type Range struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

// Entry describes one known aromatic ingredient.
type Entry struct {
	Name         string     `yaml:"name" json:"name"`
	Aliases      []string   `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Families     []string   `yaml:"families,omitempty" json:"families,omitempty"`
	PrimaryNotes []string   `yaml:"primary_notes,omitempty" json:"primary_notes,omitempty"`
	Volatility   Volatility `yaml:"volatility,omitempty" json:"volatility,omitempty"`
	TypicalRange *Range     `yaml:"typical_range_pct,omitempty" json:"typical_range_pct,omitempty"`
	Allergens    []string   `yaml:"allergens,omitempty" json:"allergens,omitempty"`
}

// Base is an immutable ingredient lookup table with a stable iteration
// order. It is constructed once and injected where needed, never accessed
// as ambient global state.
type Base struct {
	entries []Entry
}

// New builds a Base from entries, preserving their order. Entries without a
// recognized volatility class are coerced to VolatilityUnknown.
func New(entries []Entry) *Base {
	for i := range entries {
		switch entries[i].Volatility {
		case VolatilityTop, VolatilityHeart, VolatilityBase:
		default:
			entries[i].Volatility = VolatilityUnknown
		}
	}
	return &Base{entries: entries}
}

// Load builds a Base from the embedded seed table.
func Load() (*Base, error) {
	return parse(seedData)
}

// LoadFile builds a Base from a YAML file with the same layout as the
// embedded seed.
func LoadFile(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "knowledge: read %s", path)
	}
	return parse(data)
}

func parse(data []byte) (*Base, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrap(err, "knowledge: parse ingredient table")
	}
	if len(entries) == 0 {
		return nil, eris.New("knowledge: ingredient table is empty")
	}
	return New(entries), nil
}

// Entries returns the entries in their stable load order. Callers must
// treat the returned slice as read-only.
func (b *Base) Entries() []Entry {
	return b.entries
}

// Len reports the number of entries.
func (b *Base) Len() int {
	return len(b.entries)
}
