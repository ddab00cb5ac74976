// Package static provides the read-only seed catalog bundled with the binary.
package static

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

//go:embed seed.yaml
var embeddedSeed []byte

// Record is one seed entry as written in the seed file. Values keep whatever
// type the YAML decoder produced; the catalog normalizer sorts them out.
type Record map[string]any

// Catalog is safe for concurrent reads. It is never mutated after Load.
type Catalog struct {
	records  []Record
	loadedAt time.Time
}

// Load decodes a YAML sequence. Items that are not mappings are kept as
// empty records so their position survives and the normalizer can replace
// them with placeholders.
func Load(data []byte, loadedAt time.Time) (*Catalog, error) {
	var raw []any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		records = append(records, toRecord(item))
	}
	return &Catalog{records: records, loadedAt: loadedAt}, nil
}

func toRecord(item any) Record {
	switch m := item.(type) {
	case map[string]any:
		return Record(m)
	case map[any]any:
		rec := make(Record, len(m))
		for k, v := range m {
			rec[fmt.Sprint(k)] = v
		}
		return rec
	default:
		return Record{}
	}
}

// LoadFile reads the seed from path, or the embedded seed when path is empty.
func LoadFile(path string, loadedAt time.Time) (*Catalog, error) {
	if path == "" {
		return Load(embeddedSeed, loadedAt)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return Load(b, loadedAt)
}

// FromRecords builds a catalog from in-memory records.
func FromRecords(records []Record, loadedAt time.Time) *Catalog {
	cp := make([]Record, len(records))
	copy(cp, records)
	return &Catalog{records: cp, loadedAt: loadedAt}
}

// Records returns the seed records in file order. The slice is a copy; the
// records themselves must be treated as read-only.
func (c *Catalog) Records() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

func (c *Catalog) LoadedAt() time.Time { return c.loadedAt }

func (c *Catalog) Len() int { return len(c.records) }
