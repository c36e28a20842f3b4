// Package mapping describes how source fields are turned into vector fields during migration.
package mapping

import (
	"fmt"

	"github.com/kailas-cloud/vecmigrate/internal/domain"
)

// Entry is one vector mapping rule: embed the value at Source and store it at Target
// as a vector of VectorLength elements.
type Entry struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	VectorLength int    `json:"vector_length"`
}

// Mapping is the ordered list of mapping rules applied to every document.
type Mapping []Entry

// Validate checks every entry and rejects duplicate targets.
func (m Mapping) Validate() error {
	seen := make(map[string]bool, len(m))
	for i, e := range m {
		if e.Source == "" {
			return fmt.Errorf("mapping[%d]: source is required: %w", i, domain.ErrInvalidConfig)
		}
		if e.Target == "" {
			return fmt.Errorf("mapping[%d]: target is required: %w", i, domain.ErrInvalidConfig)
		}
		if e.VectorLength <= 0 {
			return fmt.Errorf("mapping[%d]: vector_length must be positive, got %d: %w",
				i, e.VectorLength, domain.ErrInvalidConfig)
		}
		if seen[e.Target] {
			return fmt.Errorf("mapping[%d]: duplicate target %q: %w", i, e.Target, domain.ErrInvalidConfig)
		}
		seen[e.Target] = true
	}
	return nil
}

// Lookup returns the entry writing into target, if any.
func (m Mapping) Lookup(target string) (Entry, bool) {
	for _, e := range m {
		if e.Target == target {
			return e, true
		}
	}
	return Entry{}, false
}

// Targets returns the target field names in mapping order.
func (m Mapping) Targets() []string {
	out := make([]string, len(m))
	for i, e := range m {
		out[i] = e.Target
	}
	return out
}
