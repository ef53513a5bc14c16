// Package source loads key/value sources and resolves the raw comma list behind a parameter
package source

import (
	"fmt"

	"github.com/magiconair/properties"
)

// Lookup is a loaded key/value source
type Lookup interface {
	Get(key string) (string, bool)
	Keys() []string
}

// ParseProperties parses Java properties content.
// ${...} references are left as written.
func ParseProperties(data []byte) (Lookup, error) {
	l := &properties.Loader{
		Encoding:         properties.UTF8,
		DisableExpansion: true,
	}
	p, err := l.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse properties: %w", err)
	}
	return p, nil
}

// MapLookup is a Lookup over an in-memory map
type MapLookup map[string]string

// Get returns the value for key
func (m MapLookup) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Keys returns every key in the map
func (m MapLookup) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
