package rules

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

var defaultCatalog = sync.OnceValues(func() ([]Definition, error) {
	return ParseCatalog(catalogYAML)
})

// Catalog returns the built-in rule definitions in display order.
func Catalog() []Definition {
	defs, err := defaultCatalog()
	if err != nil {
		panic(fmt.Sprintf("rules: embedded catalog: %v", err))
	}
	out := make([]Definition, len(defs))
	copy(out, defs)
	return out
}

type catalogFile struct {
	Rules []Definition `yaml:"rules"`
}

// ParseCatalog decodes and validates a YAML rule catalog.
func ParseCatalog(data []byte) ([]Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", ErrInvalidCatalog)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrInvalidCatalog, err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("%w: no rules defined", ErrInvalidCatalog)
	}

	seen := make(map[ID]bool, len(file.Rules))
	for i := range file.Rules {
		d := &file.Rules[i]
		d.ID = ID(strings.TrimSpace(string(d.ID)))
		d.Name = strings.TrimSpace(d.Name)
		d.Description = strings.TrimSpace(d.Description)

		if d.ID == "" {
			return nil, fmt.Errorf("%w: rule %d has no id", ErrInvalidCatalog, i+1)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("%w: rule %s has no name", ErrInvalidCatalog, d.ID)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("%w: duplicate rule id %s", ErrInvalidCatalog, d.ID)
		}
		seen[d.ID] = true
	}

	return file.Rules, nil
}
