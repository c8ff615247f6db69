package catalog

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type fileCatalog struct {
	Models []Model `mapstructure:"models"`
}

// LoadFile reads a catalog document (YAML, JSON or TOML, picked by
// extension) with a top-level "models" list.
func LoadFile(path string) ([]Model, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var doc fileCatalog
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Models))
	for i, m := range doc.Models {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			return nil, fmt.Errorf("catalog model #%d has no id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate catalog model id %q", id)
		}
		seen[id] = struct{}{}
	}
	return doc.Models, nil
}
