package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type mapSource struct {
	kind SourceType
	load func() (map[string]any, error)
}

func (s *mapSource) Load() (map[string]any, error) { return s.load() }
func (s *mapSource) Type() SourceType              { return s.kind }

// NewCLIProvider creates a source from flag values keyed by dotted config
// path, e.g. "server.port".
func NewCLIProvider(flags map[string]any) Source {
	return &mapSource{kind: SourceCLI, load: func() (map[string]any, error) {
		out := make(map[string]any)
		for key, value := range flags {
			if err := nest(out, strings.Split(key, "."), value); err != nil {
				return nil, fmt.Errorf("failed to set CLI flag %s: %w", key, err)
			}
		}
		return out, nil
	}}
}

func nest(m map[string]any, parts []string, value any) error {
	if len(parts) == 1 {
		m[parts[0]] = value
		return nil
	}
	child, ok := m[parts[0]]
	if !ok {
		child = make(map[string]any)
		m[parts[0]] = child
	}
	next, ok := child.(map[string]any)
	if !ok {
		return fmt.Errorf("path conflict at %s", parts[0])
	}
	return nest(next, parts[1:], value)
}

// NewYAMLProvider creates a source reading the YAML file at path. A missing
// file yields no data.
func NewYAMLProvider(path string) Source {
	return &mapSource{kind: SourceYAML, load: func() (map[string]any, error) {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read YAML file: %w", err)
		}
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML file %s: %w", path, err)
		}
		return dropNulls(doc), nil
	}}
}

// dropNulls removes null values and sections left empty, so an empty YAML
// key never overrides a default.
func dropNulls(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case nil:
		case map[string]any:
			if nested := dropNulls(t); len(nested) > 0 {
				out[k] = nested
			}
		default:
			out[k] = v
		}
	}
	return out
}

// LoadDotEnv loads variables from path into the process environment without
// overriding values that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
