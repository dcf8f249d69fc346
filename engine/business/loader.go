package business

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// LoadFile reads a business configuration from a YAML or JSON file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open business config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return Decode(data)
	default:
		return DecodeYAML(data)
	}
}

// DecodeYAML decodes a YAML document into a Config.
func DecodeYAML(data []byte) (*Config, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode YAML business config: %w", err)
	}
	return Decode(jsonData)
}

// Decode decodes a JSON document into a Config. Unknown fields are rejected
// so that typos surface at the boundary instead of as silent defaults.
func Decode(data []byte) (*Config, error) {
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode business config: %w", err)
	}
	return &cfg, nil
}
