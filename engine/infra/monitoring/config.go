package monitoring

import (
	"errors"
	"fmt"
	"strings"
)

// reservedPrefix is owned by the HTTP API and cannot host the exporter.
const reservedPrefix = "/api/"

// Config selects whether the Prometheus exporter runs and where it is mounted.
type Config struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path"    yaml:"path"    mapstructure:"path"`
}

func DefaultConfig() *Config {
	return &Config{Enabled: true, Path: "/metrics"}
}

// Validate checks the exporter path is an absolute route outside the API.
func (c *Config) Validate() error {
	switch {
	case c.Path == "":
		return errors.New("monitoring path cannot be empty")
	case !strings.HasPrefix(c.Path, "/"):
		return fmt.Errorf("monitoring path must start with '/': got %s", c.Path)
	case strings.HasPrefix(c.Path, reservedPrefix):
		return fmt.Errorf("monitoring path cannot be under %s", reservedPrefix)
	case strings.ContainsAny(c.Path, "?#"):
		return errors.New("monitoring path cannot contain a query or fragment")
	}
	return nil
}
