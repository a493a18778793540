package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = ".odataschema.yaml"

var formats = []string{"text", "markdown", "json", "yaml"}

// Config holds CLI defaults. Command-line flags override every field.
type Config struct {
	Store   string            `yaml:"store" json:"store"`
	Format  string            `yaml:"format" json:"format"`
	Timeout time.Duration     `yaml:"timeout" json:"timeout"`
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Format:  "text",
		Timeout: 30 * time.Second,
	}
}

// LoadFile loads YAML config from path on top of the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	f, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(f, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Load reads path, or DefaultFile when path is empty. A missing default file
// yields the defaults; a missing explicit file is an error.
func Load(path string) (Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	cfg, err := LoadFile(DefaultFile)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks field values.
func (c Config) Validate() error {
	if c.Format != "" && !slices.Contains(formats, c.Format) {
		return fmt.Errorf("invalid format %q (must be one of text, markdown, json, yaml)", c.Format)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}
