package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/odataschema/internal/schema"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// Formats lists the names accepted by New
var Formats = []string{formatText, formatMarkdown, formatJSON, formatYAML}

// Formatter writes a schema model to its destination
type Formatter interface {
	Format(m *schema.Model) error
}

// New returns the single-file formatter for the named format
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case formatText, "":
		return NewTextFormatter(w), nil
	case formatMarkdown:
		return NewMarkdownFormatter(w), nil
	case formatJSON:
		return &JSONFormatter{writer: w}, nil
	case formatYAML:
		return &YAMLFormatter{writer: w}, nil
	default:
		return nil, fmt.Errorf("invalid format: %s (must be text, markdown, json or yaml)", format)
	}
}

// JSONFormatter dumps the model as indented JSON
type JSONFormatter struct {
	writer io.Writer
}

// Format writes the model as JSON
func (f *JSONFormatter) Format(m *schema.Model) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// YAMLFormatter dumps the model as YAML
type YAMLFormatter struct {
	writer io.Writer
}

// Format writes the model as YAML
func (f *YAMLFormatter) Format(m *schema.Model) error {
	enc := yaml.NewEncoder(f.writer)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}
