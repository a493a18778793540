package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tordrt/odataschema/internal/schema"
)

const (
	formatMarkdown = "markdown"
	formatText     = "text"
)

// MultiFileFormatter writes a model to multiple files in a directory
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes an overview file plus one file per entity type
func (f *MultiFileFormatter) Format(m *schema.Model) error {
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeOverview(m); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, et := range m.EntityTypes {
		if err := f.writeEntityFile(et, m); err != nil {
			return fmt.Errorf("failed to write entity file for %s: %w", et.Name, err)
		}
	}

	return nil
}

func (f *MultiFileFormatter) writeOverview(m *schema.Model) error {
	ext := f.getFileExtension()
	filename := filepath.Join(f.OutputDir, "_overview"+ext)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	sorted := make([]schema.EntityType, len(m.EntityTypes))
	copy(sorted, m.EntityTypes)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	if f.OutputFormat == formatMarkdown {
		_, _ = fmt.Fprintf(file, "# %s Overview\n\n", m.Namespace)
		_, _ = fmt.Fprintf(file, "Protocol version %s. Each entity type has a file: `<EntityType>%s`\n\n", m.Version, ext)
		_, _ = fmt.Fprintf(file, "## Entity Types\n\n")
	} else {
		_, _ = fmt.Fprintf(file, "SCHEMA OVERVIEW %s (version %s)\n", m.Namespace, m.Version)
		_, _ = fmt.Fprintf(file, "Each entity type has a file: <EntityType>%s\n\n", ext)
	}

	for _, et := range sorted {
		line := et.Name
		if f.OutputFormat == formatMarkdown {
			line = "- **" + et.Name + "**"
		}
		if targets := navigationTargets(et); len(targets) > 0 {
			line += fmt.Sprintf(" (navigates to: %s)", strings.Join(targets, ", "))
		}
		_, _ = fmt.Fprintln(file, line)
	}

	return nil
}

// writeEntityFile writes a single entity type to its own file
func (f *MultiFileFormatter) writeEntityFile(et schema.EntityType, m *schema.Model) error {
	if !isPlainFileName(et.Name) {
		return fmt.Errorf("entity type name %q is not a plain file name", et.Name)
	}
	filename := filepath.Join(f.OutputDir, et.Name+f.getFileExtension())

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	incoming := f.findIncomingNavigations(et.Name, m)

	if f.OutputFormat == formatMarkdown {
		NewMarkdownFormatter(file).FormatEntityType(et)
		if len(incoming) > 0 {
			_, _ = fmt.Fprintf(file, "### Referenced by\n\n")
			for _, in := range incoming {
				_, _ = fmt.Fprintf(file, "- %s.%s (%s)\n", in.SourceType, in.Navigation, in.Cardinality)
			}
			_, _ = fmt.Fprintln(file)
		}
		return nil
	}

	NewTextFormatter(file).formatEntityType(et)
	if len(incoming) > 0 {
		_, _ = fmt.Fprintln(file)
		_, _ = fmt.Fprintln(file, "  REFERENCED BY:")
		for _, in := range incoming {
			_, _ = fmt.Fprintf(file, "    ← %s.%s (%s)\n", in.SourceType, in.Navigation, in.Cardinality)
		}
	}
	return nil
}

// IncomingNavigation is a navigation property of another type targeting this one
type IncomingNavigation struct {
	SourceType  string
	Navigation  string
	Cardinality string
}

// findIncomingNavigations finds all navigation properties pointing at typeName
func (f *MultiFileFormatter) findIncomingNavigations(typeName string, m *schema.Model) []IncomingNavigation {
	var incoming []IncomingNavigation

	for _, et := range m.EntityTypes {
		for _, n := range et.OrderedNavigations() {
			if n.Target() == typeName {
				incoming = append(incoming, IncomingNavigation{
					SourceType:  et.Name,
					Navigation:  n.Name,
					Cardinality: Cardinality(n),
				})
			}
		}
	}

	return incoming
}

func navigationTargets(et schema.EntityType) []string {
	var targets []string
	seen := make(map[string]bool)
	for _, n := range et.OrderedNavigations() {
		if t := n.Target(); !seen[t] {
			seen[t] = true
			targets = append(targets, t)
		}
	}
	return targets
}

// isPlainFileName reports whether name stays inside the output directory as a
// single path element. Names come from fetched documents.
func isPlainFileName(name string) bool {
	return filepath.IsLocal(name) &&
		filepath.Base(name) == name &&
		!strings.ContainsAny(name, `/\`)
}

func (f *MultiFileFormatter) getFileExtension() string {
	if f.OutputFormat == formatMarkdown {
		return ".md"
	}
	return ".txt"
}
