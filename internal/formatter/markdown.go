package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/odataschema/internal/schema"
)

// MarkdownFormatter formats a schema model as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the model in markdown format
func (f *MarkdownFormatter) Format(m *schema.Model) error {
	_, _ = fmt.Fprintf(f.writer, "# %s\n\n", m.Namespace)
	_, _ = fmt.Fprintf(f.writer, "Protocol version: %s\n\n", m.Version)

	for _, et := range m.EntityTypes {
		f.FormatEntityType(et)
	}

	f.formatEntitySets(m.EntitySets)
	return nil
}

// FormatEntityType writes a single entity type (used by the multi-file formatter)
func (f *MarkdownFormatter) FormatEntityType(et schema.EntityType) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", et.Name)
	if et.BaseType != "" {
		_, _ = fmt.Fprintf(f.writer, "Derives from **%s**.\n\n", et.BaseType)
	}

	_, _ = fmt.Fprintln(f.writer, "### Properties")
	_, _ = fmt.Fprintln(f.writer)
	for _, p := range et.OrderedProperties() {
		constraintStr := f.formatConstraints(p, et)
		if constraintStr != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", p.Name, p.Type, constraintStr)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", p.Name, p.Type)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	navs := et.OrderedNavigations()
	if len(navs) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Navigation")
		_, _ = fmt.Fprintln(f.writer)
		for _, n := range navs {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s (%s)\n", n.Name, n.Target(), Cardinality(n))
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

func (f *MarkdownFormatter) formatEntitySets(sets []schema.EntitySet) {
	if len(sets) == 0 {
		return
	}
	_, _ = fmt.Fprintln(f.writer, "## Entity Sets")
	_, _ = fmt.Fprintln(f.writer)
	for _, es := range sets {
		_, _ = fmt.Fprintf(f.writer, "- **%s** of %s\n", es.Name, es.EntityType)
	}
	_, _ = fmt.Fprintln(f.writer)
}

func (f *MarkdownFormatter) formatConstraints(p schema.Property, et schema.EntityType) string {
	var constraints []string

	if et.IsKey(p.Name) {
		constraints = append(constraints, "KEY")
	}

	if !p.Nullable {
		constraints = append(constraints, "NOT NULL")
	}

	return strings.Join(constraints, ", ")
}
