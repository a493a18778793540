package formatter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/tordrt/odataschema/internal/schema"
)

// TextFormatter formats a schema model as compact text
type TextFormatter struct {
	writer  io.Writer
	heading lipgloss.Style
	styled  bool
}

// NewTextFormatter creates a new text formatter. Headings are styled only
// when w is a terminal.
func NewTextFormatter(w io.Writer) *TextFormatter {
	styled := false
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		styled = true
	}
	return &TextFormatter{
		writer:  w,
		heading: lipgloss.NewStyle().Bold(true),
		styled:  styled,
	}
}

// Format writes the model in compact text format
func (f *TextFormatter) Format(m *schema.Model) error {
	_, _ = fmt.Fprintf(f.writer, "%s %s (version %s)\n", f.title("SCHEMA"), m.Namespace, m.Version)

	for _, et := range m.EntityTypes {
		_, _ = fmt.Fprintln(f.writer) // Blank line between entity types
		f.formatEntityType(et)
	}

	if len(m.EntitySets) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, f.title("ENTITY SETS"))
		for _, es := range m.EntitySets {
			_, _ = fmt.Fprintf(f.writer, "  %s: %s\n", es.Name, es.EntityType)
		}
	}
	return nil
}

func (f *TextFormatter) formatEntityType(et schema.EntityType) {
	// Header with key
	keyStr := ""
	if len(et.Keys) > 0 {
		keyStr = fmt.Sprintf(" (KEY: %s)", strings.Join(et.Keys, ", "))
	}
	baseStr := ""
	if et.BaseType != "" {
		baseStr = " : " + et.BaseType
	}
	_, _ = fmt.Fprintf(f.writer, "%s %s%s%s\n", f.title("ENTITY"), et.Name, baseStr, keyStr)

	for _, p := range et.OrderedProperties() {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", formatProperty(p))
	}

	navs := et.OrderedNavigations()
	if len(navs) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  NAVIGATION:")
		for _, n := range navs {
			_, _ = fmt.Fprintf(f.writer, "    → %s: %s (%s)\n", n.Name, n.Target(), Cardinality(n))
		}
	}
}

func (f *TextFormatter) title(s string) string {
	if !f.styled {
		return s
	}
	return f.heading.Render(s)
}

func formatProperty(p schema.Property) string {
	parts := []string{p.Name + ":", p.Type}
	if !p.Nullable {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " ")
}

// Cardinality describes a navigation as "many" or "one"
func Cardinality(n schema.NavigationProperty) string {
	if n.IsCollection() {
		return "many"
	}
	return "one"
}
