package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tordrt/odataschema/internal/edmx"
)

// Format is a structured response encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatAtom Format = "atom"
)

// ErrNotStructured is returned when a body is neither JSON nor Atom XML.
var ErrNotStructured = errors.New("response: not valid structured data")

// Alternate returns the format tried when f fails to decode
func (f Format) Alternate() Format {
	if f == FormatAtom {
		return FormatJSON
	}
	return FormatAtom
}

// ParseFormat maps a user supplied name to a Format
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "atom", "xml":
		return FormatAtom, nil
	default:
		return "", fmt.Errorf("invalid response format: %s (must be 'json' or 'atom')", name)
	}
}

// Decode decodes raw in the preferred format, falling back to the other one.
// used reports the format that succeeded so callers can tell a fallback from
// a first-try success. When both fail the error wraps ErrNotStructured.
func Decode(raw []byte, preferred Format) (payload any, used Format, err error) {
	if preferred != FormatAtom {
		preferred = FormatJSON
	}

	payload, firstErr := decodeAs(raw, preferred)
	if firstErr == nil {
		return payload, preferred, nil
	}

	alt := preferred.Alternate()
	payload, altErr := decodeAs(raw, alt)
	if altErr == nil {
		return payload, alt, nil
	}

	return nil, "", fmt.Errorf("%w: %s: %v; %s: %v", ErrNotStructured, preferred, firstErr, alt, altErr)
}

// DecodeRows decodes raw and normalizes the result.
func DecodeRows(raw []byte, preferred Format) (any, Format, error) {
	payload, used, err := Decode(raw, preferred)
	if err != nil {
		return nil, "", err
	}
	return Normalize(payload), used, nil
}

func decodeAs(raw []byte, f Format) (any, error) {
	if f == FormatAtom {
		return decodeAtom(raw)
	}
	return decodeJSON(raw)
}

func decodeJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return payload, nil
}

// decodeAtom turns an Atom feed into a slice of property maps and a single
// entry into one property map.
func decodeAtom(raw []byte) (any, error) {
	doc, err := edmx.ParseBytes(raw)
	if err != nil {
		return nil, err
	}

	switch doc.Root.Local {
	case "feed":
		rows := []any{}
		for _, entry := range edmx.ChildrenByLocalName(doc.Root, "entry") {
			rows = append(rows, entryProperties(entry))
		}
		return rows, nil
	case "entry":
		return entryProperties(doc.Root), nil
	default:
		return nil, fmt.Errorf("unexpected root element %s", doc.Root.QualifiedName())
	}
}

// entryProperties reads m:properties from the entry content, or from the
// entry itself for media link entries.
func entryProperties(entry *edmx.Element) map[string]any {
	row := make(map[string]any)

	var props *edmx.Element
	if content := edmx.ChildrenByLocalName(entry, "content"); len(content) > 0 {
		if p := edmx.ChildrenByLocalName(content[0], "properties"); len(p) > 0 {
			props = p[0]
		}
	}
	if props == nil {
		if p := edmx.ChildrenByLocalName(entry, "properties"); len(p) > 0 {
			props = p[0]
		}
	}
	if props == nil {
		return row
	}

	for _, prop := range props.Children {
		row[prop.Local] = propertyValue(prop)
	}
	return row
}

func propertyValue(prop *edmx.Element) any {
	if strings.EqualFold(prop.Attr("null"), "true") {
		return nil
	}
	typed := strings.HasPrefix(strings.TrimSpace(prop.Attr("type")), "Collection(")
	if len(prop.Children) == 0 && !typed {
		return prop.Text()
	}
	if typed || isCollectionValue(prop) {
		items := make([]any, 0, len(prop.Children))
		for _, child := range prop.Children {
			items = append(items, propertyValue(child))
		}
		return items
	}
	// complex value
	nested := make(map[string]any, len(prop.Children))
	for _, child := range prop.Children {
		nested[child.Local] = propertyValue(child)
	}
	return nested
}

// isCollectionValue reports whether every child is a d:element item
func isCollectionValue(prop *edmx.Element) bool {
	for _, child := range prop.Children {
		if child.Local != "element" {
			return false
		}
	}
	return true
}
