package edmx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Document is the parsed element tree of a metadata or Atom document.
type Document struct {
	Root *Element
}

// Element is a minimal element node. Prefixes are kept as written in the
// source so lookups can tolerate inconsistent prefixing.
type Element struct {
	Prefix   string
	Local    string
	Attrs    []Attr
	Children []*Element
	text     strings.Builder
}

// Attr is a raw attribute with its source prefix
type Attr struct {
	Prefix string
	Local  string
	Value  string
}

// Parse builds the element tree from XML input.
func Parse(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)

	var stack []*Element
	var root *Element
	rootClosed := false

	for {
		tok, err := decoder.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if rootClosed {
				return nil, fmt.Errorf("unexpected element %s after document end", t.Name.Local)
			}
			elem := &Element{
				Prefix: t.Name.Space,
				Local:  t.Name.Local,
				Attrs:  convertAttrs(t.Attr),
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, elem)
			} else {
				root = elem
			}
			stack = append(stack, elem)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected end element %s", t.Name.Local)
			}
			top := stack[len(stack)-1]
			if top.Prefix != t.Name.Space || top.Local != t.Name.Local {
				return nil, fmt.Errorf("element %s closed by %s", top.QualifiedName(), qualify(t.Name.Space, t.Name.Local))
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				rootClosed = true
			}

		case xml.CharData:
			if len(stack) == 0 {
				if !isIgnorableOutsideRoot(t) {
					return nil, fmt.Errorf("unexpected character data outside root element")
				}
				continue
			}
			stack[len(stack)-1].text.Write(t)
		}
	}

	if root == nil {
		return nil, io.ErrUnexpectedEOF
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("element %s is not closed", stack[len(stack)-1].QualifiedName())
	}

	return &Document{Root: root}, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte) (*Document, error) {
	return Parse(bytes.NewReader(data))
}

func convertAttrs(in []xml.Attr) []Attr {
	if len(in) == 0 {
		return nil
	}
	out := make([]Attr, 0, len(in))
	for _, a := range in {
		out = append(out, Attr{Prefix: a.Name.Space, Local: a.Name.Local, Value: a.Value})
	}
	return out
}

func isIgnorableOutsideRoot(data []byte) bool {
	for _, r := range string(data) {
		if r == '\uFEFF' {
			continue
		}
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func qualify(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

// QualifiedName returns the tag as written, prefix included.
func (e *Element) QualifiedName() string {
	return qualify(e.Prefix, e.Local)
}

// Attr returns the value of the attribute with the given local name,
// preferring an unprefixed attribute over a prefixed one.
func (e *Element) Attr(local string) string {
	v, _ := e.LookupAttr(local)
	return v
}

// LookupAttr is Attr with a presence flag. Namespace declarations never match.
func (e *Element) LookupAttr(local string) (string, bool) {
	var (
		found    string
		hasFound bool
	)
	for _, a := range e.Attrs {
		if a.Local != local || a.Prefix == "xmlns" {
			continue
		}
		if a.Prefix == "" {
			return a.Value, true
		}
		if !hasFound {
			found, hasFound = a.Value, true
		}
	}
	return found, hasFound
}

// Text returns the character data directly under the element.
func (e *Element) Text() string {
	return e.text.String()
}

