package edmx

// Conventional prefixes producers use for the metadata vocabulary, tried in
// order after the unprefixed spelling.
const (
	prefixEdmx = "edmx"
	prefixEdm  = "edm"
)

// FindByLocalName returns the descendants of container whose tag matches
// name, in document order. Spellings are tried in order: the bare name,
// edmx:name, edm:name, then any prefix. The first spelling with a match wins.
// A nil container yields nil.
func FindByLocalName(container *Element, name string) []*Element {
	if container == nil || name == "" {
		return nil
	}

	for _, prefix := range []string{"", prefixEdmx, prefixEdm} {
		if found := collect(container, func(e *Element) bool {
			return e.Prefix == prefix && e.Local == name
		}); len(found) > 0 {
			return found
		}
	}

	return collect(container, func(e *Element) bool {
		return e.Local == name
	})
}

// FirstByLocalName returns the first FindByLocalName match or nil.
func FirstByLocalName(container *Element, name string) *Element {
	if found := FindByLocalName(container, name); len(found) > 0 {
		return found[0]
	}
	return nil
}

// ChildrenByLocalName returns direct children with the given local name,
// ignoring prefixes.
func ChildrenByLocalName(parent *Element, name string) []*Element {
	if parent == nil {
		return nil
	}
	var out []*Element
	for _, child := range parent.Children {
		if child.Local == name {
			out = append(out, child)
		}
	}
	return out
}

func collect(container *Element, match func(*Element) bool) []*Element {
	var out []*Element
	var walk func(e *Element)
	walk = func(e *Element) {
		for _, child := range e.Children {
			if match(child) {
				out = append(out, child)
			}
			walk(child)
		}
	}
	walk(container)
	return out
}
