package schema

import (
	"maps"
	"slices"
	"strings"
)

// Model is the version-agnostic result of parsing a service metadata document.
// It is built once per parse and never mutated afterwards.
type Model struct {
	Version     string       `json:"version" yaml:"version"`
	Namespace   string       `json:"namespace" yaml:"namespace"`
	EntityTypes []EntityType `json:"entityTypes" yaml:"entityTypes"`
	EntitySets  []EntitySet  `json:"entitySets" yaml:"entitySets"`
}

// EntityType represents a named record shape with a key and typed properties
type EntityType struct {
	Name      string   `json:"name" yaml:"name"`
	Namespace string   `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	BaseType  string   `json:"baseType,omitempty" yaml:"baseType,omitempty"`
	Abstract  bool     `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	OpenType  bool     `json:"openType,omitempty" yaml:"openType,omitempty"`
	Keys      []string `json:"keys" yaml:"keys"`

	Properties    map[string]Property `json:"properties" yaml:"properties"`
	PropertyOrder []string            `json:"propertyOrder" yaml:"propertyOrder"`

	Navigations     map[string]NavigationProperty `json:"navigations,omitempty" yaml:"navigations,omitempty"`
	NavigationOrder []string                      `json:"navigationOrder,omitempty" yaml:"navigationOrder,omitempty"`
}

// Property represents a structural property of an entity type
type Property struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Nullable bool   `json:"nullable" yaml:"nullable"`
}

// NavigationProperty represents a relationship to another entity type.
// Type is either a qualified type name or Collection(<qualified type name>).
type NavigationProperty struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// EntitySet represents a queryable collection of one entity type
type EntitySet struct {
	Name       string `json:"name" yaml:"name"`
	EntityType string `json:"entityType" yaml:"entityType"`
}

// IsModern reports whether the model was built from a 4.x document.
func (m *Model) IsModern() bool {
	return IsModernVersion(m.Version)
}

// EntityType returns a copy of the entity type with the given unqualified name
func (m *Model) EntityType(name string) (EntityType, bool) {
	name = BareTypeName(name)
	for _, et := range m.EntityTypes {
		if et.Name == name {
			return et.Clone(), true
		}
	}
	return EntityType{}, false
}

// EntitySet returns the first entity set with the given name
func (m *Model) EntitySet(name string) (EntitySet, bool) {
	for _, es := range m.EntitySets {
		if es.Name == name {
			return es, true
		}
	}
	return EntitySet{}, false
}

// TypeOfSet returns the entity type backing the named entity set
func (m *Model) TypeOfSet(setName string) (EntityType, bool) {
	es, ok := m.EntitySet(setName)
	if !ok {
		return EntityType{}, false
	}
	return m.EntityType(es.EntityType)
}

// Clone returns a deep copy sharing no slices or maps with et
func (et EntityType) Clone() EntityType {
	et.Keys = slices.Clone(et.Keys)
	et.Properties = maps.Clone(et.Properties)
	et.PropertyOrder = slices.Clone(et.PropertyOrder)
	et.Navigations = maps.Clone(et.Navigations)
	et.NavigationOrder = slices.Clone(et.NavigationOrder)
	return et
}

// PropertyNames returns the declared property names in document order
func (et EntityType) PropertyNames() []string {
	return slices.Clone(et.PropertyOrder)
}

// OrderedProperties returns the properties in document order
func (et EntityType) OrderedProperties() []Property {
	props := make([]Property, 0, len(et.PropertyOrder))
	for _, name := range et.PropertyOrder {
		if p, ok := et.Properties[name]; ok {
			props = append(props, p)
		}
	}
	return props
}

// OrderedNavigations returns the navigation properties in document order
func (et EntityType) OrderedNavigations() []NavigationProperty {
	navs := make([]NavigationProperty, 0, len(et.NavigationOrder))
	for _, name := range et.NavigationOrder {
		if n, ok := et.Navigations[name]; ok {
			navs = append(navs, n)
		}
	}
	return navs
}

// IsKey reports whether name is part of the entity key
func (et EntityType) IsKey(name string) bool {
	return slices.Contains(et.Keys, name)
}

// Target returns the unqualified name of the navigation target type
func (n NavigationProperty) Target() string {
	return BareTypeName(n.Type)
}

// IsCollection reports whether the navigation is collection-valued
func (n NavigationProperty) IsCollection() bool {
	return IsCollectionType(n.Type)
}

// IsModernVersion reports whether a protocol version belongs to the 4.x dialect.
func IsModernVersion(version string) bool {
	return strings.HasPrefix(strings.TrimSpace(version), "4")
}

// IsCollectionType reports whether a type reference is wrapped in Collection(...)
func IsCollectionType(t string) bool {
	t = strings.TrimSpace(t)
	return strings.HasPrefix(t, "Collection(") && strings.HasSuffix(t, ")")
}

// CollectionOf wraps a type reference in Collection(...)
func CollectionOf(t string) string {
	return "Collection(" + t + ")"
}

// BareTypeName reduces a type reference to its unqualified name:
// Collection(NS.Order) and NS.Order both become Order.
func BareTypeName(t string) string {
	t = strings.TrimSpace(t)
	if IsCollectionType(t) {
		t = strings.TrimSuffix(strings.TrimPrefix(t, "Collection("), ")")
	}
	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}
	return t
}
