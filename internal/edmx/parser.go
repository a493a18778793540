package edmx

import (
	"bytes"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/tordrt/odataschema/internal/schema"
)

// Parser builds schema models from metadata documents
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a new parser. A nil logger discards output.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// ParseBytes parses an in-memory metadata document
func (p *Parser) ParseBytes(data []byte) (*schema.Model, error) {
	return p.Parse(bytes.NewReader(data))
}

// Parse reads a metadata document and builds its schema model.
//
// Only a missing Edmx root or the absence of every Schema block is fatal and
// reported as a *StructuralError. Anything else that cannot be resolved (an
// unnamed entity type, a navigation whose association is unknown, an entity
// set whose type is missing) is left out of the model.
func (p *Parser) Parse(r io.Reader) (*schema.Model, error) {
	doc, err := Parse(r)
	if err != nil {
		return nil, &StructuralError{Reason: "malformed XML: " + err.Error()}
	}

	root := findRoot(doc)
	if root == nil {
		return nil, &StructuralError{Reason: "no Edmx root element"}
	}

	schemas := FindByLocalName(root, "Schema")
	if len(schemas) == 0 {
		return nil, &StructuralError{Reason: "no Schema blocks"}
	}

	version := documentVersion(root)

	var resolver *AssociationResolver
	if !schema.IsModernVersion(version) {
		resolver = NewAssociationResolver(schemas)
		p.logger.Debug("indexed associations",
			zap.String("version", version),
			zap.Int("associations", resolver.Len()))
	}

	b := &builder{
		logger:   p.logger,
		resolver: resolver,
		seen:     make(map[string]bool),
	}
	for _, s := range schemas {
		b.walkSchema(s)
	}

	model := &schema.Model{
		Version:     version,
		Namespace:   b.dominantNamespace(),
		EntityTypes: b.types,
		EntitySets:  b.bindSets(),
	}

	p.logger.Debug("built schema model",
		zap.String("version", model.Version),
		zap.String("namespace", model.Namespace),
		zap.Int("entityTypes", len(model.EntityTypes)),
		zap.Int("entitySets", len(model.EntitySets)))

	return model, nil
}

func findRoot(doc *Document) *Element {
	if doc == nil || doc.Root == nil {
		return nil
	}
	if doc.Root.Local == "Edmx" {
		return doc.Root
	}
	return FirstByLocalName(doc.Root, "Edmx")
}

// documentVersion reads the Edmx version. Version 1.0 envelopes carried
// V1 through V3 services, which are told apart by DataServiceVersion.
func documentVersion(root *Element) string {
	version := strings.TrimSpace(root.Attr("Version"))
	if version != "" && version != "1.0" {
		return version
	}
	if ds := FirstByLocalName(root, "DataServices"); ds != nil {
		if dsv := strings.TrimSpace(ds.Attr("DataServiceVersion")); dsv != "" {
			return dsv
		}
	}
	return version
}

type builder struct {
	logger   *zap.Logger
	resolver *AssociationResolver

	types []schema.EntityType
	seen  map[string]bool
	sets  []schema.EntitySet

	// entity types contributed per namespace, in first-seen order
	nsOrder []string
	nsCount map[string]int
}

func (b *builder) walkSchema(s *Element) {
	namespace := s.Attr("Namespace")
	if namespace != "" {
		if b.nsCount == nil {
			b.nsCount = make(map[string]int)
		}
		if _, ok := b.nsCount[namespace]; !ok {
			b.nsOrder = append(b.nsOrder, namespace)
			b.nsCount[namespace] = 0
		}
	}

	for _, el := range FindByLocalName(s, "EntityType") {
		et, ok := b.entityType(el, namespace)
		if !ok {
			continue
		}
		if b.seen[et.Name] {
			b.logger.Debug("duplicate entity type ignored",
				zap.String("name", et.Name),
				zap.String("namespace", namespace))
			continue
		}
		b.seen[et.Name] = true
		b.types = append(b.types, et)
		if namespace != "" {
			b.nsCount[namespace]++
		}
	}

	for _, container := range FindByLocalName(s, "EntityContainer") {
		for _, el := range FindByLocalName(container, "EntitySet") {
			name := el.Attr("Name")
			typ := el.Attr("EntityType")
			if name == "" || typ == "" {
				continue
			}
			b.sets = append(b.sets, schema.EntitySet{
				Name:       name,
				EntityType: schema.BareTypeName(typ),
			})
		}
	}
}

func (b *builder) entityType(el *Element, namespace string) (schema.EntityType, bool) {
	name := el.Attr("Name")
	if name == "" {
		return schema.EntityType{}, false
	}

	et := schema.EntityType{
		Name:        name,
		Namespace:   namespace,
		Abstract:    isTrue(el.Attr("Abstract")),
		OpenType:    isTrue(el.Attr("OpenType")),
		Properties:  make(map[string]schema.Property),
		Navigations: make(map[string]schema.NavigationProperty),
	}
	if base := el.Attr("BaseType"); base != "" {
		et.BaseType = schema.BareTypeName(base)
	}

	for _, prop := range FindByLocalName(el, "Property") {
		pname := prop.Attr("Name")
		if pname == "" {
			continue
		}
		if _, dup := et.Properties[pname]; !dup {
			et.PropertyOrder = append(et.PropertyOrder, pname)
		}
		et.Properties[pname] = schema.Property{
			Name:     pname,
			Type:     prop.Attr("Type"),
			Nullable: !strings.EqualFold(strings.TrimSpace(prop.Attr("Nullable")), "false"),
		}
	}

	// Key order is kept for composite-key display.
	if key := FirstByLocalName(el, "Key"); key != nil {
		for _, ref := range FindByLocalName(key, "PropertyRef") {
			kname := ref.Attr("Name")
			if _, ok := et.Properties[kname]; !ok {
				b.logger.Debug("key without property dropped",
					zap.String("entityType", name),
					zap.String("key", kname))
				continue
			}
			et.Keys = append(et.Keys, kname)
		}
	}

	for _, nav := range FindByLocalName(el, "NavigationProperty") {
		nname := nav.Attr("Name")
		if nname == "" {
			continue
		}
		typ, ok := b.navigationType(nav)
		if !ok {
			b.logger.Debug("unresolved navigation dropped",
				zap.String("entityType", name),
				zap.String("navigation", nname),
				zap.String("relationship", nav.Attr("Relationship")),
				zap.String("toRole", nav.Attr("ToRole")))
			continue
		}
		if _, dup := et.Navigations[nname]; !dup {
			et.NavigationOrder = append(et.NavigationOrder, nname)
		}
		et.Navigations[nname] = schema.NavigationProperty{Name: nname, Type: typ}
	}

	return et, true
}

// navigationType prefers an inline Type; legacy navigations go through the
// association tables.
func (b *builder) navigationType(nav *Element) (string, bool) {
	if typ := strings.TrimSpace(nav.Attr("Type")); typ != "" {
		return typ, true
	}
	return b.resolver.Resolve(nav.Attr("Relationship"), nav.Attr("ToRole"))
}

// bindSets resolves entity set types now that every entity type is known.
func (b *builder) bindSets() []schema.EntitySet {
	bound := make([]schema.EntitySet, 0, len(b.sets))
	for _, es := range b.sets {
		if !b.seen[es.EntityType] {
			b.logger.Debug("entity set with unknown type dropped",
				zap.String("entitySet", es.Name),
				zap.String("entityType", es.EntityType))
			continue
		}
		bound = append(bound, es)
	}
	return bound
}

func (b *builder) dominantNamespace() string {
	best, bestCount := "", -1
	for _, ns := range b.nsOrder {
		if c := b.nsCount[ns]; c > bestCount {
			best, bestCount = ns, c
		}
	}
	return best
}

func isTrue(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}
