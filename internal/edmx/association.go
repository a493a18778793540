package edmx

import (
	"strings"

	"github.com/tordrt/odataschema/internal/schema"
)

// roleTargets maps a role name to the resolved navigation target type.
type roleTargets map[string]string

// AssociationResolver resolves legacy navigation properties that reference
// an out-of-line Association instead of declaring their type inline.
type AssociationResolver struct {
	qualified map[string]roleTargets
	bare      map[string]roleTargets
}

// NewAssociationResolver indexes every two-ended Association in the given
// schema blocks. It must be built before any entity type is read.
func NewAssociationResolver(schemas []*Element) *AssociationResolver {
	r := &AssociationResolver{
		qualified: make(map[string]roleTargets),
		bare:      make(map[string]roleTargets),
	}

	for _, s := range schemas {
		namespace := s.Attr("Namespace")
		for _, assoc := range FindByLocalName(s, "Association") {
			name := assoc.Attr("Name")
			if name == "" {
				continue
			}
			ends := FindByLocalName(assoc, "End")
			if len(ends) != 2 {
				continue
			}

			targets := make(roleTargets, 2)
			for _, end := range ends {
				role, typ := end.Attr("Role"), end.Attr("Type")
				if role == "" || typ == "" {
					continue
				}
				if strings.TrimSpace(end.Attr("Multiplicity")) == "*" {
					typ = schema.CollectionOf(typ)
				}
				targets[role] = typ
			}

			if namespace != "" {
				r.qualified[namespace+"."+name] = targets
			}
			if _, exists := r.bare[name]; !exists {
				r.bare[name] = targets
			}
		}
	}

	return r
}

// Resolve returns the target type for a relationship id and target role.
// The qualified id is tried first, then the id with its namespace stripped.
func (r *AssociationResolver) Resolve(relationship, toRole string) (string, bool) {
	if r == nil || relationship == "" || toRole == "" {
		return "", false
	}

	targets, ok := r.qualified[relationship]
	if !ok {
		targets, ok = r.bare[stripNamespace(relationship)]
	}
	if !ok {
		return "", false
	}

	typ, ok := targets[toRole]
	return typ, ok
}

// Len returns the number of distinct association names indexed.
func (r *AssociationResolver) Len() int {
	if r == nil {
		return 0
	}
	return len(r.bare)
}

func stripNamespace(id string) string {
	if i := strings.LastIndex(id, "."); i >= 0 {
		return id[i+1:]
	}
	return id
}
