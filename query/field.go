package query

import (
	"strings"

	"github.com/teranos/lore/kb"
)

// FieldRef names a field in a filter, sort, or aggregation: either a
// regular field ("due_date") or a metadata field ("@id", "@type").
type FieldRef struct {
	Name kb.FieldID
	Meta bool
}

// ParseFieldRef interprets "@"-prefixed names as metadata references.
func ParseFieldRef(s string) FieldRef {
	if strings.HasPrefix(s, "@") {
		return FieldRef{Name: kb.FieldID(s), Meta: true}
	}
	return FieldRef{Name: kb.FieldID(s)}
}

// Field builds a regular field reference.
func Field(name kb.FieldID) FieldRef { return FieldRef{Name: name} }

// Meta builds a metadata field reference.
func Meta(name kb.FieldID) FieldRef { return FieldRef{Name: name, Meta: true} }

func (f FieldRef) String() string { return string(f.Name) }

// Resolve looks the reference up on an entity. Metadata resolves against
// the entity's identity; regular fields against its field map. A false
// return is an absent field, never an error.
func (f FieldRef) Resolve(e *kb.Entity) (kb.Value, bool) {
	if f.Meta {
		return e.Metadata(f.Name)
	}
	return e.Field(f.Name)
}
