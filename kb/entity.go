package kb

import (
	"sort"

	"github.com/teranos/lore/errors"
)

// Metadata field names. Metadata resolves against an entity's identity
// rather than its field map and is always present.
const (
	MetaID   FieldID = "@id"
	MetaType FieldID = "@type"
)

// Entity is a typed, identified record with a keyed field map.
// Entities are immutable once built; fields are accumulated through a
// Builder during construction only.
type Entity struct {
	id     EntityID
	typ    EntityType
	fields map[FieldID]Value
}

// ID returns the composite entity id.
func (e *Entity) ID() EntityID { return e.id }

// Type returns the entity type tag.
func (e *Entity) Type() EntityType { return e.typ }

// Field looks up a regular field by id.
func (e *Entity) Field(id FieldID) (Value, bool) {
	v, ok := e.fields[id]
	return v, ok
}

// Metadata resolves a metadata field (@id, @type) to its string value.
func (e *Entity) Metadata(id FieldID) (Value, bool) {
	switch id {
	case MetaID:
		return NewString(string(e.id)), true
	case MetaType:
		return NewString(string(e.typ)), true
	default:
		return Value{}, false
	}
}

// FieldIDs returns the field keys in sorted order for deterministic output.
func (e *Entity) FieldIDs() []FieldID {
	ids := make([]FieldID, 0, len(e.fields))
	for id := range e.fields {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of regular fields.
func (e *Entity) Len() int { return len(e.fields) }

// Builder accumulates fields for an entity under construction.
type Builder struct {
	id     EntityID
	fields map[FieldID]Value
	err    error
}

// NewBuilder starts building an entity with the given composite id.
func NewBuilder(id EntityID) *Builder {
	b := &Builder{
		id:     id,
		fields: make(map[FieldID]Value),
	}
	if _, err := ParseEntityID(string(id)); err != nil {
		b.err = err
	}
	return b
}

// Set adds a field value, overwriting any earlier value for the same key.
func (b *Builder) Set(field FieldID, v Value) *Builder {
	if b.err == nil && len(field) > 0 && field[0] == '@' {
		b.err = errors.Newf("field id %q: metadata names are reserved", field)
		return b
	}
	b.fields[field] = v
	return b
}

// Build finalizes the entity. The builder must not be reused afterwards.
func (b *Builder) Build() (*Entity, error) {
	if b.err != nil {
		return nil, errors.Wrapf(b.err, "building entity %q", b.id)
	}
	return &Entity{
		id:     b.id,
		typ:    b.id.Type(),
		fields: b.fields,
	}, nil
}
