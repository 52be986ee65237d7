// Package kb defines the core data model of the LORE knowledge base:
// typed field values, entity identities, references between entities,
// and the immutable entity record itself.
package kb

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teranos/lore/errors"
)

// Kind identifies the runtime variant of a field value.
// These names appear verbatim in query error messages.
type Kind string

const (
	KindString    Kind = "string"
	KindInteger   Kind = "integer"
	KindFloat     Kind = "float"
	KindBoolean   Kind = "boolean"
	KindCurrency  Kind = "currency"
	KindDateTime  Kind = "datetime"
	KindReference Kind = "reference"
	KindPath      Kind = "path"
	KindEnum      Kind = "enum"
	KindList      Kind = "list"
)

// EntityType is the type tag of an entity ("person", "task", ...).
type EntityType string

// FieldID is the key of a field within an entity.
type FieldID string

// EntityID is a composite, type-qualified entity identity such as
// "person.john_doe". The part before the first dot is the entity type.
type EntityID string

// NewEntityID builds a composite id from its parts.
func NewEntityID(typ EntityType, name string) EntityID {
	return EntityID(string(typ) + "." + name)
}

// ParseEntityID validates and returns a composite entity id.
func ParseEntityID(s string) (EntityID, error) {
	typ, name, ok := strings.Cut(s, ".")
	if !ok || typ == "" || name == "" {
		return "", errors.Newf("invalid entity id %q: expected type.name", s)
	}
	return EntityID(s), nil
}

// Type returns the entity type part of the composite id.
func (id EntityID) Type() EntityType {
	typ, _, _ := strings.Cut(string(id), ".")
	return EntityType(typ)
}

// Name returns the local name part of the composite id.
func (id EntityID) Name() string {
	_, name, _ := strings.Cut(string(id), ".")
	return name
}

// Reference points at another entity, optionally at one of its fields.
type Reference struct {
	Entity EntityID
	Field  FieldID // empty for entity-level references
}

// ParseReference parses "type.id" or "type.id.field" reference text.
func ParseReference(s string) (Reference, error) {
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 2:
		id, err := ParseEntityID(s)
		if err != nil {
			return Reference{}, err
		}
		return Reference{Entity: id}, nil
	case 3:
		id, err := ParseEntityID(parts[0] + "." + parts[1])
		if err != nil {
			return Reference{}, err
		}
		if parts[2] == "" {
			return Reference{}, errors.Newf("invalid reference %q: empty field", s)
		}
		return Reference{Entity: id, Field: FieldID(parts[2])}, nil
	default:
		return Reference{}, errors.Newf("invalid reference %q: expected type.id or type.id.field", s)
	}
}

// Canonical returns the lowercase canonical string form of the reference.
// Reference comparisons reduce both sides to this form.
func (r Reference) Canonical() string {
	s := string(r.Entity)
	if r.Field != "" {
		s += "." + string(r.Field)
	}
	return strings.ToLower(s)
}

// Value is the tagged union over the field value kinds. Values are
// immutable once constructed; comparators in the query package switch
// exhaustively on Kind().
type Value struct {
	kind    Kind
	text    string // string, path, enum
	integer int64
	float   float64
	boolean bool
	amount  decimal.Decimal
	code    string // ISO currency code
	instant time.Time
	ref     Reference
	list    []Value
}

// NewString builds a string value.
func NewString(s string) Value { return Value{kind: KindString, text: s} }

// NewInteger builds a 64-bit signed integer value.
func NewInteger(i int64) Value { return Value{kind: KindInteger, integer: i} }

// NewFloat builds a 64-bit float value.
func NewFloat(f float64) Value { return Value{kind: KindFloat, float: f} }

// NewBoolean builds a boolean value.
func NewBoolean(b bool) Value { return Value{kind: KindBoolean, boolean: b} }

// NewCurrency builds a currency value from an arbitrary-precision amount
// and an ISO currency code. The code is stored uppercase.
func NewCurrency(amount decimal.Decimal, code string) Value {
	return Value{kind: KindCurrency, amount: amount, code: strings.ToUpper(code)}
}

// NewDateTime builds an instant value with its fixed UTC offset preserved.
func NewDateTime(t time.Time) Value { return Value{kind: KindDateTime, instant: t} }

// NewReference builds a reference value.
func NewReference(r Reference) Value { return Value{kind: KindReference, ref: r} }

// NewPath builds a path value. Paths are stored relative to the defining
// source record; no normalization happens here.
func NewPath(p string) Value { return Value{kind: KindPath, text: p} }

// NewEnum builds an enum tag value.
func NewEnum(tag string) Value { return Value{kind: KindEnum, text: tag} }

// NewList builds a list value. Elements are expected to be homogeneous
// non-list values; nested lists are representable but treated as
// non-matching by every comparator rather than rejected here.
func NewList(elems []Value) Value { return Value{kind: KindList, list: elems} }

// Kind returns the runtime variant tag.
func (v Value) Kind() Kind { return v.kind }

// TypeName returns the canonical type name used in error messages.
func (v Value) TypeName() string { return string(v.kind) }

// Text returns the raw text of a string, path, or enum value.
func (v Value) Text() string { return v.text }

// Int returns the integer payload.
func (v Value) Int() int64 { return v.integer }

// Float returns the float payload.
func (v Value) Float() float64 { return v.float }

// Bool returns the boolean payload.
func (v Value) Bool() bool { return v.boolean }

// Amount returns the decimal amount of a currency value.
func (v Value) Amount() decimal.Decimal { return v.amount }

// CurrencyCode returns the ISO code of a currency value.
func (v Value) CurrencyCode() string { return v.code }

// Time returns the instant of a datetime value.
func (v Value) Time() time.Time { return v.instant }

// Ref returns the reference payload.
func (v Value) Ref() Reference { return v.ref }

// List returns the element slice of a list value. Callers must not mutate it.
func (v Value) List() []Value { return v.list }

// IsNumeric reports whether the value participates in numeric promotion.
func (v Value) IsNumeric() bool {
	return v.kind == KindInteger || v.kind == KindFloat
}

// AsFloat reduces an integer or float value to float64.
func (v Value) AsFloat() float64 {
	if v.kind == KindInteger {
		return float64(v.integer)
	}
	return v.float
}

// String renders the value in its literal display form. Used by the CLI,
// the visualization export, and JSON projection cells.
func (v Value) String() string {
	switch v.kind {
	case KindString, KindPath, KindEnum:
		return v.text
	case KindInteger:
		return strconv.FormatInt(v.integer, 10)
	case KindFloat:
		return strconv.FormatFloat(v.float, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.boolean)
	case KindCurrency:
		return v.amount.String() + " " + v.code
	case KindDateTime:
		return v.instant.Format(time.RFC3339)
	case KindReference:
		return v.ref.Canonical()
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return ""
	}
}
