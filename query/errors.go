package query

import (
	"fmt"
	"strings"

	"github.com/teranos/lore/kb"
)

// The engine's error taxonomy. All four are structured errors matched with
// errors.As; any of them occurring during selector resolution or a where
// evaluation aborts the whole query. Missing individual fields are never
// errors.

// UnsupportedOperatorError reports an operator that is not valid for the
// field's runtime type, together with the operators that are.
type UnsupportedOperatorError struct {
	TypeName  string
	Operator  Operator
	Supported []Operator
}

func (e *UnsupportedOperatorError) Error() string {
	ops := make([]string, len(e.Supported))
	for i, op := range e.Supported {
		ops[i] = string(op)
	}
	return fmt.Sprintf("operator %q is not supported for %s fields (supported: %s)",
		e.Operator, e.TypeName, strings.Join(ops, ", "))
}

// TypeMismatchError reports a filter value whose type cannot be compared
// against the field's runtime type.
type TypeMismatchError struct {
	FieldType string
	ValueType string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cannot compare %s field against %s value", e.FieldType, e.ValueType)
}

// InvalidAggregationError reports an aggregation that cannot be computed:
// metadata fields where disallowed, empty input where a value is required,
// non-numeric fields for sum/average/median, or mixed incompatible inputs.
type InvalidAggregationError struct {
	Reason string
}

func (e *InvalidAggregationError) Error() string {
	return "invalid aggregation: " + e.Reason
}

func invalidAggregationf(format string, args ...interface{}) *InvalidAggregationError {
	return &InvalidAggregationError{Reason: fmt.Sprintf(format, args...)}
}

// UnknownEntityTypeError reports a from clause naming a type the graph
// does not know, listing the types that do exist.
type UnknownEntityTypeError struct {
	Type  kb.EntityType
	Known []kb.EntityType
}

func (e *UnknownEntityTypeError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown entity type %q (graph has no entity types)", e.Type)
	}
	names := make([]string, len(e.Known))
	for i, t := range e.Known {
		names[i] = string(t)
	}
	return fmt.Sprintf("unknown entity type %q (known types: %s)", e.Type, strings.Join(names, ", "))
}
