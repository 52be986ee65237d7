package query

import (
	"math"
	"strings"
	"time"

	"github.com/teranos/lore/kb"
)

// Operator is a filter comparison operator from the query surface.
type Operator string

const (
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
	OpGreater        Operator = ">"
	OpLess           Operator = "<"
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
	OpContains       Operator = "contains"
	OpStartsWith     Operator = "startswith"
	OpEndsWith       Operator = "endswith"
	OpIn             Operator = "in"
)

// floatEpsilon is the tolerance for float equality. Float comparison is
// never bit-exact.
const floatEpsilon = 1e-9

// Supported operator sets per runtime type, used both for dispatch and for
// the supported-operator list carried by UnsupportedOperatorError.
var (
	textOperators      = []Operator{OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterOrEqual, OpLessOrEqual, OpContains, OpStartsWith, OpEndsWith, OpIn}
	numericOperators   = []Operator{OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterOrEqual, OpLessOrEqual, OpIn}
	booleanOperators   = []Operator{OpEqual, OpNotEqual}
	currencyOperators  = []Operator{OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterOrEqual, OpLessOrEqual}
	datetimeOperators  = []Operator{OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterOrEqual, OpLessOrEqual}
	referenceOperators = []Operator{OpEqual, OpNotEqual}
	listOperators      = []Operator{OpEqual, OpContains}
)

// Combinator joins the conditions of a compound filter.
type Combinator string

const (
	CombinatorAnd Combinator = "and"
	CombinatorOr  Combinator = "or"
)

// Condition is a single (field, operator, value) filter predicate.
type Condition struct {
	Field FieldRef
	Op    Operator
	Value kb.Value
}

// Matches evaluates the condition against one entity. An absent regular
// field evaluates to false, never an error; unsupported operator/type
// pairs and incomparable value types surface structured errors.
func (c Condition) Matches(e *kb.Entity) (bool, error) {
	fieldValue, ok := c.Field.Resolve(e)
	if !ok {
		return false, nil
	}
	return matchValue(fieldValue, c.Op, c.Value)
}

// Compound combines conditions with a logical combinator. AND requires
// every condition to pass, OR requires any. A single-condition compound is
// equivalent to the bare condition; an empty one matches everything.
type Compound struct {
	Conditions []Condition
	Combinator Combinator
}

// And builds an AND compound from conditions.
func And(conditions ...Condition) Compound {
	return Compound{Conditions: conditions, Combinator: CombinatorAnd}
}

// Or builds an OR compound from conditions.
func Or(conditions ...Condition) Compound {
	return Compound{Conditions: conditions, Combinator: CombinatorOr}
}

// Matches folds the inner conditions. Any condition error aborts
// evaluation immediately.
func (cc Compound) Matches(e *kb.Entity) (bool, error) {
	if cc.Combinator == CombinatorOr {
		for _, c := range cc.Conditions {
			ok, err := c.Matches(e)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return len(cc.Conditions) == 0, nil
	}

	for _, c := range cc.Conditions {
		ok, err := c.Matches(e)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// matchValue dispatches on the field's runtime variant. Every variant is
// handled; adding a Kind without extending this switch is a bug.
func matchValue(fv kb.Value, op Operator, qv kb.Value) (bool, error) {
	switch fv.Kind() {
	case kb.KindString, kb.KindEnum, kb.KindPath:
		return matchText(fv, op, qv)
	case kb.KindInteger, kb.KindFloat:
		return matchNumeric(fv, op, qv)
	case kb.KindBoolean:
		return matchBoolean(fv, op, qv)
	case kb.KindCurrency:
		return matchCurrency(fv, op, qv)
	case kb.KindDateTime:
		return matchDateTime(fv, op, qv)
	case kb.KindReference:
		return matchReference(fv, op, qv)
	case kb.KindList:
		return matchList(fv, op, qv)
	default:
		return false, &TypeMismatchError{FieldType: fv.TypeName(), ValueType: qv.TypeName()}
	}
}

// asText extracts comparable text from a filter value: string, enum, and
// path literals interchange freely; reference literals compare through
// their canonical form (so "@id == person.jane" works).
func asText(v kb.Value) (string, bool) {
	switch v.Kind() {
	case kb.KindString, kb.KindEnum, kb.KindPath:
		return v.Text(), true
	case kb.KindReference:
		return v.Ref().Canonical(), true
	default:
		return "", false
	}
}

// matchText covers string, enum, and path fields. All comparisons are
// case-insensitive.
func matchText(fv kb.Value, op Operator, qv kb.Value) (bool, error) {
	if op == OpIn {
		return matchInList(fv, qv)
	}

	text, ok := asText(qv)
	if !ok {
		return false, &TypeMismatchError{FieldType: fv.TypeName(), ValueType: qv.TypeName()}
	}

	field := strings.ToLower(fv.Text())
	query := strings.ToLower(text)

	switch op {
	case OpEqual:
		return field == query, nil
	case OpNotEqual:
		return field != query, nil
	case OpGreater:
		return field > query, nil
	case OpLess:
		return field < query, nil
	case OpGreaterOrEqual:
		return field >= query, nil
	case OpLessOrEqual:
		return field <= query, nil
	case OpContains:
		return strings.Contains(field, query), nil
	case OpStartsWith:
		return strings.HasPrefix(field, query), nil
	case OpEndsWith:
		return strings.HasSuffix(field, query), nil
	default:
		return false, &UnsupportedOperatorError{TypeName: fv.TypeName(), Operator: op, Supported: textOperators}
	}
}

// numericEqual compares with integer exactness when both sides are
// integers and epsilon tolerance as soon as a float is involved.
func numericEqual(fv, qv kb.Value) bool {
	if fv.Kind() == kb.KindInteger && qv.Kind() == kb.KindInteger {
		return fv.Int() == qv.Int()
	}
	return math.Abs(fv.AsFloat()-qv.AsFloat()) < floatEpsilon
}

// matchNumeric covers integer and float fields with cross-variant
// promotion: an integer field compares against a float literal by value.
func matchNumeric(fv kb.Value, op Operator, qv kb.Value) (bool, error) {
	if op == OpIn {
		return matchInList(fv, qv)
	}

	switch op {
	case OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterOrEqual, OpLessOrEqual:
	default:
		return false, &UnsupportedOperatorError{TypeName: fv.TypeName(), Operator: op, Supported: numericOperators}
	}

	if !qv.IsNumeric() {
		return false, &TypeMismatchError{FieldType: fv.TypeName(), ValueType: qv.TypeName()}
	}

	switch op {
	case OpEqual:
		return numericEqual(fv, qv), nil
	case OpNotEqual:
		return !numericEqual(fv, qv), nil
	case OpGreater:
		return fv.AsFloat() > qv.AsFloat(), nil
	case OpLess:
		return fv.AsFloat() < qv.AsFloat(), nil
	case OpGreaterOrEqual:
		return fv.AsFloat() >= qv.AsFloat(), nil
	default: // OpLessOrEqual
		return fv.AsFloat() <= qv.AsFloat(), nil
	}
}

func matchBoolean(fv kb.Value, op Operator, qv kb.Value) (bool, error) {
	switch op {
	case OpEqual, OpNotEqual:
	default:
		return false, &UnsupportedOperatorError{TypeName: fv.TypeName(), Operator: op, Supported: booleanOperators}
	}
	if qv.Kind() != kb.KindBoolean {
		return false, &TypeMismatchError{FieldType: fv.TypeName(), ValueType: qv.TypeName()}
	}
	if op == OpEqual {
		return fv.Bool() == qv.Bool(), nil
	}
	return fv.Bool() != qv.Bool(), nil
}

// matchCurrency compares amounts only when the currency codes match;
// differing codes are simply no match, never an error.
func matchCurrency(fv kb.Value, op Operator, qv kb.Value) (bool, error) {
	switch op {
	case OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterOrEqual, OpLessOrEqual:
	default:
		return false, &UnsupportedOperatorError{TypeName: fv.TypeName(), Operator: op, Supported: currencyOperators}
	}
	if qv.Kind() != kb.KindCurrency {
		return false, &TypeMismatchError{FieldType: fv.TypeName(), ValueType: qv.TypeName()}
	}
	if fv.CurrencyCode() != qv.CurrencyCode() {
		return false, nil
	}

	cmp := fv.Amount().Cmp(qv.Amount())
	switch op {
	case OpEqual:
		return cmp == 0, nil
	case OpNotEqual:
		return cmp != 0, nil
	case OpGreater:
		return cmp > 0, nil
	case OpLess:
		return cmp < 0, nil
	case OpGreaterOrEqual:
		return cmp >= 0, nil
	default: // OpLessOrEqual
		return cmp <= 0, nil
	}
}

// sameCalendarDate compares year/month/day in each instant's own offset.
func sameCalendarDate(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	switch {
	case ay != by:
		return compareInt(ay, by)
	case am != bm:
		return compareInt(int(am), int(bm))
	default:
		return compareInt(ad, bd)
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// matchDateTime compares datetime fields. The filter value may be a full
// offset-aware timestamp or a string: a parsable RFC 3339 string compares
// as a full instant, a bare YYYY-MM-DD degrades to date-only comparison,
// and an unparsable string is simply no match.
func matchDateTime(fv kb.Value, op Operator, qv kb.Value) (bool, error) {
	switch op {
	case OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterOrEqual, OpLessOrEqual:
	default:
		return false, &UnsupportedOperatorError{TypeName: fv.TypeName(), Operator: op, Supported: datetimeOperators}
	}

	var cmp int
	switch qv.Kind() {
	case kb.KindDateTime:
		cmp = compareInstants(fv.Time(), qv.Time())
	case kb.KindString:
		if instant, err := time.Parse(time.RFC3339, qv.Text()); err == nil {
			cmp = compareInstants(fv.Time(), instant)
		} else if date, err := time.Parse("2006-01-02", qv.Text()); err == nil {
			cmp = sameCalendarDate(fv.Time(), date)
		} else {
			return false, nil
		}
	default:
		return false, &TypeMismatchError{FieldType: fv.TypeName(), ValueType: qv.TypeName()}
	}

	switch op {
	case OpEqual:
		return cmp == 0, nil
	case OpNotEqual:
		return cmp != 0, nil
	case OpGreater:
		return cmp > 0, nil
	case OpLess:
		return cmp < 0, nil
	case OpGreaterOrEqual:
		return cmp >= 0, nil
	default: // OpLessOrEqual
		return cmp <= 0, nil
	}
}

func compareInstants(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// matchReference reduces both sides to canonical string form and compares
// case-insensitively. Only equality operators are valid.
func matchReference(fv kb.Value, op Operator, qv kb.Value) (bool, error) {
	switch op {
	case OpEqual, OpNotEqual:
	default:
		return false, &UnsupportedOperatorError{TypeName: fv.TypeName(), Operator: op, Supported: referenceOperators}
	}

	text, ok := asText(qv)
	if !ok {
		return false, &TypeMismatchError{FieldType: fv.TypeName(), ValueType: qv.TypeName()}
	}

	equal := fv.Ref().Canonical() == strings.ToLower(text)
	if op == OpNotEqual {
		return !equal, nil
	}
	return equal, nil
}

// matchInList implements "field in [a, b, c]": does any list element equal
// the field value. Type-incompatible elements are non-matches.
func matchInList(fv kb.Value, qv kb.Value) (bool, error) {
	if qv.Kind() != kb.KindList {
		return false, &TypeMismatchError{FieldType: fv.TypeName(), ValueType: qv.TypeName()}
	}
	for _, elem := range qv.List() {
		if ok, err := matchValue(fv, OpEqual, elem); err == nil && ok {
			return true, nil
		}
	}
	return false, nil
}

// matchList covers list fields: "contains" asks whether any element
// matches (substring semantics for text elements, equality otherwise) and
// "==" is element-wise with same length and order. Nested list elements
// never match. All other operators are errors.
func matchList(fv kb.Value, op Operator, qv kb.Value) (bool, error) {
	switch op {
	case OpContains:
		for _, elem := range fv.List() {
			if elem.Kind() == kb.KindList {
				continue
			}
			var elemOp Operator = OpEqual
			switch elem.Kind() {
			case kb.KindString, kb.KindEnum, kb.KindPath:
				elemOp = OpContains
			}
			if ok, err := matchValue(elem, elemOp, qv); err == nil && ok {
				return true, nil
			}
		}
		return false, nil

	case OpEqual:
		if qv.Kind() != kb.KindList {
			return false, &TypeMismatchError{FieldType: fv.TypeName(), ValueType: qv.TypeName()}
		}
		want := qv.List()
		have := fv.List()
		if len(have) != len(want) {
			return false, nil
		}
		for i := range have {
			if have[i].Kind() == kb.KindList || want[i].Kind() == kb.KindList {
				return false, nil
			}
			ok, err := matchValue(have[i], OpEqual, want[i])
			if err != nil || !ok {
				return false, nil
			}
		}
		return true, nil

	default:
		return false, &UnsupportedOperatorError{TypeName: fv.TypeName(), Operator: op, Supported: listOperators}
	}
}
