package query

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/teranos/lore/kb"
)

// AggregateKind selects the reduction applied to a filtered entity set.
type AggregateKind string

const (
	AggregateCount   AggregateKind = "count"
	AggregateSum     AggregateKind = "sum"
	AggregateAverage AggregateKind = "average"
	AggregateMedian  AggregateKind = "median"
	AggregateSelect  AggregateKind = "select"
)

// Aggregation reduces an already-filtered entity slice to a scalar or
// table. Count takes zero or one field, sum/average/median exactly one,
// select one or more. Execution is a pure function of (fields, entities);
// the input is never mutated.
type Aggregation struct {
	Kind   AggregateKind
	Fields []FieldRef
}

// Table is the result of a select projection: one named column per field
// reference, one row per input entity in input order. A nil cell is an
// absent field.
type Table struct {
	Columns []string
	Rows    [][]*kb.Value
}

// AggregateResult is either a scalar value (count, sum, average, median)
// or a projection table (select).
type AggregateResult struct {
	Value kb.Value
	Table *Table
}

// Execute runs the aggregation over the entity slice.
func (a Aggregation) Execute(entities []*kb.Entity) (*AggregateResult, error) {
	switch a.Kind {
	case AggregateCount:
		return a.executeCount(entities)
	case AggregateSum:
		return a.executeSum(entities)
	case AggregateAverage, AggregateMedian:
		return a.executeFloatReduction(entities)
	case AggregateSelect:
		return a.executeSelect(entities)
	default:
		return nil, invalidAggregationf("unknown aggregation %q", a.Kind)
	}
}

func (a Aggregation) singleField() (FieldRef, error) {
	if len(a.Fields) != 1 {
		return FieldRef{}, invalidAggregationf("%s requires exactly one field, got %d", a.Kind, len(a.Fields))
	}
	return a.Fields[0], nil
}

// collect gathers the present values of a field across entities,
// silently skipping entities that lack it.
func collect(field FieldRef, entities []*kb.Entity) []kb.Value {
	var values []kb.Value
	for _, e := range entities {
		if v, ok := field.Resolve(e); ok {
			values = append(values, v)
		}
	}
	return values
}

// executeCount counts all entities when no field (or a metadata field,
// which every entity has) is given, and present-field entities otherwise.
func (a Aggregation) executeCount(entities []*kb.Entity) (*AggregateResult, error) {
	if len(a.Fields) > 1 {
		return nil, invalidAggregationf("count takes at most one field, got %d", len(a.Fields))
	}
	if len(a.Fields) == 0 || a.Fields[0].Meta {
		return &AggregateResult{Value: kb.NewInteger(int64(len(entities)))}, nil
	}
	return &AggregateResult{Value: kb.NewInteger(int64(len(collect(a.Fields[0], entities))))}, nil
}

// numericClass is the result of the single classification pass over the
// collected values: every error condition is detected here, before any
// partial sum is computed.
type numericClass struct {
	sawFloat     bool
	sawCurrency  bool
	currencyCode string
}

func classifyNumeric(field FieldRef, values []kb.Value) (numericClass, error) {
	var class numericClass
	sawNumeric := false

	for _, v := range values {
		switch v.Kind() {
		case kb.KindInteger:
			sawNumeric = true
		case kb.KindFloat:
			sawNumeric = true
			class.sawFloat = true
		case kb.KindCurrency:
			if sawNumeric {
				return class, invalidAggregationf(
					"field %q mixes currency and plain numeric values", field)
			}
			if class.sawCurrency && class.currencyCode != v.CurrencyCode() {
				return class, invalidAggregationf(
					"field %q mixes currency codes %s and %s; filter to a single currency first",
					field, class.currencyCode, v.CurrencyCode())
			}
			class.sawCurrency = true
			class.currencyCode = v.CurrencyCode()
		default:
			return class, invalidAggregationf(
				"field %q has non-numeric type %s", field, v.TypeName())
		}
		if sawNumeric && class.sawCurrency {
			return class, invalidAggregationf(
				"field %q mixes currency and plain numeric values", field)
		}
	}
	return class, nil
}

// executeSum sums the present values. Integer-only input sums to an
// Integer, any float presence promotes to Float, currency sums keep their
// code. An empty set sums to Integer 0.
func (a Aggregation) executeSum(entities []*kb.Entity) (*AggregateResult, error) {
	field, err := a.singleField()
	if err != nil {
		return nil, err
	}

	values := collect(field, entities)
	if len(values) == 0 {
		return &AggregateResult{Value: kb.NewInteger(0)}, nil
	}

	class, err := classifyNumeric(field, values)
	if err != nil {
		return nil, err
	}

	switch {
	case class.sawCurrency:
		total := decimal.Zero
		for _, v := range values {
			total = total.Add(v.Amount())
		}
		return &AggregateResult{Value: kb.NewCurrency(total, class.currencyCode)}, nil

	case class.sawFloat:
		total := 0.0
		for _, v := range values {
			total += v.AsFloat()
		}
		return &AggregateResult{Value: kb.NewFloat(total)}, nil

	default:
		var total int64
		for _, v := range values {
			total += v.Int()
		}
		return &AggregateResult{Value: kb.NewInteger(total)}, nil
	}
}

// executeFloatReduction computes average or median. Both require a regular
// field and a non-empty matching set, and reduce every value to float64
// (currency through its decimal amount) before computing.
func (a Aggregation) executeFloatReduction(entities []*kb.Entity) (*AggregateResult, error) {
	field, err := a.singleField()
	if err != nil {
		return nil, err
	}
	if field.Meta {
		return nil, invalidAggregationf("%s is not defined for metadata field %q", a.Kind, field)
	}

	values := collect(field, entities)
	if len(values) == 0 {
		return nil, invalidAggregationf("%s of field %q: no entities have this field", a.Kind, field)
	}
	if _, err := classifyNumeric(field, values); err != nil {
		return nil, err
	}

	floats := make([]float64, len(values))
	for i, v := range values {
		if v.Kind() == kb.KindCurrency {
			floats[i] = v.Amount().InexactFloat64()
		} else {
			floats[i] = v.AsFloat()
		}
	}

	if a.Kind == AggregateAverage {
		total := 0.0
		for _, f := range floats {
			total += f
		}
		return &AggregateResult{Value: kb.NewFloat(total / float64(len(floats)))}, nil
	}

	// Median: stable numeric comparison, standard even/odd midpoint rule
	sort.Slice(floats, func(i, j int) bool { return compareNumeric(floats[i], floats[j]) < 0 })
	mid := len(floats) / 2
	if len(floats)%2 == 1 {
		return &AggregateResult{Value: kb.NewFloat(floats[mid])}, nil
	}
	return &AggregateResult{Value: kb.NewFloat((floats[mid-1] + floats[mid]) / 2)}, nil
}

// executeSelect projects fields into named columns, one row per entity in
// input order. Missing fields yield nil cells, not errors.
func (a Aggregation) executeSelect(entities []*kb.Entity) (*AggregateResult, error) {
	if len(a.Fields) == 0 {
		return nil, invalidAggregationf("select requires at least one field")
	}

	columns := make([]string, len(a.Fields))
	for i, f := range a.Fields {
		columns[i] = f.String()
	}

	rows := make([][]*kb.Value, 0, len(entities))
	for _, e := range entities {
		row := make([]*kb.Value, len(a.Fields))
		for i, f := range a.Fields {
			if v, ok := f.Resolve(e); ok {
				value := v
				row[i] = &value
			}
		}
		rows = append(rows, row)
	}

	return &AggregateResult{Table: &Table{Columns: columns, Rows: rows}}, nil
}
