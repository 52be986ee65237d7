package query

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/lore/kb"
)

func buildEntity(t *testing.T, id kb.EntityID, fields map[kb.FieldID]kb.Value) *kb.Entity {
	t.Helper()
	b := kb.NewBuilder(id)
	for f, v := range fields {
		b.Set(f, v)
	}
	e, err := b.Build()
	require.NoError(t, err)
	return e
}

func money(t *testing.T, amount, code string) kb.Value {
	t.Helper()
	d, err := decimal.NewFromString(amount)
	require.NoError(t, err)
	return kb.NewCurrency(d, code)
}

func TestTextMatchingIsCaseInsensitive(t *testing.T) {
	e := buildEntity(t, "person.jane", map[kb.FieldID]kb.Value{
		"name": kb.NewString("HELLO World"),
	})

	tests := []struct {
		op    Operator
		value string
		want  bool
	}{
		{OpEqual, "hello world", true},
		{OpEqual, "HELLO WORLD", true},
		{OpNotEqual, "hello world", false},
		{OpContains, "lo wo", true},
		{OpContains, "LO WO", true},
		{OpStartsWith, "hello", true},
		{OpEndsWith, "WORLD", true},
		{OpStartsWith, "world", false},
	}

	for _, tt := range tests {
		cond := Condition{Field: Field("name"), Op: tt.op, Value: kb.NewString(tt.value)}
		got, err := cond.Matches(e)
		require.NoError(t, err, "op %s value %q", tt.op, tt.value)
		assert.Equal(t, tt.want, got, "op %s value %q", tt.op, tt.value)
	}
}

func TestEnumAndPathCompareLikeStrings(t *testing.T) {
	e := buildEntity(t, "task.t1", map[kb.FieldID]kb.Value{
		"status": kb.NewEnum("Active"),
		"doc":    kb.NewPath("Docs/Readme.md"),
	})

	got, err := Condition{Field: Field("status"), Op: OpEqual, Value: kb.NewString("active")}.Matches(e)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Condition{Field: Field("doc"), Op: OpEndsWith, Value: kb.NewString("readme.md")}.Matches(e)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestMissingFieldIsFalseNotError(t *testing.T) {
	e := buildEntity(t, "person.jane", nil)
	got, err := Condition{Field: Field("nope"), Op: OpEqual, Value: kb.NewString("x")}.Matches(e)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestNumericPromotionAcrossVariants(t *testing.T) {
	e := buildEntity(t, "task.t1", map[kb.FieldID]kb.Value{
		"estimate": kb.NewInteger(3),
		"score":    kb.NewFloat(2.5),
	})

	// Integer field vs float literal compares by numeric value
	got, err := Condition{Field: Field("estimate"), Op: OpEqual, Value: kb.NewFloat(3.0)}.Matches(e)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Condition{Field: Field("score"), Op: OpGreater, Value: kb.NewInteger(2)}.Matches(e)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestFloatEqualityUsesEpsilon(t *testing.T) {
	e := buildEntity(t, "task.t1", map[kb.FieldID]kb.Value{
		"score": kb.NewFloat(0.1 + 0.2),
	})
	got, err := Condition{Field: Field("score"), Op: OpEqual, Value: kb.NewFloat(0.3)}.Matches(e)
	require.NoError(t, err)
	assert.True(t, got, "0.1+0.2 should equal 0.3 within epsilon")
}

func TestNumericVsStringIsTypeMismatch(t *testing.T) {
	e := buildEntity(t, "task.t1", map[kb.FieldID]kb.Value{
		"estimate": kb.NewInteger(3),
	})
	_, err := Condition{Field: Field("estimate"), Op: OpEqual, Value: kb.NewString("3")}.Matches(e)
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "integer", mismatch.FieldType)
	assert.Equal(t, "string", mismatch.ValueType)
}

func TestContainsOnIntegerIsUnsupportedOperator(t *testing.T) {
	e := buildEntity(t, "task.t1", map[kb.FieldID]kb.Value{
		"estimate": kb.NewInteger(3),
	})
	_, err := Condition{Field: Field("estimate"), Op: OpContains, Value: kb.NewInteger(3)}.Matches(e)
	var unsupported *UnsupportedOperatorError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "integer", unsupported.TypeName)
	assert.Equal(t, OpContains, unsupported.Operator)
	assert.Contains(t, unsupported.Supported, OpEqual)
	assert.NotContains(t, unsupported.Supported, OpContains)
}

func TestCurrencyCodeMismatchIsFalseNotError(t *testing.T) {
	e := buildEntity(t, "expense.lunch", map[kb.FieldID]kb.Value{
		"cost": money(t, "100.50", "USD"),
	})

	got, err := Condition{Field: Field("cost"), Op: OpEqual, Value: money(t, "100.50", "EUR")}.Matches(e)
	require.NoError(t, err)
	assert.False(t, got, "differing codes never match")

	got, err = Condition{Field: Field("cost"), Op: OpGreater, Value: money(t, "50", "EUR")}.Matches(e)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = Condition{Field: Field("cost"), Op: OpGreater, Value: money(t, "50", "USD")}.Matches(e)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestDateTimeAgainstBareDateDegradesToDateOnly(t *testing.T) {
	e := buildEntity(t, "meeting.standup", map[kb.FieldID]kb.Value{
		"at": kb.NewDateTime(time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC)),
	})

	got, err := Condition{Field: Field("at"), Op: OpEqual, Value: kb.NewString("2026-02-10")}.Matches(e)
	require.NoError(t, err)
	assert.True(t, got, "bare date ignores time-of-day")

	got, err = Condition{Field: Field("at"), Op: OpGreater, Value: kb.NewString("2026-02-09")}.Matches(e)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestDateTimeUnparsableStringIsNoMatch(t *testing.T) {
	e := buildEntity(t, "meeting.standup", map[kb.FieldID]kb.Value{
		"at": kb.NewDateTime(time.Now()),
	})
	got, err := Condition{Field: Field("at"), Op: OpEqual, Value: kb.NewString("not a date")}.Matches(e)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestDateTimeContainsIsError(t *testing.T) {
	e := buildEntity(t, "meeting.standup", map[kb.FieldID]kb.Value{
		"at": kb.NewDateTime(time.Now()),
	})
	_, err := Condition{Field: Field("at"), Op: OpContains, Value: kb.NewString("2026")}.Matches(e)
	var unsupported *UnsupportedOperatorError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "datetime", unsupported.TypeName)
}

func TestReferenceComparesCanonically(t *testing.T) {
	e := buildEntity(t, "person.jane", map[kb.FieldID]kb.Value{
		"employer": kb.NewReference(kb.Reference{Entity: "Org.Acme"}),
	})

	got, err := Condition{
		Field: Field("employer"),
		Op:    OpEqual,
		Value: kb.NewReference(kb.Reference{Entity: "org.acme"}),
	}.Matches(e)
	require.NoError(t, err)
	assert.True(t, got)

	_, err = Condition{
		Field: Field("employer"),
		Op:    OpGreater,
		Value: kb.NewReference(kb.Reference{Entity: "org.acme"}),
	}.Matches(e)
	var unsupported *UnsupportedOperatorError
	require.ErrorAs(t, err, &unsupported)
}

func TestListContains(t *testing.T) {
	e := buildEntity(t, "person.jane", map[kb.FieldID]kb.Value{
		"tags":   kb.NewList([]kb.Value{kb.NewString("Golang"), kb.NewString("distributed systems")}),
		"scores": kb.NewList([]kb.Value{kb.NewInteger(1), kb.NewInteger(2)}),
	})

	// Substring semantics for string elements
	got, err := Condition{Field: Field("tags"), Op: OpContains, Value: kb.NewString("go")}.Matches(e)
	require.NoError(t, err)
	assert.True(t, got)

	// Equality for everything else
	got, err = Condition{Field: Field("scores"), Op: OpContains, Value: kb.NewInteger(2)}.Matches(e)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Condition{Field: Field("scores"), Op: OpContains, Value: kb.NewInteger(5)}.Matches(e)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestListEqualsElementwise(t *testing.T) {
	e := buildEntity(t, "person.jane", map[kb.FieldID]kb.Value{
		"scores": kb.NewList([]kb.Value{kb.NewInteger(1), kb.NewInteger(2)}),
	})

	got, err := Condition{
		Field: Field("scores"), Op: OpEqual,
		Value: kb.NewList([]kb.Value{kb.NewInteger(1), kb.NewInteger(2)}),
	}.Matches(e)
	require.NoError(t, err)
	assert.True(t, got)

	// Same elements, different order
	got, err = Condition{
		Field: Field("scores"), Op: OpEqual,
		Value: kb.NewList([]kb.Value{kb.NewInteger(2), kb.NewInteger(1)}),
	}.Matches(e)
	require.NoError(t, err)
	assert.False(t, got)

	// Different length
	got, err = Condition{
		Field: Field("scores"), Op: OpEqual,
		Value: kb.NewList([]kb.Value{kb.NewInteger(1)}),
	}.Matches(e)
	require.NoError(t, err)
	assert.False(t, got)

	// Other operators are errors
	_, err = Condition{
		Field: Field("scores"), Op: OpGreater,
		Value: kb.NewList([]kb.Value{kb.NewInteger(1)}),
	}.Matches(e)
	var unsupported *UnsupportedOperatorError
	require.ErrorAs(t, err, &unsupported)
}

func TestNestedListElementsNeverMatch(t *testing.T) {
	e := buildEntity(t, "odd.case", map[kb.FieldID]kb.Value{
		"nested": kb.NewList([]kb.Value{
			kb.NewList([]kb.Value{kb.NewString("inner")}),
		}),
	})
	got, err := Condition{Field: Field("nested"), Op: OpContains, Value: kb.NewString("inner")}.Matches(e)
	require.NoError(t, err)
	assert.False(t, got, "nested lists are silent non-matches")
}

func TestInOperator(t *testing.T) {
	e := buildEntity(t, "task.t1", map[kb.FieldID]kb.Value{
		"status":   kb.NewEnum("active"),
		"estimate": kb.NewInteger(3),
	})

	got, err := Condition{
		Field: Field("status"), Op: OpIn,
		Value: kb.NewList([]kb.Value{kb.NewString("ACTIVE"), kb.NewString("done")}),
	}.Matches(e)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Condition{
		Field: Field("estimate"), Op: OpIn,
		Value: kb.NewList([]kb.Value{kb.NewInteger(1), kb.NewInteger(2)}),
	}.Matches(e)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestMetadataFields(t *testing.T) {
	e := buildEntity(t, "person.jane", nil)

	got, err := Condition{Field: Meta("@type"), Op: OpEqual, Value: kb.NewString("person")}.Matches(e)
	require.NoError(t, err)
	assert.True(t, got)

	// A reference literal against @id compares through its canonical form
	got, err = Condition{
		Field: Meta("@id"), Op: OpEqual,
		Value: kb.NewReference(kb.Reference{Entity: "Person.Jane"}),
	}.Matches(e)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestCompoundSingleConditionEqualsBare(t *testing.T) {
	e := buildEntity(t, "task.t1", map[kb.FieldID]kb.Value{
		"done": kb.NewBoolean(false),
	})
	cond := Condition{Field: Field("done"), Op: OpEqual, Value: kb.NewBoolean(false)}

	bare, err := cond.Matches(e)
	require.NoError(t, err)
	wrapped, err := And(cond).Matches(e)
	require.NoError(t, err)
	assert.Equal(t, bare, wrapped, "single-condition compound is a no-op wrapper")
}

func TestCompoundAndOr(t *testing.T) {
	e := buildEntity(t, "task.t1", map[kb.FieldID]kb.Value{
		"done":     kb.NewBoolean(false),
		"priority": kb.NewInteger(2),
	})
	isDone := Condition{Field: Field("done"), Op: OpEqual, Value: kb.NewBoolean(true)}
	highPriority := Condition{Field: Field("priority"), Op: OpGreaterOrEqual, Value: kb.NewInteger(2)}

	got, err := And(isDone, highPriority).Matches(e)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = Or(isDone, highPriority).Matches(e)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestCompoundPropagatesErrors(t *testing.T) {
	e := buildEntity(t, "task.t1", map[kb.FieldID]kb.Value{
		"done": kb.NewBoolean(false),
	})
	bad := Condition{Field: Field("done"), Op: OpContains, Value: kb.NewString("x")}
	fine := Condition{Field: Field("done"), Op: OpEqual, Value: kb.NewBoolean(false)}

	_, err := Or(bad, fine).Matches(e)
	var unsupported *UnsupportedOperatorError
	require.ErrorAs(t, err, &unsupported, "errors abort even under OR")
}
