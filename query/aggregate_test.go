package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/lore/kb"
)

func intEntities(t *testing.T, field kb.FieldID, values ...int64) []*kb.Entity {
	t.Helper()
	entities := make([]*kb.Entity, len(values))
	for i, v := range values {
		entities[i] = buildEntity(t, kb.NewEntityID("n", string(rune('a'+i))), map[kb.FieldID]kb.Value{
			field: kb.NewInteger(v),
		})
	}
	return entities
}

func TestCountAllAndPresent(t *testing.T) {
	entities := []*kb.Entity{
		buildEntity(t, "task.a", map[kb.FieldID]kb.Value{"due": kb.NewString("soon")}),
		buildEntity(t, "task.b", nil),
	}

	// No field: all entities
	result, err := Aggregation{Kind: AggregateCount}.Execute(entities)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Value.Int())

	// Metadata field: still all entities
	result, err = Aggregation{Kind: AggregateCount, Fields: []FieldRef{Meta("@id")}}.Execute(entities)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Value.Int())

	// Regular field: present only
	result, err = Aggregation{Kind: AggregateCount, Fields: []FieldRef{Field("due")}}.Execute(entities)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Value.Int())
}

func TestSumEmptySetIsIntegerZero(t *testing.T) {
	result, err := Aggregation{Kind: AggregateSum, Fields: []FieldRef{Field("x")}}.Execute(nil)
	require.NoError(t, err)
	assert.Equal(t, kb.KindInteger, result.Value.Kind())
	assert.Equal(t, int64(0), result.Value.Int())
}

func TestSumIntegersStaysInteger(t *testing.T) {
	entities := intEntities(t, "v", 10, 20, 30)
	result, err := Aggregation{Kind: AggregateSum, Fields: []FieldRef{Field("v")}}.Execute(entities)
	require.NoError(t, err)
	assert.Equal(t, kb.KindInteger, result.Value.Kind())
	assert.Equal(t, int64(60), result.Value.Int())
}

func TestSumFloatPresencePromotes(t *testing.T) {
	entities := []*kb.Entity{
		buildEntity(t, "n.a", map[kb.FieldID]kb.Value{"v": kb.NewFloat(1.5)}),
		buildEntity(t, "n.b", map[kb.FieldID]kb.Value{"v": kb.NewFloat(2.5)}),
	}
	result, err := Aggregation{Kind: AggregateSum, Fields: []FieldRef{Field("v")}}.Execute(entities)
	require.NoError(t, err)
	assert.Equal(t, kb.KindFloat, result.Value.Kind())
	assert.InDelta(t, 4.0, result.Value.Float(), 1e-12)

	mixed := []*kb.Entity{
		buildEntity(t, "m.a", map[kb.FieldID]kb.Value{"v": kb.NewInteger(1)}),
		buildEntity(t, "m.b", map[kb.FieldID]kb.Value{"v": kb.NewFloat(0.5)}),
	}
	result, err = Aggregation{Kind: AggregateSum, Fields: []FieldRef{Field("v")}}.Execute(mixed)
	require.NoError(t, err)
	assert.Equal(t, kb.KindFloat, result.Value.Kind())
	assert.InDelta(t, 1.5, result.Value.Float(), 1e-12)
}

func TestSumCurrencySameCode(t *testing.T) {
	entities := []*kb.Entity{
		buildEntity(t, "e.a", map[kb.FieldID]kb.Value{"cost": money(t, "100.50", "USD")}),
		buildEntity(t, "e.b", map[kb.FieldID]kb.Value{"cost": money(t, "200.75", "USD")}),
	}
	result, err := Aggregation{Kind: AggregateSum, Fields: []FieldRef{Field("cost")}}.Execute(entities)
	require.NoError(t, err)
	assert.Equal(t, kb.KindCurrency, result.Value.Kind())
	assert.Equal(t, "301.25", result.Value.Amount().String())
	assert.Equal(t, "USD", result.Value.CurrencyCode())
}

func TestSumMixedCurrencyCodesIsError(t *testing.T) {
	entities := []*kb.Entity{
		buildEntity(t, "e.a", map[kb.FieldID]kb.Value{"cost": money(t, "100", "USD")}),
		buildEntity(t, "e.b", map[kb.FieldID]kb.Value{"cost": money(t, "200", "EUR")}),
	}
	_, err := Aggregation{Kind: AggregateSum, Fields: []FieldRef{Field("cost")}}.Execute(entities)
	var invalid *InvalidAggregationError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Reason, "USD")
	assert.Contains(t, invalid.Reason, "EUR")
	assert.Contains(t, invalid.Reason, "filter")
}

func TestSumCurrencyMixedWithNumberIsError(t *testing.T) {
	entities := []*kb.Entity{
		buildEntity(t, "e.a", map[kb.FieldID]kb.Value{"cost": money(t, "100", "USD")}),
		buildEntity(t, "e.b", map[kb.FieldID]kb.Value{"cost": kb.NewInteger(5)}),
	}
	_, err := Aggregation{Kind: AggregateSum, Fields: []FieldRef{Field("cost")}}.Execute(entities)
	var invalid *InvalidAggregationError
	require.ErrorAs(t, err, &invalid)
}

func TestSumNonNumericIsErrorNamingType(t *testing.T) {
	entities := []*kb.Entity{
		buildEntity(t, "e.a", map[kb.FieldID]kb.Value{"name": kb.NewString("jane")}),
	}
	_, err := Aggregation{Kind: AggregateSum, Fields: []FieldRef{Field("name")}}.Execute(entities)
	var invalid *InvalidAggregationError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Reason, "string")
}

func TestSumSkipsAbsentFieldsSilently(t *testing.T) {
	entities := []*kb.Entity{
		buildEntity(t, "e.a", map[kb.FieldID]kb.Value{"v": kb.NewInteger(10)}),
		buildEntity(t, "e.b", nil),
		buildEntity(t, "e.c", map[kb.FieldID]kb.Value{"v": kb.NewInteger(5)}),
	}
	result, err := Aggregation{Kind: AggregateSum, Fields: []FieldRef{Field("v")}}.Execute(entities)
	require.NoError(t, err)
	assert.Equal(t, int64(15), result.Value.Int())
}

func TestAverage(t *testing.T) {
	entities := intEntities(t, "v", 10, 20, 30)
	result, err := Aggregation{Kind: AggregateAverage, Fields: []FieldRef{Field("v")}}.Execute(entities)
	require.NoError(t, err)
	assert.Equal(t, kb.KindFloat, result.Value.Kind())
	assert.InDelta(t, 20.0, result.Value.Float(), 1e-12)
}

func TestAverageOnMetadataIsError(t *testing.T) {
	entities := intEntities(t, "v", 1)
	_, err := Aggregation{Kind: AggregateAverage, Fields: []FieldRef{Meta("@id")}}.Execute(entities)
	var invalid *InvalidAggregationError
	require.ErrorAs(t, err, &invalid)
}

func TestAverageOfEmptySetIsError(t *testing.T) {
	_, err := Aggregation{Kind: AggregateAverage, Fields: []FieldRef{Field("v")}}.Execute(nil)
	var invalid *InvalidAggregationError
	require.ErrorAs(t, err, &invalid)
}

func TestMedianOddAndEven(t *testing.T) {
	odd := intEntities(t, "v", 30, 10, 20)
	result, err := Aggregation{Kind: AggregateMedian, Fields: []FieldRef{Field("v")}}.Execute(odd)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, result.Value.Float(), 1e-12)

	even := intEntities(t, "v", 20, 10)
	result, err = Aggregation{Kind: AggregateMedian, Fields: []FieldRef{Field("v")}}.Execute(even)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, result.Value.Float(), 1e-12)
}

func TestMedianOfCurrencyUsesDecimalAmount(t *testing.T) {
	entities := []*kb.Entity{
		buildEntity(t, "e.a", map[kb.FieldID]kb.Value{"cost": money(t, "10.50", "USD")}),
		buildEntity(t, "e.b", map[kb.FieldID]kb.Value{"cost": money(t, "20.50", "USD")}),
	}
	result, err := Aggregation{Kind: AggregateMedian, Fields: []FieldRef{Field("cost")}}.Execute(entities)
	require.NoError(t, err)
	assert.InDelta(t, 15.5, result.Value.Float(), 1e-9)
}

func TestSelectProjection(t *testing.T) {
	entities := []*kb.Entity{
		buildEntity(t, "person.jane", map[kb.FieldID]kb.Value{"name": kb.NewString("Jane")}),
		buildEntity(t, "person.bob", nil),
	}

	agg := Aggregation{Kind: AggregateSelect, Fields: []FieldRef{Field("name"), Meta("@id")}}
	result, err := agg.Execute(entities)
	require.NoError(t, err)
	require.NotNil(t, result.Table)

	assert.Equal(t, []string{"name", "@id"}, result.Table.Columns)
	require.Len(t, result.Table.Rows, 2)

	// Row order preserves entity order
	require.NotNil(t, result.Table.Rows[0][0])
	assert.Equal(t, "Jane", result.Table.Rows[0][0].Text())
	assert.Equal(t, "person.jane", result.Table.Rows[0][1].Text())

	// Missing field yields an absent cell, not an error
	assert.Nil(t, result.Table.Rows[1][0])
	assert.Equal(t, "person.bob", result.Table.Rows[1][1].Text())
}

func TestAggregationDoesNotMutateInput(t *testing.T) {
	entities := intEntities(t, "v", 3, 1, 2)
	before := make([]kb.EntityID, len(entities))
	for i, e := range entities {
		before[i] = e.ID()
	}

	_, err := Aggregation{Kind: AggregateMedian, Fields: []FieldRef{Field("v")}}.Execute(entities)
	require.NoError(t, err)

	for i, e := range entities {
		assert.Equal(t, before[i], e.ID(), "input slice order must be preserved")
	}
}
