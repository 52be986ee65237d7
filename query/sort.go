package query

import (
	"math"
	"sort"
	"strings"

	"github.com/teranos/lore/kb"
)

// SortDirection orders a sort ascending or descending.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// Rank of each variant on the cross-type precedence ladder:
// Boolean < Integer/Float < String/Enum/Path < DateTime < Currency <
// Reference < List.
func typeRank(k kb.Kind) int {
	switch k {
	case kb.KindBoolean:
		return 0
	case kb.KindInteger, kb.KindFloat:
		return 1
	case kb.KindString, kb.KindEnum, kb.KindPath:
		return 2
	case kb.KindDateTime:
		return 3
	case kb.KindCurrency:
		return 4
	case kb.KindReference:
		return 5
	case kb.KindList:
		return 6
	default:
		return 7
	}
}

// CompareEntities is the total-order comparator between two entities for a
// field reference and direction. An entity lacking the sort field sorts
// after one that has it; when both lack it they are equal. Descending
// reverses the computed ordering wholesale, missing-value and NaN
// placement included.
func CompareEntities(a, b *kb.Entity, field FieldRef, dir SortDirection) int {
	av, aok := field.Resolve(a)
	bv, bok := field.Resolve(b)

	var cmp int
	switch {
	case !aok && !bok:
		cmp = 0
	case !aok:
		cmp = 1
	case !bok:
		cmp = -1
	default:
		cmp = compareValues(av, bv)
	}

	if dir == Descending {
		return -cmp
	}
	return cmp
}

// compareValues orders two values: same-variant comparisons use natural
// ordering, cross-variant ones fall back to the type-precedence ladder.
func compareValues(a, b kb.Value) int {
	ar, br := typeRank(a.Kind()), typeRank(b.Kind())
	if ar != br {
		return compareInt(ar, br)
	}

	switch a.Kind() {
	case kb.KindBoolean:
		return compareBool(a.Bool(), b.Bool())
	case kb.KindInteger, kb.KindFloat:
		return compareNumeric(a.AsFloat(), b.AsFloat())
	case kb.KindString, kb.KindEnum, kb.KindPath:
		return strings.Compare(strings.ToLower(a.Text()), strings.ToLower(b.Text()))
	case kb.KindDateTime:
		return compareInstants(a.Time(), b.Time())
	case kb.KindCurrency:
		if a.CurrencyCode() != b.CurrencyCode() {
			return strings.Compare(a.CurrencyCode(), b.CurrencyCode())
		}
		return a.Amount().Cmp(b.Amount())
	case kb.KindReference:
		return strings.Compare(a.Ref().Canonical(), b.Ref().Canonical())
	case kb.KindList:
		return compareLists(a.List(), b.List())
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a: // false sorts before true
		return -1
	default:
		return 1
	}
}

// compareNumeric orders floats with NaN last.
func compareNumeric(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareLists orders element-wise; on a shared prefix the shorter list
// wins.
func compareLists(a, b []kb.Value) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if cmp := compareValues(a[i], b[i]); cmp != 0 {
			return cmp
		}
	}
	return compareInt(len(a), len(b))
}

// SortEntities stably sorts the slice in place by the given field and
// direction.
func SortEntities(entities []*kb.Entity, field FieldRef, dir SortDirection) {
	sort.SliceStable(entities, func(i, j int) bool {
		return CompareEntities(entities[i], entities[j], field, dir) < 0
	})
}
