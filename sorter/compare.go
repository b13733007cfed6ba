package sorter

import (
	"math"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/viant/rescache/schema"
)

// Comparator returns a negative number when a orders before b, zero when
// they tie and a positive number otherwise.
type Comparator func(a, b any) int

var comparators = map[schema.DataType]func(language.Tag) Comparator{
	schema.String:  stringComparator,
	schema.Date:    func(language.Tag) Comparator { return compareDates },
	schema.Number:  func(language.Tag) Comparator { return compareNumbers },
	schema.Boolean: func(language.Tag) Comparator { return compareBooleans },
}

// comparatorFor picks the comparator of t; types without one (json) fall
// back to the string comparator.
func comparatorFor(t schema.DataType, locale language.Tag) Comparator {
	if mk, ok := comparators[t]; ok {
		return mk(locale)
	}
	return stringComparator(locale)
}

func stringComparator(locale language.Tag) Comparator {
	// A collator keeps per-call buffers, so each sort gets its own.
	c := collate.New(locale)
	return func(a, b any) int {
		return c.CompareString(schema.ToString(a), schema.ToString(b))
	}
}

// Missing or unparsable dates order before every real date.
func compareDates(a, b any) int {
	ta, okA := schema.ToTime(a)
	tb, okB := schema.ToTime(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}
	return ta.Compare(tb)
}

func compareNumbers(a, b any) int {
	return sign(number(a) - number(b))
}

func compareBooleans(a, b any) int {
	return sign(boolean(a) - boolean(b))
}

func number(v any) float64 {
	n, ok := schema.ToNumber(v)
	if !ok {
		return math.Inf(-1)
	}
	return n
}

func boolean(v any) float64 {
	if b, _ := schema.ToBool(v); b {
		return 1
	}
	return 0
}

func sign(d float64) int {
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	}
	return 0
}
