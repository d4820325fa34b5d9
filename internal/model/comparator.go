package model

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Comparator orders the records of a collection.
type Comparator interface {
	// Compare returns a negative number when a sorts before b, a positive
	// number when after, and zero when they are equivalent.
	Compare(a, b *Record) int
}

// keyComparator orders records by an extracted sort key.
type keyComparator func(*Record) any

func (fn keyComparator) Compare(a, b *Record) int {
	return CompareValues(fn(a), fn(b))
}

// funcComparator orders records with a relational function.
type funcComparator func(a, b *Record) int

func (fn funcComparator) Compare(a, b *Record) int {
	return fn(a, b)
}

// SortBy orders records by the key fn extracts, using CompareValues.
func SortBy(fn func(*Record) any) Comparator {
	return keyComparator(fn)
}

// SortFunc orders records with fn directly.
func SortFunc(fn func(a, b *Record) int) Comparator {
	return funcComparator(fn)
}

// ByAttribute orders records by the value of key.
func ByAttribute(key string) Comparator {
	return SortBy(func(r *Record) any { return r.Get(key) })
}

// Descending reverses c.
func Descending(c Comparator) Comparator {
	return SortFunc(func(a, b *Record) int { return c.Compare(b, a) })
}

// sortRecords sorts records in place, keeping equivalent records in their
// current relative order. Key comparators extract each key once.
func sortRecords(records []*Record, c Comparator) {
	kc, ok := c.(keyComparator)
	if !ok {
		slices.SortStableFunc(records, c.Compare)
		return
	}
	type keyed struct {
		rec *Record
		key any
	}
	items := make([]keyed, len(records))
	for i, r := range records {
		items[i] = keyed{rec: r, key: kc(r)}
	}
	slices.SortStableFunc(items, func(a, b keyed) int {
		return CompareValues(a.key, b.key)
	})
	for i, it := range items {
		records[i] = it.rec
	}
}

// CompareValues orders two attribute values. Nil sorts last. Numbers of any
// Go numeric type compare numerically, strings lexically, false before true
// and times chronologically. Values of unrelated types fall back to their
// printed form.
func CompareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return cmp.Compare(fa, fb)
		}
	}
	switch va := a.(type) {
	case string:
		if vb, ok := b.(string); ok {
			return strings.Compare(va, vb)
		}
	case bool:
		if vb, ok := b.(bool); ok {
			switch {
			case va == vb:
				return 0
			case !va:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if vb, ok := b.(time.Time); ok {
			return va.Compare(vb)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
