package model

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"strconv"
)

// Attributes maps attribute keys to values.
type Attributes map[string]any

func (Attributes) member() {}

// Clone returns a shallow copy. Cloning nil yields an empty map.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return Attributes{}
	}
	return maps.Clone(a)
}

// Member is something a Collection can admit: raw Attributes or a *Record.
type Member interface {
	member()
}

// equal reports value equality for change detection. Numbers of any Go
// numeric type compare by value, NaN equals NaN, and lists and maps are
// compared element by element under the same rules.
func equal(a, b any) bool {
	if x, ok := toFloat(a); ok {
		y, ok := toFloat(b)
		return ok && (x == y || (math.IsNaN(x) && math.IsNaN(y)))
	}
	switch va := a.(type) {
	case []any:
		vb, ok := b.([]any)
		if !ok || len(va) != len(vb) || (va == nil) != (vb == nil) {
			return false
		}
		for i := range va {
			if !equal(va[i], vb[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		vb, ok := b.(map[string]any)
		return ok && equalMaps(va, vb)
	case Attributes:
		vb, ok := b.(Attributes)
		return ok && equalMaps(va, vb)
	}
	return reflect.DeepEqual(a, b)
}

func equalMaps(a, b map[string]any) bool {
	if len(a) != len(b) || (a == nil) != (b == nil) {
		return false
	}
	for key, av := range a {
		bv, ok := b[key]
		if !ok || !equal(av, bv) {
			return false
		}
	}
	return true
}

// identityKey returns the index key for an identity. Integral floats are
// keyed by their plain decimal form so that 1, int64(1) and float64(1)
// address the same record; other identities by their printed form.
func identityKey(id any) (string, bool) {
	switch id.(type) {
	case nil:
		return "", false
	case float32, float64:
		f, _ := toFloat(id)
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
	}
	return fmt.Sprint(id), true
}

type keySet map[string]struct{}

func (s keySet) add(key string) { s[key] = struct{}{} }

func (s keySet) has(key string) bool {
	_, ok := s[key]
	return ok
}
