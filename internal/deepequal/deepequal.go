// Package deepequal implements the structural comparison behind the JS
// harness's toEqual matcher. It operates on values exported from the VM:
// primitives, []any arrays, map[string]any objects, time.Time dates,
// Pattern regexps and concrete numeric slices for typed arrays.
package deepequal

import (
	"math"
	"reflect"
	"time"
)

// Pattern is the exported form of a RegExp value, compared by source and
// flags rather than identity.
type Pattern struct {
	Source string
	Flags  string
}

type pair struct {
	a, b uintptr
}

// Equal reports whether a and b are structurally equal. Self-referential
// structures terminate: a pair of containers already under comparison is
// treated as equal.
func Equal(a, b any) bool {
	return eq(a, b, map[pair]struct{}{})
}

func eq(a, b any, seen map[pair]struct{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.UnixMilli() == bv.UnixMilli()
	case Pattern:
		bv, ok := b.(Pattern)
		return ok && av == bv
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)

	if isNumeric(ra.Kind()) || isNumeric(rb.Kind()) {
		if !isNumeric(ra.Kind()) || !isNumeric(rb.Kind()) {
			return false
		}
		return numEqual(ra, rb)
	}

	if ra.Kind() != rb.Kind() {
		return false
	}

	switch ra.Kind() {
	case reflect.Slice:
		if cyclic(ra, rb, seen) {
			return true
		}
		if ra.Len() != rb.Len() {
			return false
		}
		// Typed arrays export as concrete numeric slices; those compare only
		// against the same concrete kind. Plain arrays export as []any.
		if ra.Type() != rb.Type() {
			return false
		}
		for i := 0; i < ra.Len(); i++ {
			if !eq(ra.Index(i).Interface(), rb.Index(i).Interface(), seen) {
				return false
			}
		}
		return true

	case reflect.Map:
		if cyclic(ra, rb, seen) {
			return true
		}
		if ra.Len() != rb.Len() {
			return false
		}
		for _, k := range ra.MapKeys() {
			bv := rb.MapIndex(k)
			if !bv.IsValid() {
				return false
			}
			if !eq(ra.MapIndex(k).Interface(), bv.Interface(), seen) {
				return false
			}
		}
		return true

	default:
		return a == b
	}
}

// cyclic marks the pair as in progress and reports whether it already was.
func cyclic(ra, rb reflect.Value, seen map[pair]struct{}) bool {
	p := pair{ra.Pointer(), rb.Pointer()}
	if _, ok := seen[p]; ok {
		return true
	}
	seen[p] = struct{}{}
	return false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// numEqual compares numbers by value across concrete kinds; the VM exports
// integers as int64 and everything else as float64. NaN equals NaN so that
// toEqual(x, x) always holds.
func numEqual(ra, rb reflect.Value) bool {
	fa, fb := toFloat(ra), toFloat(rb)
	if math.IsNaN(fa) && math.IsNaN(fb) {
		return true
	}
	return fa == fb
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default:
		return v.Float()
	}
}
