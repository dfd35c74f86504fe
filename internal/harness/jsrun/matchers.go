package jsrun

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"

	"github.com/tasklab/autograder/internal/deepequal"
)

// newMatcher builds the assertion object returned by expect(). toBe is
// strict identity; toEqual is the structural comparison from the deepequal
// package. Both throw with expected/received serializations on failure.
func (r *runner) newMatcher(received goja.Value) *goja.Object {
	m := r.vm.NewObject()

	m.Set("toBe", func(call goja.FunctionCall) goja.Value {
		expected := call.Argument(0)
		if !received.StrictEquals(expected) {
			panic(r.vm.ToValue(fmt.Sprintf(
				"expected %s to be %s", r.stringify(received), r.stringify(expected))))
		}
		return goja.Undefined()
	})

	m.Set("toEqual", func(call goja.FunctionCall) goja.Value {
		expected := call.Argument(0)
		if !deepequal.Equal(r.exportForEqual(received), r.exportForEqual(expected)) {
			panic(r.vm.ToValue(fmt.Sprintf(
				"expected %s to equal %s", r.stringify(received), r.stringify(expected))))
		}
		return goja.Undefined()
	})

	return m
}

// exportForEqual converts a VM value into the shape the deepequal package
// compares. RegExp objects become Patterns; everything else relies on
// goja's Export (Dates become time.Time, typed arrays become concrete
// numeric slices, plain objects and arrays become maps and []any).
func (r *runner) exportForEqual(v goja.Value) any {
	if obj, ok := v.(*goja.Object); ok && obj.ClassName() == "RegExp" {
		return deepequal.Pattern{
			Source: obj.Get("source").String(),
			Flags:  obj.Get("flags").String(),
		}
	}
	return v.Export()
}

// stringify renders a value for error messages and the console log.
func (r *runner) stringify(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if obj, ok := v.(*goja.Object); ok && obj.ClassName() != "Error" {
		if b, err := json.Marshal(v.Export()); err == nil {
			return string(b)
		}
	}
	return v.String()
}
