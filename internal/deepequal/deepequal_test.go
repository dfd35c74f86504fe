package deepequal_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tasklab/autograder/internal/deepequal"
)

func TestPrimitives(t *testing.T) {
	require.True(t, deepequal.Equal(nil, nil))
	require.False(t, deepequal.Equal(nil, 0))
	require.True(t, deepequal.Equal("a", "a"))
	require.False(t, deepequal.Equal("a", "b"))
	require.True(t, deepequal.Equal(true, true))
	require.False(t, deepequal.Equal(true, 1))
	require.False(t, deepequal.Equal("1", 1))
}

func TestNumbers(t *testing.T) {
	// The VM exports whole numbers as int64 and fractions as float64;
	// they still compare by value.
	require.True(t, deepequal.Equal(int64(3), float64(3)))
	require.False(t, deepequal.Equal(int64(3), float64(3.5)))
	require.True(t, deepequal.Equal(math.NaN(), math.NaN()))
}

func TestDates(t *testing.T) {
	a := time.UnixMilli(1700000000000)
	b := time.UnixMilli(1700000000000).In(time.FixedZone("X", 3600))
	c := time.UnixMilli(1700000000001)
	require.True(t, deepequal.Equal(a, b))
	require.False(t, deepequal.Equal(a, c))
}

func TestPatterns(t *testing.T) {
	require.True(t, deepequal.Equal(
		deepequal.Pattern{Source: "a+", Flags: "g"},
		deepequal.Pattern{Source: "a+", Flags: "g"},
	))
	require.False(t, deepequal.Equal(
		deepequal.Pattern{Source: "a+", Flags: "g"},
		deepequal.Pattern{Source: "a+", Flags: "i"},
	))
}

func TestArrays(t *testing.T) {
	require.True(t, deepequal.Equal([]any{int64(1), int64(2)}, []any{int64(1), int64(2)}))
	require.False(t, deepequal.Equal([]any{int64(1), int64(2)}, []any{int64(2), int64(1)}))
	require.False(t, deepequal.Equal([]any{int64(1)}, []any{int64(1), int64(2)}))
	// Array vs non-array is always unequal.
	require.False(t, deepequal.Equal([]any{int64(1)}, map[string]any{"0": int64(1)}))
}

func TestTypedArrays(t *testing.T) {
	require.True(t, deepequal.Equal([]byte{1, 2, 3}, []byte{1, 2, 3}))
	require.False(t, deepequal.Equal([]byte{1, 2, 3}, []byte{1, 2, 4}))
	// Same contents, different concrete element kind.
	require.False(t, deepequal.Equal([]byte{1, 2, 3}, []uint16{1, 2, 3}))
}

func TestObjects(t *testing.T) {
	require.True(t, deepequal.Equal(
		map[string]any{"a": int64(1), "b": int64(2)},
		map[string]any{"b": int64(2), "a": int64(1)},
	))
	require.False(t, deepequal.Equal(
		map[string]any{"a": int64(1)},
		map[string]any{"a": int64(1), "b": int64(2)},
	))
	require.False(t, deepequal.Equal(
		map[string]any{"a": int64(1)},
		map[string]any{"a": int64(2)},
	))
}

func TestNested(t *testing.T) {
	a := map[string]any{"xs": []any{int64(1), map[string]any{"y": "z"}}}
	b := map[string]any{"xs": []any{int64(1), map[string]any{"y": "z"}}}
	require.True(t, deepequal.Equal(a, b))
}

func TestCycles(t *testing.T) {
	a := map[string]any{}
	a["self"] = a
	b := map[string]any{}
	b["self"] = b

	// No infinite recursion, and a value equals itself.
	require.True(t, deepequal.Equal(a, a))
	require.True(t, deepequal.Equal(a, b))

	xs := []any{nil}
	xs[0] = xs
	require.True(t, deepequal.Equal(xs, xs))
}
