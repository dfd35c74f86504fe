package events

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrimToRectShortStringUntouched(t *testing.T) {
	require.Equal(t, "a\nb", TrimToRect("a\nb", 10, 10))
}

func TestTrimToRectClipsHeight(t *testing.T) {
	in := "1\n2\n3\n4"
	out := TrimToRect(in, 2, 10)
	require.Equal(t, "1\n2\n[...]", out)
}

func TestTrimToRectClipsWidth(t *testing.T) {
	out := TrimToRect(strings.Repeat("x", 30), 5, 10)
	require.Equal(t, strings.Repeat("x", 10)+"[...]", out)
}

func TestTrimToRectEmpty(t *testing.T) {
	require.Equal(t, "", TrimToRect("", 5, 5))
}
