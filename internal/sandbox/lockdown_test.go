package sandbox_test

import (
	"net/http"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/require"

	"github.com/tasklab/autograder/internal/sandbox"
)

func TestLockdownBlocksDefaultHTTP(t *testing.T) {
	sandbox.Lockdown()
	sandbox.Lockdown() // idempotent

	_, err := http.Get("http://127.0.0.1:1/")
	require.Error(t, err)
	require.ErrorIs(t, err, sandbox.ErrNetworkDisabled)
}

func TestLockdownVMStubsThrow(t *testing.T) {
	vm := goja.New()
	sandbox.LockdownVM(vm)

	for _, global := range []string{"fetch", "XMLHttpRequest", "WebSocket", "EventSource"} {
		_, err := vm.RunString(global + `("http://example.com")`)
		require.Error(t, err, global)
		require.Contains(t, err.Error(), "disabled")
	}

	v, err := vm.RunString("typeof process")
	require.NoError(t, err)
	require.Equal(t, "undefined", v.String())
}
