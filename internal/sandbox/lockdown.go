// Package sandbox disables outbound networking inside an isolated execution
// unit. It is invoked by the unit itself, once, strictly after asset
// bootstrap (which may legitimately fetch runtime bundles) and strictly
// before any caller-supplied code runs.
//
// This is best effort: it removes the common accidental network side
// channels (HTTP round-trippers, DNS resolution, and the VM's fetch-style
// globals), not a process-level jail. The WASM runtimes need no equivalent
// step since they are instantiated without any socket capability.
package sandbox

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/dop251/goja"
)

// ErrNetworkDisabled is returned by every networking primitive after
// lockdown.
var ErrNetworkDisabled = errors.New("network access is disabled inside the autograder sandbox")

type deniedTransport struct{}

func (deniedTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, ErrNetworkDisabled
}

var once sync.Once

// Lockdown replaces the process's default outbound networking primitives
// with ones that unconditionally fail. Idempotent.
func Lockdown() {
	once.Do(func() {
		http.DefaultTransport = deniedTransport{}
		http.DefaultClient = &http.Client{Transport: deniedTransport{}}
		net.DefaultResolver = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				return nil, ErrNetworkDisabled
			},
		}
	})
}

// Networking globals stubbed out inside every JS VM.
var jsNetworkGlobals = []string{"fetch", "XMLHttpRequest", "WebSocket", "EventSource"}

// LockdownVM installs throwing stubs for the VM's outbound networking
// globals and removes ambient host capabilities. Safe to call repeatedly on
// the same VM.
func LockdownVM(vm *goja.Runtime) {
	for _, name := range jsNetworkGlobals {
		name := name
		vm.Set(name, func(goja.FunctionCall) goja.Value {
			panic(vm.ToValue(name + " is disabled inside the autograder sandbox"))
		})
	}
	vm.Set("process", goja.Undefined())
	vm.Set("setTimeout", goja.Undefined())
	vm.Set("setInterval", goja.Undefined())
}
