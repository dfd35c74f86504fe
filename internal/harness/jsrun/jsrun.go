// Package jsrun executes a JS solution against its tests inside a goja VM.
// No external runtime is booted; isolation comes from the disposable unit
// the harness runs in, plus a capability-scoped module loader that exposes
// nothing but the solution itself to the tests.
package jsrun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/tasklab/autograder/api"
	"github.com/tasklab/autograder/internal/sandbox"
)

type testCase struct {
	name string
	fn   goja.Callable
}

type runner struct {
	vm     *goja.Runtime
	suites []string
	tests  []testCase
	logs   []string
	// requireFailure is the exact Error object the loader last threw for an
	// unresolvable module, so load faults are recognized by identity rather
	// than by message text.
	requireFailure *goja.Object
}

// Run loads the solution and tests, executes every registered test
// sequentially, and reports a normalized result. Each test races against
// the remaining wall-clock budget; the first timeout aborts the run.
func Run(ctx context.Context, solution, tests string, timeout time.Duration) (res api.RunResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = api.Fail(api.ErrRuntime, fmt.Sprintf("js harness panic: %v", rec))
		}
	}()

	r := &runner{vm: goja.New()}
	sandbox.LockdownVM(r.vm)
	r.installConsole()
	r.installFramework()

	exports, loadRes, ok := r.loadSolution(solution)
	if !ok {
		return loadRes
	}
	if loadRes, ok = r.loadTests(tests, exports); !ok {
		return loadRes
	}

	return r.execute(ctx, timeout)
}

func (r *runner) installConsole() {
	capture := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, r.stringify(arg))
		}
		r.logs = append(r.logs, strings.Join(parts, " "))
		return goja.Undefined()
	}
	console := r.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		console.Set(level, capture)
	}
	r.vm.Set("console", console)
}

func (r *runner) installFramework() {
	r.vm.Set("describe", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(r.vm.ToValue("describe expects a function as its second argument"))
		}
		r.suites = append(r.suites, name)
		_, err := fn(goja.Undefined())
		r.suites = r.suites[:len(r.suites)-1]
		if err != nil {
			r.rethrow(err)
		}
		return goja.Undefined()
	})

	register := func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			panic(r.vm.ToValue("test expects a function as its second argument"))
		}
		full := strings.Join(append(append([]string{}, r.suites...), name), " › ")
		r.tests = append(r.tests, testCase{name: full, fn: fn})
		return goja.Undefined()
	}
	r.vm.Set("test", register)
	r.vm.Set("it", register)

	r.vm.Set("expect", func(call goja.FunctionCall) goja.Value {
		return r.newMatcher(call.Argument(0))
	})
}

// rethrow propagates a JS exception returned from a Callable back into the
// currently executing script.
func (r *runner) rethrow(err error) {
	if ex, ok := err.(*goja.Exception); ok {
		panic(ex.Value())
	}
	panic(r.vm.ToValue(err.Error()))
}

// loadSolution compiles and evaluates the solution as a CommonJS-style
// module and spreads its exports into the global scope so tests can call
// them directly. The solution's own require resolves nothing.
func (r *runner) loadSolution(src string) (goja.Value, api.RunResult, bool) {
	requireFn := func(call goja.FunctionCall) goja.Value {
		r.throwModuleNotFound(fmt.Sprintf("Cannot find module %q", call.Argument(0).String()))
		return goja.Undefined()
	}
	exports, res, ok := r.loadModule("solution.js", src, requireFn)
	if !ok {
		return nil, res, false
	}

	if obj, isObj := exports.(*goja.Object); isObj {
		for _, key := range obj.Keys() {
			r.vm.GlobalObject().Set(key, obj.Get(key))
		}
	}
	return exports, api.RunResult{}, true
}

// loadTests evaluates the test file. Its require exposes exactly one
// dependency, the solution module; requiring the test module itself, or
// anything else, throws.
func (r *runner) loadTests(src string, solutionExports goja.Value) (api.RunResult, bool) {
	requireFn := func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		switch strings.TrimSuffix(strings.TrimPrefix(name, "./"), ".js") {
		case "solution":
			return solutionExports
		case "tests", "test":
			r.throwModuleNotFound("Cannot find module: the test module may not require itself")
		}
		r.throwModuleNotFound(fmt.Sprintf("Cannot find module %q", name))
		return goja.Undefined()
	}
	_, res, ok := r.loadModule("tests.js", src, requireFn)
	return res, ok
}

func (r *runner) loadModule(fname, src string, requireFn func(goja.FunctionCall) goja.Value) (goja.Value, api.RunResult, bool) {
	prog, err := goja.Compile(fname, "(function(module, exports, require){\n"+src+"\n})", false)
	if err != nil {
		return nil, api.Fail(api.ErrCompile, fmt.Sprintf("%s: %v", fname, err)), false
	}

	wrapperVal, err := r.vm.RunProgram(prog)
	if err != nil {
		return nil, api.Fail(api.ErrRuntime, fmt.Sprintf("%s: %v", fname, err)), false
	}
	wrapper, _ := goja.AssertFunction(wrapperVal)

	module := r.vm.NewObject()
	exports := r.vm.NewObject()
	module.Set("exports", exports)

	r.requireFailure = nil
	_, err = wrapper(goja.Undefined(), module, exports, r.vm.ToValue(requireFn))
	if err != nil {
		kind := api.ErrRuntime
		if r.isRequireFailure(err) {
			kind = api.ErrCompile
		}
		return nil, api.Fail(kind, fmt.Sprintf("%s: %v", fname, err)), false
	}
	return module.Get("exports"), api.RunResult{}, true
}

// throwModuleNotFound throws a real Error into the VM and remembers it, so
// the loader can tell its own rejection apart from user code that happens
// to throw a similarly worded error.
func (r *runner) throwModuleNotFound(msg string) {
	obj, err := r.vm.New(r.vm.Get("Error"), r.vm.ToValue(msg))
	if err != nil {
		panic(r.vm.ToValue(msg))
	}
	r.requireFailure = obj
	panic(obj)
}

func (r *runner) isRequireFailure(err error) bool {
	if r.requireFailure == nil {
		return false
	}
	ex, ok := err.(*goja.Exception)
	return ok && ex.Value() == goja.Value(r.requireFailure)
}

func (r *runner) execute(ctx context.Context, timeout time.Duration) api.RunResult {
	deadline := time.Now().Add(timeout)

	watchdogDone := make(chan struct{})
	defer close(watchdogDone)
	go func() {
		select {
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-watchdogDone:
		}
	}()

	var lines []string
	lines = append(lines, fmt.Sprintf("Ran %d tests", len(r.tests)))
	failed := 0

	for _, tc := range r.tests {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return r.timeoutResult(tc.name)
		}

		timer := time.AfterFunc(remaining, func() {
			r.vm.Interrupt("test timeout")
		})
		val, err := tc.fn(goja.Undefined())
		timer.Stop()
		r.vm.ClearInterrupt()

		if err != nil {
			if _, interrupted := err.(*goja.InterruptedError); interrupted {
				return r.timeoutResult(tc.name)
			}
			failed++
			lines = append(lines, "FAIL "+tc.name, indent(errText(err)))
			continue
		}

		if p, isPromise := exportPromise(val); isPromise {
			switch p.State() {
			case goja.PromiseStateRejected:
				failed++
				lines = append(lines, "FAIL "+tc.name, indent(r.stringify(p.Result())))
				continue
			case goja.PromiseStatePending:
				// Nothing in the unit can settle it: no event loop, no
				// timers. The test is hung.
				return r.timeoutResult(tc.name)
			}
		}

		lines = append(lines, "ok   "+tc.name)
	}

	lines = append(lines, r.logs...)
	if failed == 0 {
		lines = append(lines, "OK")
		return api.Ok(strings.Join(lines, "\n") + "\n")
	}
	lines = append(lines, fmt.Sprintf("FAILED (failures=%d)", failed))
	return api.Fail(api.ErrTestsFailed, strings.Join(lines, "\n")+"\n")
}

func (r *runner) timeoutResult(testName string) api.RunResult {
	lines := append([]string{fmt.Sprintf("timed out while running %q", testName)}, r.logs...)
	return api.TimedOut(strings.Join(lines, "\n") + "\n")
}

func exportPromise(val goja.Value) (*goja.Promise, bool) {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, false
	}
	p, ok := val.Export().(*goja.Promise)
	return p, ok
}

func errText(err error) string {
	if ex, ok := err.(*goja.Exception); ok {
		return ex.String()
	}
	return err.Error()
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n    ")
}
