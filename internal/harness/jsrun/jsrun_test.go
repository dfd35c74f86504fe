package jsrun_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tasklab/autograder/api"
	"github.com/tasklab/autograder/internal/harness/jsrun"
)

const addSolution = `module.exports = { add: (a, b) => a + b };`

func run(t *testing.T, solution, tests string) api.RunResult {
	t.Helper()
	return jsrun.Run(context.Background(), solution, tests, 5*time.Second)
}

func TestPassingRun(t *testing.T) {
	tests := `describe('m', () => { test('t', () => { expect(add(1, 2)).toBe(3); }); });`
	res := run(t, addSolution, tests)
	require.True(t, res.Success)
	require.Nil(t, res.Error)
	require.False(t, res.Timeout)
	require.Contains(t, res.Output, "Ran 1 tests")
	require.Contains(t, res.Output, "ok   m › t")
	require.Contains(t, res.Output, "OK")
}

func TestFailingAssertion(t *testing.T) {
	tests := `describe('m', () => { test('t', () => { expect(add(1, 1)).toBe(3); }); });`
	res := run(t, addSolution, tests)
	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	require.Equal(t, api.ErrTestsFailed, *res.Error)
	require.Contains(t, res.Output, "FAIL m › t")
	require.Contains(t, res.Output, "FAILED (failures=1)")
}

func TestNestedSuitesFlattenNames(t *testing.T) {
	tests := `
describe('outer', () => {
  describe('inner', () => {
    test('works', () => { expect(1).toBe(1); });
  });
});`
	res := run(t, addSolution, tests)
	require.True(t, res.Success)
	require.Contains(t, res.Output, "ok   outer › inner › works")
}

func TestToEqualUsesStructuralComparison(t *testing.T) {
	tests := `
test('objects by keys', () => { expect({a: 1, b: 2}).toEqual({b: 2, a: 1}); });
test('arrays by order', () => { expect([1, 2]).toEqual([1, 2]); });`
	res := run(t, addSolution, tests)
	require.True(t, res.Success)

	res = run(t, addSolution, `test('order matters', () => { expect([1, 2]).toEqual([2, 1]); });`)
	require.False(t, res.Success)
	require.Equal(t, api.ErrTestsFailed, *res.Error)
}

func TestRequireSolutionAllowed(t *testing.T) {
	tests := `
const sol = require('./solution');
test('t', () => { expect(sol.add(2, 2)).toBe(4); });`
	res := run(t, addSolution, tests)
	require.True(t, res.Success)
}

func TestRequireAnythingElseIsCompileError(t *testing.T) {
	res := run(t, addSolution, `const fs = require('fs');`)
	require.False(t, res.Success)
	require.Equal(t, api.ErrCompile, *res.Error)
	require.Contains(t, res.Output, "Cannot find module")

	res = run(t, addSolution, `require('./tests');`)
	require.False(t, res.Success)
	require.Equal(t, api.ErrCompile, *res.Error)
}

func TestSyntaxErrorIsCompileError(t *testing.T) {
	res := run(t, `module.exports = {`, `test('t', () => {});`)
	require.False(t, res.Success)
	require.Equal(t, api.ErrCompile, *res.Error)

	res = run(t, addSolution, `describe('m', () => {`)
	require.False(t, res.Success)
	require.Equal(t, api.ErrCompile, *res.Error)
}

// An error thrown by user code is a runtime fault even when its message
// mimics the loader's own wording.
func TestUserThrownModuleErrorIsRuntimeError(t *testing.T) {
	res := run(t, `throw new Error("Cannot find module 'left-pad'");`, `test('t', () => {});`)
	require.False(t, res.Success)
	require.Equal(t, api.ErrRuntime, *res.Error)

	res = run(t, addSolution, `throw new Error("Cannot find module 'left-pad'");`)
	require.False(t, res.Success)
	require.Equal(t, api.ErrRuntime, *res.Error)
}

// Catching the loader's rejection and throwing something else afterwards
// must not inherit the compile_error classification.
func TestCaughtRequireThenOwnThrowIsRuntimeError(t *testing.T) {
	tests := `
try { require('fs'); } catch (e) {}
throw new Error('boom');`
	res := run(t, addSolution, tests)
	require.False(t, res.Success)
	require.Equal(t, api.ErrRuntime, *res.Error)
	require.Contains(t, res.Output, "boom")
}

func TestThrowDuringSetupIsRuntimeError(t *testing.T) {
	res := run(t, `throw new Error('boom');`, `test('t', () => {});`)
	require.False(t, res.Success)
	require.Equal(t, api.ErrRuntime, *res.Error)
	require.Contains(t, res.Output, "boom")
}

func TestConsoleOutputCaptured(t *testing.T) {
	tests := `
test('t', () => { console.log('captured', 42); expect(1).toBe(1); });`
	res := run(t, addSolution, tests)
	require.True(t, res.Success)
	require.Contains(t, res.Output, "captured 42")
}

func TestInfiniteLoopTimesOut(t *testing.T) {
	tests := `test('spin', () => { while (true) {} });`
	res := jsrun.Run(context.Background(), addSolution, tests, 200*time.Millisecond)
	require.False(t, res.Success)
	require.True(t, res.Timeout)
	require.NotNil(t, res.Error)
	require.Equal(t, api.ErrTimeout, *res.Error)
}

func TestResolvedPromisePasses(t *testing.T) {
	tests := `test('async', () => Promise.resolve().then(() => { expect(add(1, 2)).toBe(3); }));`
	res := run(t, addSolution, tests)
	require.True(t, res.Success)
}

func TestRejectedPromiseFails(t *testing.T) {
	tests := `test('async', () => Promise.reject(new Error('nope')));`
	res := run(t, addSolution, tests)
	require.False(t, res.Success)
	require.Equal(t, api.ErrTestsFailed, *res.Error)
}

func TestPendingPromiseIsHung(t *testing.T) {
	tests := `test('never', () => new Promise(() => {}));`
	res := run(t, addSolution, tests)
	require.False(t, res.Success)
	require.True(t, res.Timeout)
}

func TestNetworkPrimitivesThrow(t *testing.T) {
	res := run(t, addSolution, `test('no net', () => { fetch('http://example.com'); });`)
	require.False(t, res.Success)
	require.Equal(t, api.ErrTestsFailed, *res.Error)
	require.Contains(t, res.Output, "disabled")
}
