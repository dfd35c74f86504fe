package api

// ErrorKind classifies why a run did not succeed. A result carries at most
// one kind.
type ErrorKind string

const (
	// ErrBadLanguageDetection means the request never entered execution:
	// neither the solution nor the tests resolved to a known language.
	ErrBadLanguageDetection ErrorKind = "bad_language_detection"
	// ErrCompile means the submitted text would not compile or import under
	// the chosen language.
	ErrCompile ErrorKind = "compile_error"
	// ErrRuntime covers harness, bootstrap and transport faults that are not
	// attributable to the tests themselves failing.
	ErrRuntime ErrorKind = "runtime_error"
	// ErrTimeout means the wall-clock budget was exceeded at some stage.
	ErrTimeout ErrorKind = "timeout"
	// ErrTestsFailed means the code ran to completion but assertions failed.
	ErrTestsFailed ErrorKind = "tests_failed"
)

// RunResult is the engine's only output shape. Every failure mode of the
// engine is returned as data through it; nothing is thrown past the public
// entrypoint.
//
// Invariants: Success is true iff Error is nil and Timeout is false;
// Timeout implies Error == ErrTimeout; Output is never absent, only
// possibly empty.
type RunResult struct {
	Success bool       `json:"success"`
	Output  string     `json:"output"`
	Error   *ErrorKind `json:"error"`
	Timeout bool       `json:"timeout"`
}

// Ok builds a successful result carrying the report text.
func Ok(output string) RunResult {
	return RunResult{Success: true, Output: output}
}

// Fail builds a failed result of the given kind. Passing ErrTimeout also
// raises the Timeout flag so the invariant holds by construction.
func Fail(kind ErrorKind, output string) RunResult {
	k := kind
	return RunResult{
		Success: false,
		Output:  output,
		Error:   &k,
		Timeout: kind == ErrTimeout,
	}
}

// TimedOut is the canonical forced-timeout result produced by the dispatch
// layer when the outer timer wins.
func TimedOut(output string) RunResult {
	return Fail(ErrTimeout, output)
}
