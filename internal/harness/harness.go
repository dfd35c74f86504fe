// Package harness dispatches a resolved run request to the per-language
// execution harness. Each harness is an independent implementation of one
// function shape; this is the only place the language is matched.
package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/tasklab/autograder/api"
	"github.com/tasklab/autograder/internal/harness/jsrun"
	"github.com/tasklab/autograder/internal/harness/mlrun"
	"github.com/tasklab/autograder/internal/harness/pyrun"
)

// Bundles holds the prefetched WASM runtime bundles. The JS harness needs
// none; the other two fail with runtime_error when theirs is missing.
type Bundles struct {
	Python []byte
	OCaml  []byte
}

// Run executes the request with the harness for its (already resolved)
// language. The request's timeout applies to harness execution; the
// dispatch layer above holds the outer backstop.
func Run(ctx context.Context, req api.RunRequest, bundles Bundles) api.RunResult {
	timeoutMs := req.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = api.DefaultTimeoutMs
	}
	timeout := time.Duration(timeoutMs) * time.Millisecond

	switch req.Language {
	case api.LangJS:
		return jsrun.Run(ctx, req.Solution, req.Tests, timeout)
	case api.LangPython:
		if len(bundles.Python) == 0 {
			return api.Fail(api.ErrRuntime, "python runtime bundle is not available\n")
		}
		return pyrun.Run(ctx, req.Solution, req.Tests, bundles.Python, timeout)
	case api.LangOCaml:
		if len(bundles.OCaml) == 0 {
			return api.Fail(api.ErrRuntime, "ocaml toolchain bundle is not available\n")
		}
		return mlrun.Run(ctx, req.Solution, req.Tests, bundles.OCaml, timeout)
	}
	return api.Fail(api.ErrRuntime, fmt.Sprintf("no harness for language %q\n", req.Language))
}
