// Package pyrun executes a Python solution against its tests inside a
// WASM-hosted CPython runtime. The interpreter is instantiated fresh per
// run with a private directory mounted as its filesystem root and no
// socket capability.
package pyrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/tasklab/autograder/api"
)

// Run boots the interpreter from runtimeWasm, writes the solution and tests
// into its filesystem, executes the fixed driver script and normalizes its
// report. The whole call races against timeout.
func Run(ctx context.Context, solution, tests string, runtimeWasm []byte, timeout time.Duration) api.RunResult {
	workDir, err := os.MkdirTemp("", "pyrun-*")
	if err != nil {
		return api.Fail(api.ErrRuntime, fmt.Sprintf("failed to create work directory: %v", err))
	}
	defer os.RemoveAll(workDir)

	files := map[string]string{
		"solution.py":      solution,
		"test_solution.py": tests,
		"_runner.py":       driverScript,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(workDir, name), []byte(content), 0o644); err != nil {
			return api.Fail(api.ErrRuntime, fmt.Sprintf("failed to write %s: %v", name, err))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runtime := wazero.NewRuntimeWithConfig(ctx,
		wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer runtime.Close(context.Background())

	wasi_snapshot_preview1.MustInstantiate(ctx, runtime)

	compiled, err := runtime.CompileModule(ctx, runtimeWasm)
	if err != nil {
		if ctx.Err() != nil {
			return api.TimedOut("timed out while booting the python runtime\n")
		}
		return api.Fail(api.ErrRuntime, fmt.Sprintf("failed to boot python runtime: %v", err))
	}

	var stdout, stderr bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithArgs("python", "/_runner.py").
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithFSConfig(wazero.NewFSConfig().WithDirMount(workDir, "/"))

	_, err = runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		var exitErr *sys.ExitError
		switch {
		case errors.As(err, &exitErr):
			code := exitErr.ExitCode()
			if code == sys.ExitCodeDeadlineExceeded || code == sys.ExitCodeContextCanceled || ctx.Err() != nil {
				return api.TimedOut("timed out while running python tests\n")
			}
			// The driver exits non-zero on import failure; the sentinel
			// parse below classifies it.
		case ctx.Err() != nil:
			return api.TimedOut("timed out while running python tests\n")
		default:
			return api.Fail(api.ErrRuntime, fmt.Sprintf("python runtime fault: %v\n%s", err, stderr.String()))
		}
	}

	return parseDriverOutput(stdout.String(), stderr.String())
}
