// Package mlrun executes an OCaml solution against its tests using a
// WASM-hosted toolchain. The toolchain module exposes a conventional
// argv-driven entrypoint (compiler, linker, bytecode runner selected by
// argv[0]) over a private directory mounted as its filesystem root.
package mlrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/tasklab/autograder/api"
)

// Run compiles solution and tests, links them with the unit-testing
// libraries and executes the resulting binary, all inside the toolchain
// module. Every sub-step races against the shared deadline.
func Run(ctx context.Context, solution, tests string, toolchainWasm []byte, timeout time.Duration) api.RunResult {
	workDir, err := os.MkdirTemp("", "mlrun-*")
	if err != nil {
		return api.Fail(api.ErrRuntime, fmt.Sprintf("failed to create work directory: %v", err))
	}
	defer os.RemoveAll(workDir)

	for name, content := range map[string]string{
		"solution.ml": solution,
		"tests.ml":    tests,
	} {
		if err := os.WriteFile(filepath.Join(workDir, name), []byte(content), 0o644); err != nil {
			return api.Fail(api.ErrRuntime, fmt.Sprintf("failed to write %s: %v", name, err))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tc, err := newToolchain(ctx, toolchainWasm, workDir)
	if err != nil {
		if ctx.Err() != nil {
			return api.TimedOut("timed out while booting the ocaml toolchain\n")
		}
		return api.Fail(api.ErrRuntime, fmt.Sprintf("failed to boot ocaml toolchain: %v", err))
	}
	defer tc.close()

	compileSteps := [][]string{
		{"ocamlc", "-c", "solution.ml"},
		{"ocamlc", "-c", "tests.ml"},
		{"ocamlc", "-I", "+str", "-I", "+ounit2", "str.cma", "ounit2.cma",
			"solution.cmo", "tests.cmo", "-o", "tests"},
	}
	for _, argv := range compileSteps {
		exit, out, errOut, err := tc.run(ctx, argv)
		if err != nil {
			if ctx.Err() != nil {
				return api.TimedOut("timed out during ocaml compilation\n")
			}
			return api.Fail(api.ErrRuntime, fmt.Sprintf("toolchain fault running %v: %v", argv, err))
		}
		if exit != 0 {
			return api.Fail(api.ErrCompile, ensureNewline(out+errOut))
		}
	}

	exit, out, errOut, err := tc.run(ctx, []string{"ocamlrun", "tests"})
	if err != nil {
		if ctx.Err() != nil {
			return api.TimedOut("timed out while running ocaml tests\n")
		}
		return api.Fail(api.ErrRuntime, fmt.Sprintf("toolchain fault running tests: %v", err))
	}

	combined := out + errOut
	if failures, errs, ok := parseReport(combined); ok {
		if failures == 0 && errs == 0 {
			return api.Ok(ensureNewline(combined))
		}
		return api.Fail(api.ErrTestsFailed, ensureNewline(combined))
	}

	// No recognizable report: trust the exit code.
	if exit == 0 {
		return api.Ok(ensureNewline(combined))
	}
	return api.Fail(api.ErrRuntime, ensureNewline(combined))
}

// toolchain wraps one compiled WASM module sharing one mounted directory,
// instantiated once per argv invocation.
type toolchain struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	workDir  string
}

func newToolchain(ctx context.Context, wasm []byte, workDir string) (*toolchain, error) {
	runtime := wazero.NewRuntimeWithConfig(ctx,
		wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	wasi_snapshot_preview1.MustInstantiate(ctx, runtime)

	compiled, err := runtime.CompileModule(ctx, wasm)
	if err != nil {
		runtime.Close(context.Background())
		return nil, err
	}
	return &toolchain{runtime: runtime, compiled: compiled, workDir: workDir}, nil
}

func (tc *toolchain) run(ctx context.Context, argv []string) (exit int, stdout, stderr string, err error) {
	var outBuf, errBuf bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithArgs(argv...).
		WithStdout(&outBuf).
		WithStderr(&errBuf).
		WithFSConfig(wazero.NewFSConfig().WithDirMount(tc.workDir, "/"))

	mod, err := tc.runtime.InstantiateModule(ctx, tc.compiled, cfg)
	if mod != nil {
		defer mod.Close(context.Background())
	}
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			if code == sys.ExitCodeDeadlineExceeded || code == sys.ExitCodeContextCanceled {
				return 0, outBuf.String(), errBuf.String(), err
			}
			return int(code), outBuf.String(), errBuf.String(), nil
		}
		return 0, outBuf.String(), errBuf.String(), err
	}
	return 0, outBuf.String(), errBuf.String(), nil
}

func (tc *toolchain) close() {
	tc.runtime.Close(context.Background())
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
