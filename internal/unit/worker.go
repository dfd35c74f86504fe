package unit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/tasklab/autograder/api"
	"github.com/tasklab/autograder/internal/assets"
	"github.com/tasklab/autograder/internal/harness"
	"github.com/tasklab/autograder/internal/sandbox"
	"github.com/tasklab/autograder/internal/xdg"
)

// Serve is the worker side of the unit protocol: read one run message,
// prefetch runtime bundles, lock the sandbox down, execute the harness and
// write one result message. The process exits right after.
func Serve(ctx context.Context, in io.Reader, out io.Writer, fallbackAssetsBase, cacheDir string, logger *slog.Logger) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64<<10), maxResultLine)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read run message: %w", err)
		}
		return fmt.Errorf("no run message received")
	}

	var msg runMessage
	if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
		return fmt.Errorf("malformed run message: %w", err)
	}
	if msg.Kind != msgKindRun {
		return fmt.Errorf("unexpected message kind %q", msg.Kind)
	}
	if msg.AssetsBase == "" {
		msg.AssetsBase = fallbackAssetsBase
	}

	res := execute(ctx, msg, cacheDir, logger)

	b, err := json.Marshal(resultMessage{Type: msgTypeResult, Payload: res})
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if _, err := out.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

func execute(ctx context.Context, msg runMessage, cacheDir string, logger *slog.Logger) (res api.RunResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = api.Fail(api.ErrRuntime, fmt.Sprintf("worker panic: %v\n", rec))
		}
	}()

	if !msg.Req.Language.Valid() {
		return api.Fail(api.ErrRuntime, fmt.Sprintf("worker received unresolved language %q\n", msg.Req.Language))
	}

	bundles, res, ok := prefetch(ctx, msg, cacheDir, logger)
	if !ok {
		return res
	}

	// Bundles are in memory; nothing legitimate needs the network anymore.
	sandbox.Lockdown()

	return harness.Run(ctx, msg.Req, bundles)
}

// prefetch loads the WASM bundles the selected harness needs, before
// lockdown. The on-disk cache survives across units; the bundles are static
// runtime artifacts, not run state.
func prefetch(ctx context.Context, msg runMessage, cacheDir string, logger *slog.Logger) (harness.Bundles, api.RunResult, bool) {
	var bundles harness.Bundles

	var name string
	switch msg.Req.Language {
	case api.LangPython:
		name = assets.PythonRuntime
	case api.LangOCaml:
		name = assets.OCamlToolchain
	default:
		return bundles, api.RunResult{}, true
	}

	if cacheDir == "" {
		cacheDir = xdg.AssetsCacheDir()
	}
	store, err := assets.NewStore(msg.AssetsBase, cacheDir)
	if err != nil {
		return bundles, api.Fail(api.ErrRuntime, fmt.Sprintf("asset store unavailable: %v\n", err)), false
	}
	data, err := store.Load(ctx, name)
	if err != nil {
		return bundles, api.Fail(api.ErrRuntime, fmt.Sprintf("failed to load %s: %v\n", name, err)), false
	}
	logger.Debug("runtime bundle loaded", "name", name, "bytes", len(data))

	switch msg.Req.Language {
	case api.LangPython:
		bundles.Python = data
	case api.LangOCaml:
		bundles.OCaml = data
	}
	return bundles, api.RunResult{}, true
}
