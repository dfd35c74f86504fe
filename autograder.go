// Package autograder runs untrusted solution and test source against each
// other and reports a single verdict. The engine resolves the language,
// applies the timeout default and hands the request to a dispatcher; the
// dispatcher's result is relayed verbatim.
package autograder

import (
	"context"
	"log/slog"

	"github.com/tasklab/autograder/api"
	"github.com/tasklab/autograder/internal/detect"
)

// Dispatcher executes one resolved run request in an isolated unit.
// internal/unit provides the subprocess implementation; Client provides the
// remote one.
type Dispatcher interface {
	Execute(ctx context.Context, req api.RunRequest) api.RunResult
}

type Engine struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewEngine(dispatcher Dispatcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{dispatcher: dispatcher, logger: logger}
}

// Run grades one submission. An explicit request language bypasses
// detection entirely; otherwise the language is inferred from the sources
// and a failed inference is reported without executing anything.
func (e *Engine) Run(ctx context.Context, req api.RunRequest) api.RunResult {
	if req.Language != "" {
		if !req.Language.Valid() {
			e.logger.Warn("rejected unsupported language", "language", req.Language)
			return api.Fail(api.ErrBadLanguageDetection,
				"unsupported language \""+string(req.Language)+"\"\n")
		}
	} else {
		lang, ok := detect.Detect(req.Solution, req.Tests)
		if !ok {
			e.logger.Warn("language detection failed")
			return api.Fail(api.ErrBadLanguageDetection,
				"could not determine the language of the submission; "+
					"pass it explicitly or add a language marker\n")
		}
		req.Language = lang
	}

	if req.TimeoutMs <= 0 {
		req.TimeoutMs = api.DefaultTimeoutMs
	}

	e.logger.Info("dispatching run", "language", req.Language, "timeout_ms", req.TimeoutMs)
	res := e.dispatcher.Execute(ctx, req)
	e.logger.Info("run finished", "success", res.Success, "timeout", res.Timeout)
	return res
}
