package pyrun

import (
	"encoding/json"
	"strings"

	"github.com/tasklab/autograder/api"
)

const (
	jsonBegin        = "===AUTOGRADER_JSON_BEGIN==="
	jsonEnd          = "===AUTOGRADER_JSON_END==="
	importErrorStart = "IMPORT_ERROR_START"
	importErrorEnd   = "IMPORT_ERROR_END"
)

type driverReport struct {
	TestsRun int    `json:"testsRun"`
	Failures int    `json:"failures"`
	Errors   int    `json:"errors"`
	Text     string `json:"text"`
}

// parseDriverOutput turns the driver's raw stdout/stderr into a RunResult.
// Import failures beat everything; then the sentinel JSON; then a
// best-effort token scan when the sentinels are missing entirely.
func parseDriverOutput(stdout, stderr string) api.RunResult {
	if text, ok := between(stderr, importErrorStart, importErrorEnd); ok {
		return api.Fail(api.ErrCompile, ensureNewline("import failed:\n"+strings.TrimSpace(text)))
	}
	if strings.Contains(stderr, "SyntaxError") {
		return api.Fail(api.ErrCompile, ensureNewline(strings.TrimSpace(stderr)))
	}

	if raw, ok := between(stdout, jsonBegin, jsonEnd); ok {
		var report driverReport
		if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &report); err == nil {
			out := ensureNewline(report.Text)
			if report.Failures == 0 && report.Errors == 0 {
				return api.Ok(out)
			}
			return api.Fail(api.ErrTestsFailed, out)
		}
	}

	combined := stdout + stderr
	for _, token := range []string{"FAILED", "FAIL:", "ERROR:"} {
		if strings.Contains(combined, token) {
			return api.Fail(api.ErrTestsFailed, ensureNewline(combined))
		}
	}
	return api.Fail(api.ErrRuntime, ensureNewline("no test report produced\n"+combined))
}

func between(text, start, end string) (string, bool) {
	i := strings.Index(text, start)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
