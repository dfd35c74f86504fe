package api

import "fmt"

// Language identifies which harness runs a request. The set is closed;
// anything else is rejected before execution.
type Language string

const (
	LangJS     Language = "js"
	LangPython Language = "python"
	LangOCaml  Language = "ocaml"
)

// Valid reports whether l is one of the known languages.
func (l Language) Valid() bool {
	switch l {
	case LangJS, LangPython, LangOCaml:
		return true
	}
	return false
}

// ParseLanguage resolves a wire string to a Language.
func ParseLanguage(s string) (Language, error) {
	l := Language(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown language: %q", s)
	}
	return l, nil
}

// DefaultTimeoutMs is applied when a request does not set TimeoutMs.
const DefaultTimeoutMs = 60_000

// RunRequest is the engine's sole input. Solution and Tests are opaque source
// text in the target language; no validation happens beyond what the chosen
// harness's own compiler or interpreter performs. An empty Language triggers
// detection.
type RunRequest struct {
	Solution string `json:"solution"`
	Tests    string `json:"tests"`

	Language Language `json:"language,omitempty"`

	TimeoutMs int `json:"timeoutMs,omitempty"`
	// MemoryMb is reserved; the engine enforces only a wall-clock budget.
	MemoryMb int `json:"memoryMb,omitempty"`
}
