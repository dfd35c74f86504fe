// Package behave reads behaviour scenario files: TOML descriptions of
// grading requests paired with the verdict they must produce. The behave
// command runs them against a live engine as an end-to-end smoke check.
package behave

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/tasklab/autograder/api"
)

// SpecRequest is the request block inside a scenario entry.
type SpecRequest struct {
	Solution  string `toml:"solution"`
	Tests     string `toml:"tests"`
	Language  string `toml:"language"`
	TimeoutMs int    `toml:"timeout_ms"`
}

// SpecExpect is the verdict a scenario must produce. Error is the expected
// error kind name, empty for a passing run.
type SpecExpect struct {
	Success bool   `toml:"success"`
	Error   string `toml:"error"`
	Timeout bool   `toml:"timeout"`
	// OutputContains entries must all appear in the run output.
	OutputContains []string `toml:"output_contains"`
}

type specScenario struct {
	Description string      `toml:"description"`
	Request     SpecRequest `toml:"request"`
	Expect      SpecExpect  `toml:"expect"`
}

type specRoot struct {
	Scenarios []specScenario `toml:"scenarios"`
}

// Case is a runnable scenario converted from TOML.
type Case struct {
	Uuid    string
	Name    string
	Request api.RunRequest
	Expect  SpecExpect
}

// Parse reads a behaviour TOML file and converts it to runnable cases.
func Parse(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read behaviour file: %w", err)
	}
	var root specRoot
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if len(root.Scenarios) == 0 {
		return nil, fmt.Errorf("behaviour file has no scenarios")
	}

	cases := make([]Case, 0, len(root.Scenarios))
	for i, sc := range root.Scenarios {
		if sc.Description == "" {
			return nil, fmt.Errorf("scenario %d is missing a description", i+1)
		}
		lang := api.Language(sc.Request.Language)
		if sc.Request.Language != "" && !lang.Valid() {
			return nil, fmt.Errorf("scenario %q: unknown language %q", sc.Description, sc.Request.Language)
		}
		if sc.Expect.Error != "" && !validErrorKind(sc.Expect.Error) {
			return nil, fmt.Errorf("scenario %q: unknown error kind %q", sc.Description, sc.Expect.Error)
		}
		cases = append(cases, Case{
			Uuid: uuid.New().String(),
			Name: sc.Description,
			Request: api.RunRequest{
				Solution:  sc.Request.Solution,
				Tests:     sc.Request.Tests,
				Language:  lang,
				TimeoutMs: sc.Request.TimeoutMs,
			},
			Expect: sc.Expect,
		})
	}
	return cases, nil
}

// Check compares a run result against the scenario's expectation and
// returns a human-readable mismatch list, empty on success.
func Check(c Case, res api.RunResult) []string {
	var mismatches []string
	if res.Success != c.Expect.Success {
		mismatches = append(mismatches, fmt.Sprintf("success: want %v, got %v", c.Expect.Success, res.Success))
	}
	gotErr := ""
	if res.Error != nil {
		gotErr = string(*res.Error)
	}
	if gotErr != c.Expect.Error {
		mismatches = append(mismatches, fmt.Sprintf("error: want %q, got %q", c.Expect.Error, gotErr))
	}
	if res.Timeout != c.Expect.Timeout {
		mismatches = append(mismatches, fmt.Sprintf("timeout: want %v, got %v", c.Expect.Timeout, res.Timeout))
	}
	for _, want := range c.Expect.OutputContains {
		if !strings.Contains(res.Output, want) {
			mismatches = append(mismatches, fmt.Sprintf("output does not contain %q", want))
		}
	}
	return mismatches
}

func validErrorKind(s string) bool {
	switch api.ErrorKind(s) {
	case api.ErrBadLanguageDetection, api.ErrCompile, api.ErrRuntime, api.ErrTimeout, api.ErrTestsFailed:
		return true
	}
	return false
}

