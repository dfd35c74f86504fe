package behave_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tasklab/autograder/api"
	"github.com/tasklab/autograder/internal/behave"
)

func TestParseScenarios(t *testing.T) {
	cases, err := behave.Parse(filepath.Join("testdata", "scenarios.toml"))
	require.NoError(t, err)
	require.Len(t, cases, 3)

	require.Equal(t, "passing js submission", cases[0].Name)
	require.Equal(t, api.LangJS, cases[0].Request.Language)
	require.True(t, cases[0].Expect.Success)
	require.NotEmpty(t, cases[0].Uuid)

	require.Equal(t, "tests_failed", cases[1].Expect.Error)
	require.Equal(t, 2000, cases[2].Request.TimeoutMs)
	require.True(t, cases[2].Expect.Timeout)
}

func TestParseMissingFile(t *testing.T) {
	_, err := behave.Parse(filepath.Join("testdata", "nope.toml"))
	require.Error(t, err)
}

func TestCheckMatch(t *testing.T) {
	c := behave.Case{Expect: behave.SpecExpect{Success: true, OutputContains: []string{"OK"}}}
	mismatches := behave.Check(c, api.Ok("Ran 1 tests\nOK"))
	require.Empty(t, mismatches)
}

func TestCheckMismatches(t *testing.T) {
	c := behave.Case{Expect: behave.SpecExpect{Success: true, OutputContains: []string{"OK"}}}
	mismatches := behave.Check(c, api.Fail(api.ErrTestsFailed, "FAILED (failures=1)"))
	require.Len(t, mismatches, 3)
}

func TestParseRejectsUnknownErrorKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	writeFile(t, path, `
[[scenarios]]
description = "bad"
[scenarios.request]
solution = "x"
tests = "y"
[scenarios.expect]
error = "segfault"
`)
	_, err := behave.Parse(path)
	require.ErrorContains(t, err, "unknown error kind")
}

func TestParseRejectsUnknownLanguage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	writeFile(t, path, `
[[scenarios]]
description = "bad"
[scenarios.request]
solution = "x"
tests = "y"
language = "cobol"
[scenarios.expect]
success = true
`)
	_, err := behave.Parse(path)
	require.ErrorContains(t, err, "unknown language")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
