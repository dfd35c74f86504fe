package autograder_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tasklab/autograder"
	"github.com/tasklab/autograder/api"
)

type stubDispatcher struct {
	got    *api.RunRequest
	result api.RunResult
}

func (s *stubDispatcher) Execute(_ context.Context, req api.RunRequest) api.RunResult {
	s.got = &req
	return s.result
}

func TestEngineUsesExplicitLanguage(t *testing.T) {
	stub := &stubDispatcher{result: api.Ok("OK")}
	engine := autograder.NewEngine(stub, nil)

	// The sources look nothing like Python; an explicit language must
	// still win without any detection.
	res := engine.Run(context.Background(), api.RunRequest{
		Solution: "function f() {}",
		Tests:    "test('t', () => {});",
		Language: api.LangPython,
	})
	require.True(t, res.Success)
	require.NotNil(t, stub.got)
	require.Equal(t, api.LangPython, stub.got.Language)
}

func TestEngineDetectsLanguage(t *testing.T) {
	stub := &stubDispatcher{result: api.Ok("OK")}
	engine := autograder.NewEngine(stub, nil)

	engine.Run(context.Background(), api.RunRequest{
		Solution: "def add(a, b):\n    return a + b\n",
		Tests:    "import unittest\nclass T(unittest.TestCase):\n    pass\n",
	})
	require.NotNil(t, stub.got)
	require.Equal(t, api.LangPython, stub.got.Language)
}

func TestEngineRejectsUndetectable(t *testing.T) {
	stub := &stubDispatcher{result: api.Ok("OK")}
	engine := autograder.NewEngine(stub, nil)

	res := engine.Run(context.Background(), api.RunRequest{
		Solution: "42",
		Tests:    "verdict",
	})
	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	require.Equal(t, api.ErrBadLanguageDetection, *res.Error)
	require.Nil(t, stub.got, "nothing must be dispatched when detection fails")
}

func TestEngineRejectsUnknownExplicitLanguage(t *testing.T) {
	stub := &stubDispatcher{result: api.Ok("OK")}
	engine := autograder.NewEngine(stub, nil)

	res := engine.Run(context.Background(), api.RunRequest{
		Solution: "x",
		Tests:    "y",
		Language: api.Language("fortran"),
	})
	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	require.Equal(t, api.ErrBadLanguageDetection, *res.Error)
	require.Nil(t, stub.got)
}

func TestEngineAppliesDefaultTimeout(t *testing.T) {
	stub := &stubDispatcher{result: api.Ok("OK")}
	engine := autograder.NewEngine(stub, nil)

	engine.Run(context.Background(), api.RunRequest{
		Solution: "const x = 1;",
		Tests:    "test('t', () => {});",
		Language: api.LangJS,
	})
	require.NotNil(t, stub.got)
	require.Equal(t, api.DefaultTimeoutMs, stub.got.TimeoutMs)
}

func TestClientRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/run-tests", r.URL.Path)
		require.Equal(t, "sekrit", r.Header.Get(autograder.AuthHeader))

		var req api.RunRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, api.LangJS, req.Language)

		json.NewEncoder(w).Encode(api.Ok("Ran 1 tests\nOK"))
	}))
	defer srv.Close()

	client := autograder.NewClient(srv.URL, "sekrit")
	res := client.Execute(context.Background(), api.RunRequest{
		Solution: "module.exports = {};",
		Tests:    "test('t', () => {});",
		Language: api.LangJS,
	})
	require.True(t, res.Success)
	require.Contains(t, res.Output, "OK")
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := autograder.NewClient(srv.URL, "")
	res := client.Execute(context.Background(), api.RunRequest{Language: api.LangJS})
	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	require.Equal(t, api.ErrRuntime, *res.Error)
	require.Contains(t, res.Output, "401")
}

// A server that accepts the request and never answers must not hang the
// caller; the client's own backstop produces the canonical timeout result.
func TestClientWedgedServerTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client := autograder.NewClient(srv.URL, "")
	client.BootGrace = 100 * time.Millisecond

	start := time.Now()
	res := client.Execute(context.Background(), api.RunRequest{Language: api.LangJS, TimeoutMs: 100})
	require.Less(t, time.Since(start), 2*time.Second)

	require.False(t, res.Success)
	require.True(t, res.Timeout)
	require.NotNil(t, res.Error)
	require.Equal(t, api.ErrTimeout, *res.Error)
}

func TestClientUnreachableServer(t *testing.T) {
	client := autograder.NewClient("http://127.0.0.1:1", "")
	res := client.Execute(context.Background(), api.RunRequest{Language: api.LangJS})
	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	require.Equal(t, api.ErrRuntime, *res.Error)
}
