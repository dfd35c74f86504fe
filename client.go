package autograder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tasklab/autograder/api"
	"github.com/tasklab/autograder/internal/unit"
)

// AuthHeader carries the shared service secret on grading requests.
const AuthHeader = "X-Service-Auth"

const runPath = "/api/run-tests"

// Client grades submissions through a remote grading server instead of a
// local worker process. It satisfies Dispatcher, so an Engine can be wired
// to either transparently.
type Client struct {
	baseURL string
	secret  string
	httpc   *http.Client
	// BootGrace pads the request budget for the outer backstop, covering
	// server-side worker start. Zero means unit.DefaultBootGrace.
	BootGrace time.Duration
}

func NewClient(baseURL, secret string) *Client {
	return &Client{baseURL: baseURL, secret: secret, httpc: http.DefaultClient}
}

// Execute posts the request to the grading server. Transport and protocol
// faults are folded into a runtime_error result so callers see the same
// result shape on every path.
func (c *Client) Execute(ctx context.Context, req api.RunRequest) api.RunResult {
	return c.Run(ctx, req)
}

// Run grades one submission remotely. The call carries its own outer
// timeout of the request budget plus a boot grace, so a grading server that
// accepts the request and never answers still yields the canonical timeout
// result.
func (c *Client) Run(ctx context.Context, req api.RunRequest) api.RunResult {
	timeoutMs := req.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = api.DefaultTimeoutMs
	}
	grace := c.BootGrace
	if grace <= 0 {
		grace = unit.DefaultBootGrace
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond+grace)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return api.Fail(api.ErrRuntime, fmt.Sprintf("failed to encode request: %v\n", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+runPath, bytes.NewReader(body))
	if err != nil {
		return api.Fail(api.ErrRuntime, fmt.Sprintf("failed to build request: %v\n", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		httpReq.Header.Set(AuthHeader, c.secret)
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return api.TimedOut(fmt.Sprintf("grading server did not answer within the %dms budget\n", timeoutMs))
		}
		return api.Fail(api.ErrRuntime, fmt.Sprintf("grading server unreachable: %v\n", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return api.Fail(api.ErrRuntime, fmt.Sprintf("grading server returned status %d\n", resp.StatusCode))
	}

	var res api.RunResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return api.TimedOut(fmt.Sprintf("grading server did not answer within the %dms budget\n", timeoutMs))
		}
		return api.Fail(api.ErrRuntime, fmt.Sprintf("malformed grading server response: %v\n", err))
	}
	return res
}
