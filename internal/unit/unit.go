// Package unit spawns one disposable worker process per run request and
// relays its single result back, enforcing the outer wall-clock backstop.
// The worker owns nothing beyond one request's lifetime and is killed
// unconditionally once a result arrives or the timer fires, whichever is
// first; no worker is ever reused.
package unit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/tasklab/autograder/api"
)

// WorkerBinary is the name of the worker executable looked up when no
// explicit path is configured.
const WorkerBinary = "autograder-worker"

// DefaultBootGrace is added on top of the request timeout for the outer
// timer, covering worker start and runtime bundle bootstrap. The harness
// inside the worker still enforces the request timeout itself; the outer
// timer is the hard backstop for a hung or wedged unit.
const DefaultBootGrace = 5 * time.Second

const maxResultLine = 16 << 20

type Options struct {
	// WorkerPath overrides worker binary discovery.
	WorkerPath string
	WorkerArgs []string
	// AssetsBase is forwarded to the worker for runtime bundle loading.
	AssetsBase string
	BootGrace  time.Duration
	Logger     *slog.Logger
}

// Dispatcher creates isolated units. It is safe for concurrent use; every
// Execute call spawns its own process.
type Dispatcher struct {
	opts Options
}

func NewDispatcher(opts Options) *Dispatcher {
	if opts.BootGrace <= 0 {
		opts.BootGrace = DefaultBootGrace
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Dispatcher{opts: opts}
}

// Execute runs one request in a fresh unit. It never returns an error;
// every fault becomes a RunResult.
func (d *Dispatcher) Execute(ctx context.Context, req api.RunRequest) api.RunResult {
	workerPath, err := resolveWorkerPath(d.opts.WorkerPath)
	if err != nil {
		return api.Fail(api.ErrRuntime, fmt.Sprintf("worker binary unavailable: %v\n", err))
	}

	timeoutMs := req.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = api.DefaultTimeoutMs
	}
	outer := time.Duration(timeoutMs)*time.Millisecond + d.opts.BootGrace

	cmd := exec.Command(workerPath, d.opts.WorkerArgs...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return api.Fail(api.ErrRuntime, fmt.Sprintf("failed to open worker stdin: %v\n", err))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return api.Fail(api.ErrRuntime, fmt.Sprintf("failed to open worker stdout: %v\n", err))
	}

	if err := cmd.Start(); err != nil {
		return api.Fail(api.ErrRuntime, fmt.Sprintf("failed to spawn worker: %v\n", err))
	}
	d.opts.Logger.Debug("spawned isolated unit", "pid", cmd.Process.Pid, "language", req.Language)

	// The write races the worker's lifetime; a crashed worker surfaces
	// through the reader below, not through a pipe error here.
	go func() {
		msg := runMessage{Kind: msgKindRun, Req: req, AssetsBase: d.opts.AssetsBase}
		b, _ := json.Marshal(msg)
		stdin.Write(append(b, '\n'))
		stdin.Close()
	}()

	resultCh := make(chan api.RunResult, 1)
	faultCh := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64<<10), maxResultLine)
		for scanner.Scan() {
			var msg resultMessage
			if err := json.Unmarshal(scanner.Bytes(), &msg); err == nil && msg.Type == msgTypeResult {
				resultCh <- msg.Payload
				return
			}
		}
		if err := scanner.Err(); err != nil {
			faultCh <- fmt.Errorf("worker transport error: %w", err)
			return
		}
		faultCh <- errors.New("worker exited before producing a result")
	}()

	timer := time.NewTimer(outer)
	defer timer.Stop()

	// Exactly one result leaves this select; the unit dies in every branch.
	select {
	case res := <-resultCh:
		d.destroy(cmd)
		return res

	case err := <-faultCh:
		d.destroy(cmd)
		diag := err.Error()
		if s := stderr.String(); s != "" {
			diag += "\n" + s
		}
		return api.Fail(api.ErrRuntime, diag+"\n")

	case <-timer.C:
		d.destroy(cmd)
		return api.TimedOut(fmt.Sprintf("run exceeded the %dms budget and the unit was terminated\n", timeoutMs))

	case <-ctx.Done():
		d.destroy(cmd)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return api.TimedOut("run cancelled by deadline\n")
		}
		return api.Fail(api.ErrRuntime, "run cancelled\n")
	}
}

func (d *Dispatcher) destroy(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	_ = cmd.Wait()
}

func resolveWorkerPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), WorkerBinary)
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}
	return exec.LookPath(WorkerBinary)
}
