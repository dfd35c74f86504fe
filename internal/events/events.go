// Package events publishes run lifecycle notifications. Publishers are
// fire-and-forget: a failed publish is logged, never surfaced to the run.
package events

import (
	"log/slog"
	"strings"

	"github.com/tasklab/autograder/api"
)

// Output embedded in an event is clipped to this rectangle so a chatty
// submission cannot flood the event stream.
const (
	MaxOutputHeight = 50
	MaxOutputWidth  = 200
)

type Publisher interface {
	RunReceived(runUuid string, lang api.Language)
	RunFinished(runUuid string, res api.RunResult)
}

// LogPublisher writes lifecycle events to structured logs. It is the
// default when no broker is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) RunReceived(runUuid string, lang api.Language) {
	p.logger().Info("run received", "run_uuid", runUuid, "language", lang)
}

func (p LogPublisher) RunFinished(runUuid string, res api.RunResult) {
	kind := ""
	if res.Error != nil {
		kind = string(*res.Error)
	}
	p.logger().Info("run finished",
		"run_uuid", runUuid,
		"success", res.Success,
		"error", kind,
		"timeout", res.Timeout)
}

func (p LogPublisher) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// TrimToRect clips s to at most maxHeight lines of maxWidth bytes each,
// marking every cut with "[...]".
func TrimToRect(s string, maxHeight, maxWidth int) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > maxHeight {
		lines = append(lines[:maxHeight], "[...]")
	}
	for i, line := range lines {
		if len(line) > maxWidth {
			lines[i] = line[:maxWidth] + "[...]"
		}
	}
	return strings.Join(lines, "\n")
}
