// Package natsev publishes run lifecycle events to a NATS subject.
package natsev

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/tasklab/autograder/api"
	"github.com/tasklab/autograder/internal/events"
)

const (
	msgTypeReceived = "run_received"
	msgTypeFinished = "run_finished"
)

type Publisher struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
}

func New(nc *nats.Conn, subject string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{nc: nc, subject: subject, logger: logger}
}

type receivedMsg struct {
	RunUuid  string       `json:"run_uuid"`
	Language api.Language `json:"language"`
}

type finishedMsg struct {
	RunUuid string `json:"run_uuid"`
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
	Timeout bool   `json:"timeout"`
}

func (p *Publisher) RunReceived(runUuid string, lang api.Language) {
	p.send(runUuid, msgTypeReceived, receivedMsg{RunUuid: runUuid, Language: lang})
}

func (p *Publisher) RunFinished(runUuid string, res api.RunResult) {
	kind := ""
	if res.Error != nil {
		kind = string(*res.Error)
	}
	p.send(runUuid, msgTypeFinished, finishedMsg{
		RunUuid: runUuid,
		Success: res.Success,
		Output:  events.TrimToRect(res.Output, events.MaxOutputHeight, events.MaxOutputWidth),
		Error:   kind,
		Timeout: res.Timeout,
	})
}

func (p *Publisher) send(runUuid, msgType string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to marshal event", "error", err)
		return
	}
	msg := nats.NewMsg(p.subject)
	msg.Header.Set("run_uuid", runUuid)
	msg.Header.Set("msg_type", msgType)
	msg.Data = b
	if err := p.nc.PublishMsg(msg); err != nil {
		p.logger.Error("failed to publish event", "error", err, "msg_type", msgType)
	}
}
