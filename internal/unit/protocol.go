package unit

import "github.com/tasklab/autograder/api"

// One message in, one message out: the dispatcher posts a run message to a
// freshly spawned worker and the worker answers with exactly one result
// message before it is torn down. Newline-delimited JSON over stdio.
const (
	msgKindRun    = "run"
	msgTypeResult = "result"
)

type runMessage struct {
	Kind       string         `json:"kind"`
	Req        api.RunRequest `json:"req"`
	AssetsBase string         `json:"assetsBase,omitempty"`
}

type resultMessage struct {
	Type    string        `json:"type"`
	Payload api.RunResult `json:"payload"`
}
