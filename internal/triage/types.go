package triage

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/relay/internal/classify"
	"github.com/JaimeStill/relay/internal/messages"
	"github.com/JaimeStill/relay/internal/policy"
	"github.com/JaimeStill/relay/internal/threads"
	"github.com/JaimeStill/relay/internal/verify"
)

// State bag keys.
const (
	KeyTriageState = "triage_state"
)

// Draft sources, recorded in the decision trace.
const (
	SourceMacro     = "macro"
	SourceGenerated = "generated"
	SourceQuestions = "questions"
	SourceNotice    = "notice"
)

// Inbound is one raw message presented to the pipeline.
type Inbound struct {
	Channel    string            `json:"channel"`
	ExternalID *string           `json:"external_id,omitempty"`
	From       string            `json:"from"`
	To         string            `json:"to,omitempty"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	Metadata   messages.Metadata `json:"metadata,omitempty"`
	ReceivedAt *time.Time        `json:"received_at,omitempty"`
}

// ThreadKey groups inbound messages that resolve to the same thread, so
// batch processing can keep per-thread ordering while threads run in
// parallel.
func (in Inbound) ThreadKey() string {
	if in.ExternalID == nil {
		return ""
	}
	return in.Channel + ":" + *in.ExternalID
}

// TriageState is the carrier passed through the pipeline graph. Nodes read
// the fields earlier nodes populated and set their own.
type TriageState struct {
	Inbound Inbound
	Thread  *threads.Thread
	Message *messages.Message

	Result       *classify.Result
	Integration  classify.Integration
	VerifyResult *verify.Result

	Action       threads.Action
	Draft        string
	DraftSource  string
	DraftBlocked bool

	Gate         *policy.GateResult
	Promises     []policy.DetectedPromise
	Loop         *LoopResult
	LoopCategory string

	Filtered     bool
	FilterReason string

	PreviousState    threads.State
	TransitionReason string
	Summary          string

	Trace []string
}

func (ts TriageState) addTrace(step string) TriageState {
	ts.Trace = append(ts.Trace, step)
	return ts
}

// Outcome is the pipeline's result for one processed message.
type Outcome struct {
	ThreadID      uuid.UUID      `json:"thread_id"`
	MessageID     uuid.UUID      `json:"message_id"`
	Intent        string         `json:"intent"`
	Confidence    float64        `json:"confidence"`
	Action        threads.Action `json:"action"`
	PreviousState threads.State  `json:"previous_state"`
	State         threads.State  `json:"state"`
	Draft         string         `json:"draft,omitempty"`
	DraftBlocked  bool           `json:"draft_blocked,omitempty"`
	Summary       string         `json:"summary"`
}
