package events

import (
	"encoding/json"

	"github.com/JaimeStill/relay/internal/policy"
)

// Type discriminates event payloads. Wire-visible vocabulary; values are
// persisted and replayed, so they must remain stable.
type Type string

// Event types.
const (
	TypeThreadCreated    Type = "thread_created"
	TypeMessageReceived  Type = "message_received"
	TypeStateTransition  Type = "state_transition"
	TypeIntentClassified Type = "intent_classified"
	TypeIntentClarified  Type = "intent_clarified"
	TypePolicyBlocked    Type = "policy_blocked"
	TypePromisesDetected Type = "promises_detected"
	TypeLoopDetected     Type = "loop_detected"
	TypeObservation      Type = "observation"
	TypeStaleTimeout     Type = "stale_timeout"
	TypeDecisionTrace    Type = "decision_trace"
)

// Payload is implemented by every typed event payload shape.
type Payload interface {
	EventType() Type
}

// ThreadCreated records the creation of a thread for a first inbound message.
type ThreadCreated struct {
	Channel    string  `json:"channel"`
	ExternalID *string `json:"external_id,omitempty"`
	Subject    string  `json:"subject"`
}

func (ThreadCreated) EventType() Type { return TypeThreadCreated }

// MessageReceived records an inbound message insertion.
type MessageReceived struct {
	MessageID string `json:"message_id"`
	Channel   string `json:"channel"`
	From      string `json:"from,omitempty"`
}

func (MessageReceived) EventType() Type { return TypeMessageReceived }

// StateTransition records one state machine evaluation, with the
// human-readable reason for audit display.
type StateTransition struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
	Manual bool   `json:"manual,omitempty"`
	By     string `json:"by,omitempty"`
}

func (StateTransition) EventType() Type { return TypeStateTransition }

// IntentClassified records intents added to a thread's accumulated set.
type IntentClassified struct {
	Primary    string   `json:"primary"`
	Confidence float64  `json:"confidence"`
	Added      []string `json:"added,omitempty"`
	Overridden bool     `json:"overridden,omitempty"`
}

func (IntentClassified) EventType() Type { return TypeIntentClassified }

// IntentClarified records the demotion of a prior unknown label once a real
// intent is detected.
type IntentClarified struct {
	Previous string `json:"previous"`
	Detected string `json:"detected"`
}

func (IntentClarified) EventType() Type { return TypeIntentClarified }

// PolicyBlocked records a draft rejected by the policy gate, retaining the
// original text for human review.
type PolicyBlocked struct {
	Violations []string `json:"violations"`
	Draft      string   `json:"draft"`
}

func (PolicyBlocked) EventType() Type { return TypePolicyBlocked }

// PromisesDetected records the auditor's commitment catalog for a draft.
type PromisesDetected struct {
	Promises []policy.DetectedPromise `json:"promises"`
}

func (PromisesDetected) EventType() Type { return TypePromisesDetected }

// LoopDetected records a clarification loop short-circuit, with the full
// per-category count map from the history scan.
type LoopDetected struct {
	Category    string         `json:"category"`
	Occurrences int            `json:"occurrences"`
	Counts      map[string]int `json:"counts,omitempty"`
}

func (LoopDetected) EventType() Type { return TypeLoopDetected }

// Observation records a note-only event, used when a human owns the thread
// and the pipeline stands down.
type Observation struct {
	Note string `json:"note"`
}

func (Observation) EventType() Type { return TypeObservation }

// StaleTimeout records an idle AWAITING_INFO thread resolved by the sweep.
type StaleTimeout struct {
	IdleFor string `json:"idle_for"`
}

func (StaleTimeout) EventType() Type { return TypeStaleTimeout }

// DecisionTrace is the terminal audit record for one processed message,
// carrying the full decision context.
type DecisionTrace struct {
	MessageID        string   `json:"message_id"`
	Intent           string   `json:"intent"`
	Confidence       float64  `json:"confidence"`
	Action           string   `json:"action"`
	PreviousState    string   `json:"previous_state"`
	State            string   `json:"state"`
	PolicyBlocked    bool     `json:"policy_blocked,omitempty"`
	Violations       []string `json:"violations,omitempty"`
	LoopCategory     string   `json:"loop_category,omitempty"`
	VerifyStatus     string   `json:"verify_status,omitempty"`
	DraftSource      string   `json:"draft_source,omitempty"`
	Trace            []string `json:"trace,omitempty"`
	TransitionReason string   `json:"transition_reason"`
}

func (DecisionTrace) EventType() Type { return TypeDecisionTrace }

// Opaque carries payloads whose type is not part of the known union, such
// as genuinely unstructured channel data. It preserves the raw JSON.
type Opaque struct {
	Type Type            `json:"type"`
	Raw  json.RawMessage `json:"raw"`
}

func (o Opaque) EventType() Type { return o.Type }

func decodePayload(t Type, raw []byte) Payload {
	decode := func(target Payload) Payload {
		if err := json.Unmarshal(raw, target); err != nil {
			return Opaque{Type: t, Raw: raw}
		}
		return target
	}

	switch t {
	case TypeThreadCreated:
		return decode(&ThreadCreated{})
	case TypeMessageReceived:
		return decode(&MessageReceived{})
	case TypeStateTransition:
		return decode(&StateTransition{})
	case TypeIntentClassified:
		return decode(&IntentClassified{})
	case TypeIntentClarified:
		return decode(&IntentClarified{})
	case TypePolicyBlocked:
		return decode(&PolicyBlocked{})
	case TypePromisesDetected:
		return decode(&PromisesDetected{})
	case TypeLoopDetected:
		return decode(&LoopDetected{})
	case TypeObservation:
		return decode(&Observation{})
	case TypeStaleTimeout:
		return decode(&StaleTimeout{})
	case TypeDecisionTrace:
		return decode(&DecisionTrace{})
	default:
		return Opaque{Type: t, Raw: raw}
	}
}
