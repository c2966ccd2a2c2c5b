package threads

import (
	"encoding/json"
	"slices"

	"github.com/JaimeStill/relay/internal/classify"
)

// State represents a thread lifecycle state. The value set is wire-visible
// vocabulary persisted with every thread and event, and must remain stable.
type State string

// Thread lifecycle states. HUMAN_HANDLING is deliberately not a state;
// it is tracked as a flag on the thread so a human can own a thread in
// any lifecycle position.
const (
	StateNew          State = "NEW"
	StateAwaitingInfo State = "AWAITING_INFO"
	StateInProgress   State = "IN_PROGRESS"
	StateEscalated    State = "ESCALATED"
	StateResolved     State = "RESOLVED"
)

var states = []State{
	StateNew,
	StateAwaitingInfo,
	StateInProgress,
	StateEscalated,
	StateResolved,
}

// States returns the list of valid thread states.
func States() []State {
	return states
}

// Valid reports whether s is a known thread state.
func (s State) Valid() bool {
	return slices.Contains(states, s)
}

// ParseState validates a string as a known thread state.
func ParseState(s string) (State, error) {
	v := State(s)
	if !v.Valid() {
		return "", ErrInvalidState
	}
	return v, nil
}

// UnmarshalJSON validates that the decoded string is a known state value.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseState(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Action represents the pipeline's terminal decision for one inbound message.
type Action string

// Triage actions. Generated (non-macro) drafts are never auto-sent; they
// ride along with an escalation for human review.
const (
	ActionNoReply           Action = "NO_REPLY"
	ActionAskClarifying     Action = "ASK_CLARIFYING_QUESTIONS"
	ActionSendMacro         Action = "SEND_PREAPPROVED_MACRO"
	ActionEscalateWithDraft Action = "ESCALATE_WITH_DRAFT"
)

// Transition captures the inputs to one state machine evaluation.
type Transition struct {
	Current         State
	Action          Action
	Intent          string
	PolicyBlocked   bool
	MissingRequired bool
}

type stateRule struct {
	matches func(t Transition) bool
	next    func(t Transition) State
	reason  string
}

// Rules are evaluated in order; the first match wins. The ordering is part
// of the contract: closing intents outrank escalation, escalation outranks
// missing info, and ESCALATED is sticky against anything below it.
var stateRules = []stateRule{
	{
		matches: func(t Transition) bool { return t.Intent == classify.IntentThankYouClose },
		next:    func(Transition) State { return StateResolved },
		reason:  "customer closed the conversation",
	},
	{
		matches: func(t Transition) bool { return classify.Resolves(t.Intent) },
		next:    func(Transition) State { return StateResolved },
		reason:  "non-actionable message, no reply required",
	},
	{
		matches: func(t Transition) bool { return t.Action == ActionEscalateWithDraft },
		next:    func(Transition) State { return StateEscalated },
		reason:  "escalated with a draft for human review",
	},
	{
		matches: func(t Transition) bool { return classify.AlwaysEscalates(t.Intent) },
		next:    func(Transition) State { return StateEscalated },
		reason:  "high-risk intent requires a human",
	},
	{
		matches: func(t Transition) bool { return t.PolicyBlocked },
		next:    func(Transition) State { return StateEscalated },
		reason:  "draft blocked by the policy gate",
	},
	{
		matches: func(t Transition) bool { return t.MissingRequired },
		next:    func(Transition) State { return StateAwaitingInfo },
		reason:  "waiting on required information from the customer",
	},
	{
		matches: func(t Transition) bool { return t.Current == StateAwaitingInfo },
		next:    func(Transition) State { return StateInProgress },
		reason:  "customer replied while information was outstanding",
	},
	{
		matches: func(t Transition) bool { return t.Current == StateEscalated },
		next:    func(Transition) State { return StateEscalated },
		reason:  "thread remains escalated",
	},
	{
		matches: func(t Transition) bool { return t.Current == StateResolved },
		next:    func(Transition) State { return StateInProgress },
		reason:  "resolved thread reopened by new activity",
	},
	{
		matches: func(t Transition) bool {
			return t.Action == ActionAskClarifying || t.Action == ActionSendMacro
		},
		next:   func(Transition) State { return StateInProgress },
		reason: "automated reply sent, conversation in progress",
	},
}

func evaluate(t Transition) (State, string) {
	for _, r := range stateRules {
		if r.matches(t) {
			return r.next(t), r.reason
		}
	}
	return t.Current, "no transition rule applied"
}

// NextState computes the thread's next lifecycle state for one processed
// message. It is a pure function; the pipeline applies its output through
// the repository's optimistic state write.
func NextState(current State, action Action, intent string, policyBlocked, missingRequired bool) State {
	next, _ := evaluate(Transition{
		Current:         current,
		Action:          action,
		Intent:          intent,
		PolicyBlocked:   policyBlocked,
		MissingRequired: missingRequired,
	})
	return next
}

// TransitionReason returns a short human-readable explanation of which
// rule produced the transition, used for audit display.
func TransitionReason(current State, action Action, intent string, policyBlocked, missingRequired bool) string {
	_, reason := evaluate(Transition{
		Current:         current,
		Action:          action,
		Intent:          intent,
		PolicyBlocked:   policyBlocked,
		MissingRequired: missingRequired,
	})
	return reason
}

// manualTransitions defines which operator-initiated state changes are
// permitted. Distinct from the automatic rules: an operator can never move
// a thread back to NEW, and ESCALATED only releases forward.
var manualTransitions = map[State][]State{
	StateNew:          {StateAwaitingInfo, StateInProgress, StateEscalated, StateResolved},
	StateAwaitingInfo: {StateInProgress, StateEscalated, StateResolved},
	StateInProgress:   {StateAwaitingInfo, StateEscalated, StateResolved},
	StateEscalated:    {StateInProgress, StateResolved},
	StateResolved:     {StateInProgress},
}

// IsValidManualTransition reports whether an operator may move a thread
// from one state to another.
func IsValidManualTransition(from, to State) bool {
	if from == to {
		return false
	}
	return slices.Contains(manualTransitions[from], to)
}
