// Package threads implements the conversation thread domain for Relay.
// It provides the thread lifecycle state machine, data access, and business
// logic for thread resolution, state transitions, human-handling, and archival.
package threads

import (
	"time"

	"github.com/google/uuid"
)

// Thread represents one customer conversation across one issue.
// State is mutated only through NextState output or a validated manual
// transition; threads are never deleted, only archived. Version increments
// on every state write and backs the optimistic concurrency check.
type Thread struct {
	ID            uuid.UUID `json:"id"`
	ExternalID    *string   `json:"external_id"`
	Subject       string    `json:"subject"`
	Channel       string    `json:"channel"`
	State         State     `json:"state"`
	LastIntent    string    `json:"last_intent"`
	Intents       []string  `json:"intents"`
	HumanHandling bool      `json:"human_handling"`
	Archived      bool      `json:"archived"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ResolveCommand carries the data needed to resolve or create a thread for
// an inbound message. When ExternalID is nil the channel does not support
// threading and a new thread is always created.
type ResolveCommand struct {
	Channel    string  `json:"channel"`
	ExternalID *string `json:"external_id"`
	Subject    string  `json:"subject"`
}

// StateCommand carries the data for the pipeline's final state write.
// Version must match the version read at the start of the update; the
// write fails with ErrVersionConflict otherwise.
type StateCommand struct {
	State      State
	LastIntent string
	Version    int
}

// TransitionCommand carries an operator-initiated state change, validated
// against the manual transition table before it is applied.
type TransitionCommand struct {
	To          State  `json:"to"`
	RequestedBy string `json:"requested_by"`
}
