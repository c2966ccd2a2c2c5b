// Package events implements the append-only audit log domain for Relay.
// Every state transition, classification change, policy block, and promise
// detection is recorded as an event tied to a thread. Events are never
// updated or deleted.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one append-only audit-log entry. Payload holds the raw JSON for
// the event's type; Decode interprets it against the typed payload union.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	ThreadID  uuid.UUID       `json:"thread_id"`
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Decode interprets the event payload as its typed shape, falling back to
// Opaque for unrecognized types or malformed payloads.
func (e *Event) Decode() Payload {
	return decodePayload(e.Type, e.Payload)
}
