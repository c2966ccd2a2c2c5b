// Package messages implements the message domain for Relay. Messages are
// append-only rows belonging to exactly one thread; a draft is a distinct
// row, never a mutation of a prior message.
package messages

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Direction distinguishes customer messages from agent output.
type Direction string

// Message directions.
const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Role refines outbound messages: sent text, a draft awaiting review, or
// an internal admin note.
type Role string

// Message roles.
const (
	RoleSent  Role = "sent"
	RoleDraft Role = "draft"
	RoleAdmin Role = "admin"
)

var roles = []Role{RoleSent, RoleDraft, RoleAdmin}

// ParseRole validates a string as a known message role.
func ParseRole(s string) (Role, error) {
	v := Role(s)
	if !slices.Contains(roles, v) {
		return "", ErrInvalidRole
	}
	return v, nil
}

// Message represents one message row. Blocked marks drafts that must never
// be sent (policy rejections and loop escalations). Metadata carries
// channel-specific structured data; see Metadata for the known shapes.
type Message struct {
	ID          uuid.UUID       `json:"id"`
	ThreadID    uuid.UUID       `json:"thread_id"`
	Direction   Direction       `json:"direction"`
	Role        *Role           `json:"role,omitempty"`
	Body        string          `json:"body"`
	From        *string         `json:"from,omitempty"`
	To          *string         `json:"to,omitempty"`
	Blocked     bool            `json:"blocked"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	MessageDate time.Time       `json:"message_date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CreateCommand carries the data needed to append a message. A nil
// MessageDate falls back to insertion time.
type CreateCommand struct {
	ThreadID    uuid.UUID
	Direction   Direction
	Role        *Role
	Body        string
	From        *string
	To          *string
	Blocked     bool
	Metadata    Metadata
	MessageDate *time.Time
}

// Metadata is the tagged union of known channel metadata shapes. Exactly
// one variant is set; unrecognized channel data lands in Opaque.
type Metadata struct {
	Email       *EmailMetadata  `json:"email,omitempty"`
	Chat        *ChatMetadata   `json:"chat,omitempty"`
	Voice       *VoiceMetadata  `json:"voice,omitempty"`
	Attachments []AttachmentRef `json:"attachments,omitempty"`
	Opaque      map[string]any  `json:"opaque,omitempty"`
}

// EmailMetadata holds email-channel headers worth keeping.
type EmailMetadata struct {
	MessageID  string   `json:"message_id,omitempty"`
	InReplyTo  string   `json:"in_reply_to,omitempty"`
	References []string `json:"references,omitempty"`
}

// ChatMetadata holds chat-channel session data.
type ChatMetadata struct {
	SessionID string `json:"session_id,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// VoiceMetadata holds voice-channel transcription data.
type VoiceMetadata struct {
	CallID         string  `json:"call_id,omitempty"`
	DurationSecs   int     `json:"duration_secs,omitempty"`
	TranscriptConf float64 `json:"transcript_confidence,omitempty"`
}

// AttachmentRef points at an uploaded attachment blob. The derived facts
// (name, type, size) feed draft generation context.
type AttachmentRef struct {
	StorageKey  string `json:"storage_key"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// Empty reports whether no metadata variant is populated.
func (m Metadata) Empty() bool {
	return m.Email == nil && m.Chat == nil && m.Voice == nil &&
		len(m.Attachments) == 0 && len(m.Opaque) == 0
}

// DecodeMetadata parses stored metadata JSON into the union, falling back
// to the Opaque variant for unstructured data.
func DecodeMetadata(raw json.RawMessage) Metadata {
	if len(raw) == 0 {
		return Metadata{}
	}

	var m Metadata
	if err := json.Unmarshal(raw, &m); err == nil && !m.Empty() {
		return m
	}

	var opaque map[string]any
	if err := json.Unmarshal(raw, &opaque); err == nil {
		return Metadata{Opaque: opaque}
	}
	return Metadata{}
}
