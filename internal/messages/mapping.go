package messages

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/relay/pkg/query"
	"github.com/JaimeStill/relay/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "messages", "m").
	Project("id", "ID").
	Project("thread_id", "ThreadID").
	Project("direction", "Direction").
	Project("role", "Role").
	Project("body", "Body").
	Project("from_identifier", "From").
	Project("to_identifier", "To").
	Project("blocked", "Blocked").
	Project("metadata", "Metadata").
	Project("message_date", "MessageDate").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "MessageDate",
	Descending: true,
}

// Filters contains optional filtering criteria for message queries.
type Filters struct {
	ThreadID  *uuid.UUID `json:"thread_id,omitempty"`
	Direction *Direction `json:"direction,omitempty"`
	Role      *Role      `json:"role,omitempty"`
	Blocked   *bool      `json:"blocked,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("ThreadID", f.ThreadID).
		WhereEquals("Direction", f.Direction).
		WhereEquals("Role", f.Role).
		WhereEquals("Blocked", f.Blocked)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if t := values.Get("thread_id"); t != "" {
		if id, err := uuid.Parse(t); err == nil {
			f.ThreadID = &id
		}
	}

	if d := values.Get("direction"); d != "" {
		dir := Direction(d)
		f.Direction = &dir
	}

	if r := values.Get("role"); r != "" {
		if role, err := ParseRole(r); err == nil {
			f.Role = &role
		}
	}

	if b := values.Get("blocked"); b != "" {
		blocked := b == "true"
		f.Blocked = &blocked
	}

	return f
}

func scanMessage(s repository.Scanner) (Message, error) {
	var m Message
	var role *string

	err := s.Scan(
		&m.ID,
		&m.ThreadID,
		&m.Direction,
		&role,
		&m.Body,
		&m.From,
		&m.To,
		&m.Blocked,
		&m.Metadata,
		&m.MessageDate,
		&m.CreatedAt,
	)
	if err != nil {
		return m, err
	}

	if role != nil {
		r := Role(*role)
		m.Role = &r
	}

	return m, nil
}
