package events

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/relay/pkg/query"
	"github.com/JaimeStill/relay/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "events", "e").
	Project("id", "ID").
	Project("thread_id", "ThreadID").
	Project("type", "Type").
	Project("payload", "Payload").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for event queries.
type Filters struct {
	ThreadID *uuid.UUID `json:"thread_id,omitempty"`
	Type     *Type      `json:"type,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("ThreadID", f.ThreadID).
		WhereEquals("Type", f.Type)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if t := values.Get("thread_id"); t != "" {
		if id, err := uuid.Parse(t); err == nil {
			f.ThreadID = &id
		}
	}

	if t := values.Get("type"); t != "" {
		typ := Type(t)
		f.Type = &typ
	}

	return f
}

func scanEvent(s repository.Scanner) (Event, error) {
	var e Event
	err := s.Scan(
		&e.ID,
		&e.ThreadID,
		&e.Type,
		&e.Payload,
		&e.CreatedAt,
	)
	return e, err
}
