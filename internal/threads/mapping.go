package threads

import (
	"encoding/json"
	"net/url"

	"github.com/JaimeStill/relay/pkg/query"
	"github.com/JaimeStill/relay/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "threads", "t").
	Project("id", "ID").
	Project("external_id", "ExternalID").
	Project("subject", "Subject").
	Project("channel", "Channel").
	Project("state", "State").
	Project("last_intent", "LastIntent").
	Project("intents", "Intents").
	Project("human_handling", "HumanHandling").
	Project("archived", "Archived").
	Project("version", "Version").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UpdatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for thread queries.
type Filters struct {
	Channel       *string `json:"channel,omitempty"`
	State         *State  `json:"state,omitempty"`
	LastIntent    *string `json:"last_intent,omitempty"`
	HumanHandling *bool   `json:"human_handling,omitempty"`
	Archived      *bool   `json:"archived,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Channel", f.Channel).
		WhereEquals("State", f.State).
		WhereEquals("LastIntent", f.LastIntent).
		WhereEquals("HumanHandling", f.HumanHandling).
		WhereEquals("Archived", f.Archived)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if c := values.Get("channel"); c != "" {
		f.Channel = &c
	}

	if s := values.Get("state"); s != "" {
		if st, err := ParseState(s); err == nil {
			f.State = &st
		}
	}

	if i := values.Get("last_intent"); i != "" {
		f.LastIntent = &i
	}

	if h := values.Get("human_handling"); h != "" {
		hh := h == "true"
		f.HumanHandling = &hh
	}

	if a := values.Get("archived"); a != "" {
		ar := a == "true"
		f.Archived = &ar
	}

	return f
}

func scanThread(s repository.Scanner) (Thread, error) {
	var t Thread
	var intents []byte

	err := s.Scan(
		&t.ID,
		&t.ExternalID,
		&t.Subject,
		&t.Channel,
		&t.State,
		&t.LastIntent,
		&intents,
		&t.HumanHandling,
		&t.Archived,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return t, err
	}

	if len(intents) > 0 {
		if err := json.Unmarshal(intents, &t.Intents); err != nil {
			return t, err
		}
	}

	if t.Intents == nil {
		t.Intents = []string{}
	}

	return t, nil
}
