package macros

import (
	"net/url"

	"github.com/JaimeStill/relay/pkg/query"
	"github.com/JaimeStill/relay/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "macros", "mc").
	Project("id", "ID").
	Project("name", "Name").
	Project("intent", "Intent").
	Project("body", "Body").
	Project("description", "Description").
	Project("active", "Active")

var defaultSort = query.SortField{
	Field: "Name",
}

// Filters contains optional filtering criteria for macro queries.
type Filters struct {
	Intent *string `json:"intent,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Intent", f.Intent).
		WhereEquals("Active", f.Active)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if i := values.Get("intent"); i != "" {
		f.Intent = &i
	}

	if a := values.Get("active"); a != "" {
		active := a == "true"
		f.Active = &active
	}

	return f
}

func scanMacro(s repository.Scanner) (Macro, error) {
	var m Macro
	err := s.Scan(
		&m.ID,
		&m.Name,
		&m.Intent,
		&m.Body,
		&m.Description,
		&m.Active,
	)
	return m, err
}
