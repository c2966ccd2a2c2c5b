// Package macros implements the pre-approved response template domain for
// Relay. Macros are the only outbound text the pipeline may auto-send: each
// is reviewed text bound to an intent, managed by operators.
package macros

import "github.com/google/uuid"

// Macro represents a named pre-approved response for an intent.
type Macro struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Intent      string    `json:"intent"`
	Body        string    `json:"body"`
	Description *string   `json:"description"`
	Active      bool      `json:"active"`
}

// CreateCommand carries the data needed to create a new macro.
type CreateCommand struct {
	Name        string  `json:"name"`
	Intent      string  `json:"intent"`
	Body        string  `json:"body"`
	Description *string `json:"description"`
}

// UpdateCommand carries the data needed to update an existing macro.
type UpdateCommand struct {
	Name        string  `json:"name"`
	Intent      string  `json:"intent"`
	Body        string  `json:"body"`
	Description *string `json:"description"`
	Active      bool    `json:"active"`
}
