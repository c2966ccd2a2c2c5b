// Package verify defines Relay's customer verification collaborator: the
// contract for confirming a sender's claimed identity and order against an
// authoritative source before account-specific information is divulged.
package verify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the verification outcome vocabulary.
type Status string

// Verification statuses.
const (
	StatusVerified Status = "verified"
	StatusPending  Status = "pending"
	StatusFlagged  Status = "flagged"
	StatusNotFound Status = "not_found"
)

// Order holds the verified order data returned by the authority.
type Order struct {
	Number    string     `json:"number"`
	Email     string     `json:"email"`
	Vehicle   string     `json:"vehicle,omitempty"`
	Product   string     `json:"product,omitempty"`
	PlacedAt  *time.Time `json:"placed_at,omitempty"`
	Status    string     `json:"status,omitempty"`
	Carrier   string     `json:"carrier,omitempty"`
	TrackingN string     `json:"tracking_number,omitempty"`
}

// Customer holds the verified customer identity.
type Customer struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	OrderCount int    `json:"order_count"`
}

// Result is the verification contract consumed by the triage pipeline.
// Flags is populated when Status is flagged.
type Result struct {
	Status   Status    `json:"status"`
	Order    *Order    `json:"order,omitempty"`
	Customer *Customer `json:"customer,omitempty"`
	Flags    []string  `json:"flags,omitempty"`
}

// System is the verification collaborator. Implementations are external
// lookups; a call failure is terminal for the message being processed.
type System interface {
	Verify(ctx context.Context, threadID uuid.UUID, sender, body string) (*Result, error)
}
