package events

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/relay/pkg/pagination"
)

// System defines the public contract for audit event operations. The log is
// append-only: there are no update or delete operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Event], error)

	Find(ctx context.Context, id uuid.UUID) (*Event, error)
	ListByThread(ctx context.Context, threadID uuid.UUID) ([]Event, error)
	Record(ctx context.Context, threadID uuid.UUID, payload Payload) (*Event, error)
}
