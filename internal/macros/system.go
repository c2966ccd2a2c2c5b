package macros

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/relay/pkg/pagination"
)

// System defines the public contract for macro domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Macro], error)

	Find(ctx context.Context, id uuid.UUID) (*Macro, error)

	// FindByIntent returns the active macro for an intent, or ErrNotFound
	// when no approved macro exists.
	FindByIntent(ctx context.Context, intent string) (*Macro, error)

	Create(ctx context.Context, cmd CreateCommand) (*Macro, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Macro, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
