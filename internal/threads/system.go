package threads

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/relay/pkg/pagination"
)

// System defines the public contract for thread operations.
type System interface {
	Handler(staleAge time.Duration) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Thread], error)

	Find(ctx context.Context, id uuid.UUID) (*Thread, error)

	// Resolve finds the open thread matching the command's channel and
	// external id, creating one when no match exists or when the channel
	// supplies no external id. The bool reports whether a thread was created.
	Resolve(ctx context.Context, cmd ResolveCommand) (*Thread, bool, error)

	// UpdateState applies the pipeline's final state write under optimistic
	// concurrency. It fails with ErrVersionConflict when the stored version
	// no longer matches cmd.Version.
	UpdateState(ctx context.Context, id uuid.UUID, cmd StateCommand) (*Thread, error)

	// AddIntents merges new intents into the thread's accumulated set,
	// optionally demoting a prior unknown entry.
	AddIntents(ctx context.Context, id uuid.UUID, add []string, removeUnknown bool) (*Thread, error)

	SetHumanHandling(ctx context.Context, id uuid.UUID, handling bool) (*Thread, error)

	// ManualTransition applies an operator-initiated state change after
	// validating it against the manual transition table.
	ManualTransition(ctx context.Context, id uuid.UUID, cmd TransitionCommand) (*Thread, error)

	Archive(ctx context.Context, id uuid.UUID) (*Thread, error)

	// Sweep resolves AWAITING_INFO threads idle longer than age, recording a
	// timeout event per thread. It returns the number of threads resolved.
	Sweep(ctx context.Context, age time.Duration) (int, error)
}
