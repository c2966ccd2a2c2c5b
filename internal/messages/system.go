package messages

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/relay/pkg/pagination"
	"github.com/JaimeStill/relay/pkg/storage"
)

// System defines the public contract for message domain operations.
// Messages are append-only: there is no update or delete.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Message], error)

	Find(ctx context.Context, id uuid.UUID) (*Message, error)
	ListByThread(ctx context.Context, threadID uuid.UUID) ([]Message, error)

	// Outbound returns the thread's outbound messages in chronological
	// order, for clarification-loop analysis.
	Outbound(ctx context.Context, threadID uuid.UUID) ([]Message, error)

	// RecentContext returns up to limit messages preceding the given
	// message in the same thread, oldest first, for classifier context.
	RecentContext(ctx context.Context, threadID, before uuid.UUID, limit int) ([]Message, error)

	Create(ctx context.Context, cmd CreateCommand) (*Message, error)

	// Attach uploads attachment data to blob storage and appends an
	// AttachmentRef to the message's metadata.
	Attach(ctx context.Context, id uuid.UUID, cmd AttachCommand) (*Message, error)
	Storage() storage.System
}

// AttachCommand carries one attachment upload.
type AttachCommand struct {
	Filename    string
	ContentType string
	Data        []byte
}
