package messages

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/JaimeStill/relay/pkg/pagination"
	"github.com/JaimeStill/relay/pkg/query"
	"github.com/JaimeStill/relay/pkg/repository"
	"github.com/JaimeStill/relay/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a message repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "messages"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) Storage() storage.System {
	return r.storage
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Message], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Body", "From")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Message, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	m, err := repository.QueryOne(ctx, r.db, q, args, scanMessage)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &m, nil
}

func (r *repo) ListByThread(ctx context.Context, threadID uuid.UUID) ([]Message, error) {
	q, args := query.
		NewBuilder(projection, query.SortField{Field: "MessageDate"}).
		WhereEquals("ThreadID", threadID).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("query thread messages: %w", err)
	}
	return items, nil
}

func (r *repo) Outbound(ctx context.Context, threadID uuid.UUID) ([]Message, error) {
	direction := DirectionOutbound
	q, args := query.
		NewBuilder(projection, query.SortField{Field: "MessageDate"}).
		WhereEquals("ThreadID", threadID).
		WhereEquals("Direction", &direction).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("query outbound messages: %w", err)
	}
	return items, nil
}

func (r *repo) RecentContext(ctx context.Context, threadID, before uuid.UUID, limit int) ([]Message, error) {
	q := `
		SELECT m.id, m.thread_id, m.direction, m.role, m.body, m.from_identifier,
			   m.to_identifier, m.blocked, m.metadata, m.message_date, m.created_at
		FROM public.messages m
		WHERE m.thread_id = $1 AND m.id <> $2
		ORDER BY m.message_date DESC
		LIMIT $3`

	items, err := repository.QueryMany(ctx, r.db, q, []any{threadID, before, limit}, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("query message context: %w", err)
	}

	// reverse to oldest-first for prompt assembly
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Message, error) {
	var metadata []byte
	if !cmd.Metadata.Empty() {
		raw, err := json.Marshal(cmd.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal message metadata: %w", err)
		}
		metadata = raw
	}

	q := `
		INSERT INTO messages(id, thread_id, direction, role, body, from_identifier,
							 to_identifier, blocked, metadata, message_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))
		RETURNING id, thread_id, direction, role, body, from_identifier,
				  to_identifier, blocked, metadata, message_date, created_at`

	insertArgs := []any{
		uuid.New(),
		cmd.ThreadID,
		cmd.Direction,
		cmd.Role,
		cmd.Body,
		cmd.From,
		cmd.To,
		cmd.Blocked,
		metadata,
		cmd.MessageDate,
	}

	m, err := repository.QueryOne(ctx, r.db, q, insertArgs, scanMessage)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrThreadMissing)
	}

	r.logger.Info("message created",
		"id", m.ID,
		"thread_id", m.ThreadID,
		"direction", m.Direction,
		"blocked", m.Blocked,
	)
	return &m, nil
}

func (r *repo) Attach(ctx context.Context, id uuid.UUID, cmd AttachCommand) (*Message, error) {
	m, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	key := buildAttachmentKey(id, sanitizeFilename(cmd.Filename))
	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload attachment blob: %w", err)
	}

	meta := DecodeMetadata(m.Metadata)
	meta.Attachments = append(meta.Attachments, AttachmentRef{
		StorageKey:  key,
		Filename:    cmd.Filename,
		ContentType: cmd.ContentType,
		SizeBytes:   int64(len(cmd.Data)),
	})

	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal attachment metadata: %w", err)
	}

	updateQ := `
		UPDATE messages SET metadata = $1 WHERE id = $2
		RETURNING id, thread_id, direction, role, body, from_identifier,
				  to_identifier, blocked, metadata, message_date, created_at`

	updated, err := repository.QueryOne(ctx, r.db, updateQ, []any{raw, id}, scanMessage)
	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}

	r.logger.Info("attachment stored",
		"message_id", id,
		"key", key,
		"size_bytes", len(cmd.Data),
	)
	return &updated, nil
}

func buildAttachmentKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("attachments/%s/%s", id, filename)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" {
		name = "attachment"
	}
	return url.PathEscape(name)
}
