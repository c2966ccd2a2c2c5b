package macros

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/relay/internal/classify"
	"github.com/JaimeStill/relay/pkg/pagination"
	"github.com/JaimeStill/relay/pkg/query"
	"github.com/JaimeStill/relay/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a macro repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "macros"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Macro], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Body")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count macros: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanMacro)
	if err != nil {
		return nil, fmt.Errorf("query macros: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Macro, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	m, err := repository.QueryOne(ctx, r.db, q, args, scanMacro)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &m, nil
}

func (r *repo) FindByIntent(ctx context.Context, intent string) (*Macro, error) {
	active := true
	q, args := query.
		NewBuilder(projection).
		WhereEquals("Intent", &intent).
		WhereEquals("Active", &active).
		BuildSingleOrNull()

	m, err := repository.QueryOne(ctx, r.db, q, args, scanMacro)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &m, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Macro, error) {
	if !classify.Known(cmd.Intent) {
		return nil, ErrInvalidIntent
	}

	q := `
		INSERT INTO macros(id, name, intent, body, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, intent, body, description, active`

	m, err := repository.QueryOne(
		ctx, r.db, q,
		[]any{uuid.New(), cmd.Name, cmd.Intent, cmd.Body, cmd.Description},
		scanMacro,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("macro created", "id", m.ID, "name", m.Name, "intent", m.Intent)
	return &m, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Macro, error) {
	if !classify.Known(cmd.Intent) {
		return nil, ErrInvalidIntent
	}

	q := `
		UPDATE macros
		SET name = $1, intent = $2, body = $3, description = $4, active = $5
		WHERE id = $6
		RETURNING id, name, intent, body, description, active`

	m, err := repository.QueryOne(
		ctx, r.db, q,
		[]any{cmd.Name, cmd.Intent, cmd.Body, cmd.Description, cmd.Active, id},
		scanMacro,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("macro updated", "id", m.ID, "name", m.Name)
	return &m, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := repository.ExecExpectOne(
		ctx, r.db,
		"DELETE FROM macros WHERE id = $1",
		id,
	); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("macro deleted", "id", id)
	return nil
}
