package threads

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/relay/internal/classify"
	"github.com/JaimeStill/relay/internal/events"
	"github.com/JaimeStill/relay/pkg/pagination"
	"github.com/JaimeStill/relay/pkg/query"
	"github.com/JaimeStill/relay/pkg/repository"
)

const returning = `id, external_id, subject, channel, state, last_intent, intents,
		  human_handling, archived, version, created_at, updated_at`

type repo struct {
	db         *sql.DB
	events     events.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a thread repository implementing the System interface.
func New(
	db *sql.DB,
	eventSys events.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		events:     eventSys,
		logger:     logger.With("system", "threads"),
		pagination: pagination,
	}
}

func (r *repo) Handler(staleAge time.Duration) *Handler {
	return NewHandler(r, r.logger, r.pagination, staleAge)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Thread], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Subject", "LastIntent")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count threads: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanThread)
	if err != nil {
		return nil, fmt.Errorf("query threads: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Thread, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	t, err := repository.QueryOne(ctx, r.db, q, args, scanThread)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &t, nil
}

func (r *repo) Resolve(ctx context.Context, cmd ResolveCommand) (*Thread, bool, error) {
	if cmd.ExternalID != nil {
		archived := false
		q, args := query.
			NewBuilder(projection).
			WhereEquals("Channel", &cmd.Channel).
			WhereEquals("ExternalID", cmd.ExternalID).
			WhereEquals("Archived", &archived).
			BuildSingleOrNull()

		t, err := repository.QueryOne(ctx, r.db, q, args, scanThread)
		if err == nil {
			return &t, false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, fmt.Errorf("resolve thread: %w", err)
		}
	}

	t, err := r.create(ctx, cmd)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func (r *repo) create(ctx context.Context, cmd ResolveCommand) (*Thread, error) {
	q := fmt.Sprintf(`
		INSERT INTO threads(id, external_id, subject, channel, state, last_intent, intents)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, returning)

	insertArgs := []any{
		uuid.New(),
		cmd.ExternalID,
		cmd.Subject,
		cmd.Channel,
		StateNew,
		classify.IntentUnknown,
		[]byte("[]"),
	}

	t, err := repository.QueryOne(ctx, r.db, q, insertArgs, scanThread)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if _, err := r.events.Record(ctx, t.ID, events.ThreadCreated{
		Channel:    t.Channel,
		ExternalID: t.ExternalID,
		Subject:    t.Subject,
	}); err != nil {
		r.logger.Warn("record thread_created failed", "thread_id", t.ID, "error", err)
	}

	r.logger.Info("thread created",
		"id", t.ID,
		"channel", t.Channel,
		"subject", t.Subject,
	)
	return &t, nil
}

func (r *repo) UpdateState(ctx context.Context, id uuid.UUID, cmd StateCommand) (*Thread, error) {
	if !cmd.State.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, cmd.State)
	}

	q := fmt.Sprintf(`
		UPDATE threads
		SET state = $1, last_intent = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4
		RETURNING %s`, returning)

	t, err := repository.QueryOne(ctx, r.db, q, []any{cmd.State, cmd.LastIntent, id, cmd.Version}, scanThread)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, findErr := r.Find(ctx, id); findErr != nil {
				return nil, findErr
			}
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("update thread state: %w", err)
	}
	return &t, nil
}

func (r *repo) AddIntents(ctx context.Context, id uuid.UUID, add []string, removeUnknown bool) (*Thread, error) {
	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Thread, error) {
		q, args := query.NewBuilder(projection).BuildSingle("ID", id)
		t, err := repository.QueryOne(ctx, tx, q+" FOR UPDATE", args, scanThread)
		if err != nil {
			return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
		}

		merged := t.Intents
		if removeUnknown {
			merged = slices.DeleteFunc(merged, func(s string) bool {
				return s == classify.IntentUnknown
			})
		}
		for _, intent := range add {
			if !slices.Contains(merged, intent) {
				merged = append(merged, intent)
			}
		}

		raw, err := json.Marshal(merged)
		if err != nil {
			return nil, fmt.Errorf("marshal intents: %w", err)
		}

		updateQ := fmt.Sprintf(`
			UPDATE threads SET intents = $1, updated_at = NOW()
			WHERE id = $2
			RETURNING %s`, returning)

		updated, err := repository.QueryOne(ctx, tx, updateQ, []any{raw, id}, scanThread)
		if err != nil {
			return nil, fmt.Errorf("update thread intents: %w", err)
		}
		return &updated, nil
	})
}

func (r *repo) SetHumanHandling(ctx context.Context, id uuid.UUID, handling bool) (*Thread, error) {
	q := fmt.Sprintf(`
		UPDATE threads SET human_handling = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING %s`, returning)

	t, err := repository.QueryOne(ctx, r.db, q, []any{handling, id}, scanThread)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}

	r.logger.Info("human handling updated", "id", id, "handling", handling)
	return &t, nil
}

func (r *repo) ManualTransition(ctx context.Context, id uuid.UUID, cmd TransitionCommand) (*Thread, error) {
	if !cmd.To.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, cmd.To)
	}

	current, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if !IsValidManualTransition(current.State, cmd.To) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.State, cmd.To)
	}

	t, err := r.UpdateState(ctx, id, StateCommand{
		State:      cmd.To,
		LastIntent: current.LastIntent,
		Version:    current.Version,
	})
	if err != nil {
		return nil, err
	}

	if _, err := r.events.Record(ctx, id, events.StateTransition{
		From:   string(current.State),
		To:     string(cmd.To),
		Reason: "manual transition",
		Manual: true,
		By:     cmd.RequestedBy,
	}); err != nil {
		r.logger.Warn("record state_transition failed", "thread_id", id, "error", err)
	}

	r.logger.Info("manual transition",
		"id", id,
		"from", current.State,
		"to", cmd.To,
		"by", cmd.RequestedBy,
	)
	return t, nil
}

func (r *repo) Archive(ctx context.Context, id uuid.UUID) (*Thread, error) {
	q := fmt.Sprintf(`
		UPDATE threads SET archived = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, returning)

	t, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanThread)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}

	r.logger.Info("thread archived", "id", id)
	return &t, nil
}

func (r *repo) Sweep(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)

	q := fmt.Sprintf(`
		UPDATE threads
		SET state = $1, version = version + 1, updated_at = NOW()
		WHERE state = $2 AND archived = FALSE AND updated_at < $3
		RETURNING %s`, returning)

	swept, err := repository.QueryMany(ctx, r.db, q, []any{StateResolved, StateAwaitingInfo, cutoff}, scanThread)
	if err != nil {
		return 0, fmt.Errorf("sweep stale threads: %w", err)
	}

	for _, t := range swept {
		if _, err := r.events.Record(ctx, t.ID, events.StaleTimeout{
			IdleFor: age.String(),
		}); err != nil {
			r.logger.Warn("record stale_timeout failed", "thread_id", t.ID, "error", err)
		}
		if _, err := r.events.Record(ctx, t.ID, events.StateTransition{
			From:   string(StateAwaitingInfo),
			To:     string(StateResolved),
			Reason: "no customer response within timeout",
		}); err != nil {
			r.logger.Warn("record state_transition failed", "thread_id", t.ID, "error", err)
		}
	}

	if len(swept) > 0 {
		r.logger.Info("stale threads resolved", "count", len(swept), "age", age)
	}
	return len(swept), nil
}
