package triage

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/relay/internal/events"
	"github.com/JaimeStill/relay/internal/messages"
	"github.com/JaimeStill/relay/internal/threads"
)

// IngestNode returns a state node that resolves the inbound message to a
// thread (creating one when no open thread matches) and appends the message
// row. From here on the message exists regardless of how triage concludes.
func IngestNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		ts, err := extractTriageState(s)
		if err != nil {
			return s, fmt.Errorf("ingest: %w", err)
		}

		thread, created, err := rt.Threads.Resolve(ctx, threads.ResolveCommand{
			Channel:    ts.Inbound.Channel,
			ExternalID: ts.Inbound.ExternalID,
			Subject:    ts.Inbound.Subject,
		})
		if err != nil {
			return s, fmt.Errorf("%w: resolve thread: %w", ErrIngestFailed, err)
		}

		msg, err := rt.Messages.Create(ctx, messages.CreateCommand{
			ThreadID:    thread.ID,
			Direction:   messages.DirectionInbound,
			Body:        ts.Inbound.Body,
			From:        optional(ts.Inbound.From),
			To:          optional(ts.Inbound.To),
			Metadata:    ts.Inbound.Metadata,
			MessageDate: ts.Inbound.ReceivedAt,
		})
		if err != nil {
			return s, fmt.Errorf("%w: create message: %w", ErrIngestFailed, err)
		}

		if _, err := rt.Events.Record(ctx, thread.ID, events.MessageReceived{
			MessageID: msg.ID.String(),
			Channel:   ts.Inbound.Channel,
			From:      ts.Inbound.From,
		}); err != nil {
			rt.Logger.Warn("record message_received failed", "thread_id", thread.ID, "error", err)
		}

		rt.Logger.InfoContext(
			ctx, "message ingested",
			"thread_id", thread.ID,
			"message_id", msg.ID,
			"thread_created", created,
		)

		ts.Thread = thread
		ts.Message = msg
		ts.PreviousState = thread.State
		if created {
			ts = ts.addTrace("ingest: created thread")
		} else {
			ts = ts.addTrace("ingest: resolved existing thread")
		}

		s = s.Set(KeyTriageState, ts)
		return s, nil
	})
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
