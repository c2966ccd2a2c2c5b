package triage

import (
	"context"
	"errors"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/relay/internal/classify"
	"github.com/JaimeStill/relay/internal/events"
	"github.com/JaimeStill/relay/internal/messages"
	"github.com/JaimeStill/relay/internal/threads"
)

// stateWriteAttempts bounds optimistic concurrency retries on the final
// state write. Each retry re-reads the thread and re-evaluates the rules
// against the fresh state.
const stateWriteAttempts = 3

// FinalizeNode returns a state node that commits the pipeline's decision:
// merges detected intents into the thread, advances the state machine under
// optimistic concurrency, stores the draft row, and records the audit trail
// ending with the decision trace.
func FinalizeNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		ts, err := extractTriageState(s)
		if err != nil {
			return s, fmt.Errorf("finalize: %w", err)
		}

		if ts.Action == "" {
			ts.Action = threads.ActionNoReply
		}

		ts, err = applyIntents(ctx, rt, ts)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrFinalizeFailed, err)
		}

		ts, err = applyState(ctx, rt, ts)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrFinalizeFailed, err)
		}

		ts, err = storeDraft(ctx, rt, ts)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrFinalizeFailed, err)
		}

		recordAudit(ctx, rt, ts)
		ts.Summary = summarize(ts)

		rt.Logger.InfoContext(
			ctx, "triage complete",
			"thread_id", ts.Thread.ID,
			"message_id", ts.Message.ID,
			"action", ts.Action,
			"state", ts.Thread.State,
		)

		s = s.Set(KeyTriageState, ts)
		return s, nil
	})
}

func applyIntents(ctx context.Context, rt *Runtime, ts TriageState) (TriageState, error) {
	if ts.Result == nil {
		return ts, nil
	}

	if len(ts.Integration.Add) > 0 || ts.Integration.RemoveUnknown {
		updated, err := rt.Threads.AddIntents(ctx, ts.Thread.ID, ts.Integration.Add, ts.Integration.RemoveUnknown)
		if err != nil {
			return ts, fmt.Errorf("merge intents: %w", err)
		}
		ts.Thread = updated
	}

	if _, err := rt.Events.Record(ctx, ts.Thread.ID, events.IntentClassified{
		Primary:    ts.Result.PrimaryIntent,
		Confidence: ts.Result.Confidence,
		Added:      ts.Integration.Add,
		Overridden: ts.Integration.SpamOverridden,
	}); err != nil {
		rt.Logger.Warn("record intent_classified failed", "thread_id", ts.Thread.ID, "error", err)
	}

	if ts.Integration.RemoveUnknown {
		if _, err := rt.Events.Record(ctx, ts.Thread.ID, events.IntentClarified{
			Previous: classify.IntentUnknown,
			Detected: ts.Result.PrimaryIntent,
		}); err != nil {
			rt.Logger.Warn("record intent_clarified failed", "thread_id", ts.Thread.ID, "error", err)
		}
	}

	return ts, nil
}

func applyState(ctx context.Context, rt *Runtime, ts TriageState) (TriageState, error) {
	// a human owns the thread: observe only, never touch state
	if ts.Filtered && ts.Result == nil {
		return ts, nil
	}

	intent := ts.Result.PrimaryIntent
	policyBlocked := ts.Gate != nil && !ts.Gate.OK
	missingRequired := ts.Action == threads.ActionAskClarifying && ts.Result.MissingRequired()

	current := ts.Thread
	for attempt := 1; attempt <= stateWriteAttempts; attempt++ {
		next := threads.NextState(current.State, ts.Action, intent, policyBlocked, missingRequired)
		reason := threads.TransitionReason(current.State, ts.Action, intent, policyBlocked, missingRequired)

		if next == current.State {
			ts.Thread = current
			ts.TransitionReason = reason
			return ts, nil
		}

		updated, err := rt.Threads.UpdateState(ctx, current.ID, threads.StateCommand{
			State:      next,
			LastIntent: intent,
			Version:    current.Version,
		})
		if err == nil {
			ts.PreviousState = current.State
			ts.Thread = updated
			ts.TransitionReason = reason

			if _, err := rt.Events.Record(ctx, updated.ID, events.StateTransition{
				From:   string(current.State),
				To:     string(next),
				Reason: reason,
			}); err != nil {
				rt.Logger.Warn("record state_transition failed", "thread_id", updated.ID, "error", err)
			}
			return ts, nil
		}

		if !errors.Is(err, threads.ErrVersionConflict) {
			return ts, fmt.Errorf("write thread state: %w", err)
		}

		fresh, findErr := rt.Threads.Find(ctx, current.ID)
		if findErr != nil {
			return ts, fmt.Errorf("reload thread after conflict: %w", findErr)
		}
		current = fresh
	}

	return ts, fmt.Errorf("write thread state: %w", threads.ErrVersionConflict)
}

func storeDraft(ctx context.Context, rt *Runtime, ts TriageState) (TriageState, error) {
	if ts.Draft == "" {
		return ts, nil
	}

	role := messages.RoleDraft
	if !ts.DraftBlocked &&
		(ts.Action == threads.ActionSendMacro || ts.Action == threads.ActionAskClarifying) {
		role = messages.RoleSent
	}

	metadata := messages.Metadata{}
	if ts.Action == threads.ActionAskClarifying {
		metadata = clarifyMetadata(clarifyCategory(ts.Result.MissingInfo))
	}

	if _, err := rt.Messages.Create(ctx, messages.CreateCommand{
		ThreadID:  ts.Thread.ID,
		Direction: messages.DirectionOutbound,
		Role:      &role,
		Body:      ts.Draft,
		Blocked:   ts.DraftBlocked,
		Metadata:  metadata,
	}); err != nil {
		return ts, fmt.Errorf("store draft: %w", err)
	}

	return ts, nil
}

func recordAudit(ctx context.Context, rt *Runtime, ts TriageState) {
	record := func(payload events.Payload) {
		if _, err := rt.Events.Record(ctx, ts.Thread.ID, payload); err != nil {
			rt.Logger.Warn("record audit event failed",
				"thread_id", ts.Thread.ID,
				"type", payload.EventType(),
				"error", err,
			)
		}
	}

	if ts.Gate != nil && !ts.Gate.OK {
		record(events.PolicyBlocked{
			Violations: ts.Gate.Violations,
			Draft:      ts.Draft,
		})
	}

	if len(ts.Promises) > 0 {
		record(events.PromisesDetected{Promises: ts.Promises})
	}

	trace := events.DecisionTrace{
		MessageID:        ts.Message.ID.String(),
		Action:           string(ts.Action),
		PreviousState:    string(ts.PreviousState),
		State:            string(ts.Thread.State),
		LoopCategory:     ts.LoopCategory,
		DraftSource:      ts.DraftSource,
		Trace:            ts.Trace,
		TransitionReason: ts.TransitionReason,
	}
	if ts.Result != nil {
		trace.Intent = ts.Result.PrimaryIntent
		trace.Confidence = ts.Result.Confidence
	}
	if ts.Gate != nil {
		trace.PolicyBlocked = !ts.Gate.OK
		trace.Violations = ts.Gate.Violations
	}
	if ts.VerifyResult != nil {
		trace.VerifyStatus = string(ts.VerifyResult.Status)
	}
	record(trace)
}

func summarize(ts TriageState) string {
	intent := "unclassified"
	if ts.Result != nil {
		intent = fmt.Sprintf("%s (%.2f)", ts.Result.PrimaryIntent, ts.Result.Confidence)
	}

	if ts.PreviousState != "" && ts.PreviousState != ts.Thread.State {
		return fmt.Sprintf("%s: %s, %s -> %s",
			ts.Action, intent, ts.PreviousState, ts.Thread.State)
	}
	return fmt.Sprintf("%s: %s, state %s", ts.Action, intent, ts.Thread.State)
}
