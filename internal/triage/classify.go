package triage

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/relay/internal/classify"
)

// classifyContextLimit caps how many prior messages feed the classifier.
const classifyContextLimit = 3

// ClassifyNode returns a state node that classifies the inbound message
// against the intent taxonomy, using recent thread context. A classifier
// failure degrades to the unknown fallback instead of aborting: the message
// is already stored, and unknown routes it to a human.
func ClassifyNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		ts, err := extractTriageState(s)
		if err != nil {
			return s, fmt.Errorf("classify: %w", err)
		}

		history, err := recentBodies(ctx, rt, ts)
		if err != nil {
			return s, fmt.Errorf("%w: %w", ErrClassifyFailed, err)
		}

		result, err := rt.Classifier.Classify(ctx, ts.Inbound.Subject, ts.Inbound.Body, history)
		if err != nil {
			rt.Logger.WarnContext(
				ctx, "classification degraded to unknown",
				"thread_id", ts.Thread.ID,
				"error", err,
			)
			result = classify.Unknown("classifier unavailable: " + err.Error())
			ts = ts.addTrace("classify: degraded to unknown")
		}

		ts.Result = result
		ts.Integration = classify.Integrate(
			result, ts.Thread.Intents,
			rt.Config.ConfidenceFloor,
			internalSender(ts.Inbound.From, rt.Config.InternalDomains),
		)
		ts = ts.addTrace(fmt.Sprintf(
			"classify: %s (%.2f)", result.PrimaryIntent, result.Confidence,
		))

		s = s.Set(KeyTriageState, ts)
		return s, nil
	})
}

func recentBodies(ctx context.Context, rt *Runtime, ts TriageState) ([]string, error) {
	msgs, err := rt.Messages.RecentContext(ctx, ts.Thread.ID, ts.Message.ID, classifyContextLimit)
	if err != nil {
		return nil, fmt.Errorf("load message context: %w", err)
	}

	bodies := make([]string, 0, len(msgs))
	for _, m := range msgs {
		bodies = append(bodies, m.Body)
	}
	return bodies, nil
}
