package triage

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/relay/internal/threads"
	"github.com/JaimeStill/relay/internal/verify"
)

// VerifyNode returns a state node that checks the sender's claimed identity
// and order against the verification authority. Verified data clears the
// matching missing-info fields; a flagged result or an unreachable authority
// escalates rather than guessing.
func VerifyNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		ts, err := extractTriageState(s)
		if err != nil {
			return s, fmt.Errorf("verify: %w", err)
		}

		result, err := rt.Verifier.Verify(ctx, ts.Thread.ID, ts.Inbound.From, ts.Inbound.Body)
		if err != nil {
			rt.Logger.WarnContext(
				ctx, "verification unavailable, escalating",
				"thread_id", ts.Thread.ID,
				"error", err,
			)

			ts.Action = threads.ActionEscalateWithDraft
			ts.Draft = escalationNotice(rt.Config.ApprovedSignatures)
			ts.DraftSource = SourceNotice
			ts = ts.addTrace("verify: authority unreachable, escalating")

			s = s.Set(KeyTriageState, ts)
			return s, nil
		}

		ts.VerifyResult = result
		ts.Result.ClearMissing(verify.SatisfiedFields(result))

		switch result.Status {
		case verify.StatusFlagged:
			ts.Action = threads.ActionEscalateWithDraft
			ts.Draft = escalationNotice(rt.Config.ApprovedSignatures)
			ts.DraftSource = SourceNotice
			ts = ts.addTrace("verify: flagged " + fmt.Sprint(result.Flags))
		case verify.StatusNotFound:
			// nothing cleared; the respond node will ask for order details
			ts = ts.addTrace("verify: no matching order")
		default:
			ts = ts.addTrace("verify: " + string(result.Status))
		}

		s = s.Set(KeyTriageState, ts)
		return s, nil
	})
}
