package triage

import (
	"context"
	"fmt"
	"strings"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/relay/internal/policy"
	"github.com/JaimeStill/relay/internal/threads"
)

// GateNode returns a state node that runs every draft through the policy
// gate and the promised-action auditor. A rejected draft is replaced with
// the violated rules plus the original text, kept as a blocked record for
// human review, and the action becomes an escalation. Every escalation
// draft leaves here carrying the neutral escalation notice.
func GateNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		ts, err := extractTriageState(s)
		if err != nil {
			return s, fmt.Errorf("gate: %w", err)
		}

		result := rt.Gate.Check(ts.Draft)
		ts.Gate = &result

		// audit the text that was actually produced, before any rewrite
		ts.Promises = policy.DetectPromises(ts.Draft)

		if !result.OK {
			rt.Logger.WarnContext(
				ctx, "draft blocked by policy gate",
				"thread_id", ts.Thread.ID,
				"violations", result.Violations,
			)

			ts.DraftBlocked = true
			ts.Action = threads.ActionEscalateWithDraft
			ts.Draft = blockedDraft(result.Violations, ts.Draft)
			ts = ts.addTrace(fmt.Sprintf("gate: blocked, %d violation(s)", len(result.Violations)))
		} else {
			ts = ts.addTrace("gate: passed")
		}

		if ts.Action == threads.ActionEscalateWithDraft {
			ts.Draft = withEscalationNotice(ts.Draft)
		}

		if len(ts.Promises) > 0 {
			ts = ts.addTrace(fmt.Sprintf("gate: %d promise(s) cataloged", len(ts.Promises)))
		}

		s = s.Set(KeyTriageState, ts)
		return s, nil
	})
}

// blockedDraft replaces a rejected draft with the violated rules and the
// original text, for human review. Nothing in it is ever sent.
func blockedDraft(violations []string, original string) string {
	var sb strings.Builder
	sb.WriteString("Automatic reply withheld: the draft below violates outbound policy.\n\nViolations:\n")
	for _, v := range violations {
		fmt.Fprintf(&sb, "- %s\n", v)
	}
	sb.WriteString("\nOriginal draft:\n")
	sb.WriteString(original)
	return sb.String()
}
