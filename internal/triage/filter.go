package triage

import (
	"context"
	"fmt"
	"strings"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/relay/internal/classify"
	"github.com/JaimeStill/relay/internal/events"
	"github.com/JaimeStill/relay/internal/threads"
)

// FilterNode returns a state node that short-circuits messages the pipeline
// must not act on: machine-generated mail matched by the configured sender
// and subject patterns, and threads owned by a human. The automated check
// runs first: an automated notification resolves the thread even when a
// human owns it, since there is no customer waiting for a reply. Filtered
// automated mail is still labeled so the thread record shows why it
// resolved.
func FilterNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		ts, err := extractTriageState(s)
		if err != nil {
			return s, fmt.Errorf("filter: %w", err)
		}

		if reason, ok := matchAutomated(ts.Inbound, rt.Config.AutomatedSenders, rt.Config.AutomatedSubjects); ok {
			ts.Filtered = true
			ts.FilterReason = reason
			ts.Action = threads.ActionNoReply
			ts.Result = classify.Finalize([]classify.IntentScore{{
				Slug:       classify.IntentAutomatedEmail,
				Confidence: 1.0,
				Reasoning:  reason,
			}})
			ts.Integration = classify.Integrate(
				ts.Result, ts.Thread.Intents,
				rt.Config.ConfidenceFloor,
				internalSender(ts.Inbound.From, rt.Config.InternalDomains),
			)
			ts = ts.addTrace("filter: " + reason)

			s = s.Set(KeyTriageState, ts)
			return s, nil
		}

		if ts.Thread.HumanHandling {
			if _, err := rt.Events.Record(ctx, ts.Thread.ID, events.Observation{
				Note: "message received while a human owns the thread; no automated processing",
			}); err != nil {
				rt.Logger.Warn("record observation failed", "thread_id", ts.Thread.ID, "error", err)
			}

			ts.Filtered = true
			ts.FilterReason = "human handling"
			ts.Action = threads.ActionNoReply
			ts = ts.addTrace("filter: human handling, standing down")

			s = s.Set(KeyTriageState, ts)
			return s, nil
		}

		ts = ts.addTrace("filter: passed")
		s = s.Set(KeyTriageState, ts)
		return s, nil
	})
}

func matchAutomated(in Inbound, senders, subjects []string) (string, bool) {
	from := strings.ToLower(in.From)
	for _, pattern := range senders {
		if pattern != "" && strings.Contains(from, strings.ToLower(pattern)) {
			return fmt.Sprintf("automated sender pattern %q", pattern), true
		}
	}

	subject := strings.ToLower(in.Subject)
	for _, pattern := range subjects {
		if pattern != "" && strings.Contains(subject, strings.ToLower(pattern)) {
			return fmt.Sprintf("automated subject pattern %q", pattern), true
		}
	}

	return "", false
}

func internalSender(from string, domains []string) bool {
	at := strings.LastIndex(from, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(from[at+1:])
	for _, d := range domains {
		if strings.EqualFold(strings.TrimPrefix(d, "@"), domain) {
			return true
		}
	}
	return false
}
