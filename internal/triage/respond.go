package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/relay/internal/classify"
	"github.com/JaimeStill/relay/internal/macros"
	"github.com/JaimeStill/relay/internal/threads"
)

// maxClarifyingQuestions caps how many pieces of information one reply may
// request from the customer.
const maxClarifyingQuestions = 3

// RespondNode returns a state node that selects the terminal action and
// produces the draft, when one is warranted. Generated (non-macro) drafts
// are never treated as sendable: they always ride along with an escalation.
func RespondNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		ts, err := extractTriageState(s)
		if err != nil {
			return s, fmt.Errorf("respond: %w", err)
		}

		// an upstream node may have already decided (verify failures, loops)
		if ts.Action != "" {
			s = s.Set(KeyTriageState, ts)
			return s, nil
		}

		result := ts.Result
		primary := result.PrimaryIntent

		switch {
		case result.AutoEscalate:
			ts = escalate(ctx, rt, ts, "high-risk intent")

		case classify.Resolves(primary):
			ts.Action = threads.ActionNoReply
			ts = ts.addTrace("respond: no reply, " + primary)

		case result.MissingRequired():
			ts = clarify(ctx, rt, ts)

		case primary == classify.IntentUnknown:
			ts = escalate(ctx, rt, ts, "unclassifiable message")

		default:
			ts = macroOrEscalate(ctx, rt, ts)
		}

		s = s.Set(KeyTriageState, ts)
		return s, nil
	})
}

// clarify asks for the missing required information, preferring an approved
// macro for the intent over a synthesized question list.
func clarify(ctx context.Context, rt *Runtime, ts TriageState) TriageState {
	ts.Action = threads.ActionAskClarifying

	m, err := rt.Macros.FindByIntent(ctx, ts.Result.PrimaryIntent)
	if err == nil {
		ts.Draft = m.Body
		ts.DraftSource = SourceMacro
		return ts.addTrace("respond: clarifying with macro " + m.Name)
	}

	if !errors.Is(err, macros.ErrNotFound) {
		rt.Logger.WarnContext(
			ctx, "macro lookup failed",
			"thread_id", ts.Thread.ID,
			"intent", ts.Result.PrimaryIntent,
			"error", err,
		)
	}

	ts.Draft = composeQuestions(ts.Result.MissingInfo, rt.Config.ApprovedSignatures)
	ts.DraftSource = SourceQuestions
	return ts.addTrace("respond: asking for " + clarifyCategory(ts.Result.MissingInfo))
}

// macroOrEscalate answers from the approved macro library when one covers
// the intent; anything model-generated goes to a human instead of the wire.
func macroOrEscalate(ctx context.Context, rt *Runtime, ts TriageState) TriageState {
	m, err := rt.Macros.FindByIntent(ctx, ts.Result.PrimaryIntent)
	if err == nil {
		ts.Action = threads.ActionSendMacro
		ts.Draft = m.Body
		ts.DraftSource = SourceMacro
		return ts.addTrace("respond: macro " + m.Name)
	}

	if !errors.Is(err, macros.ErrNotFound) {
		rt.Logger.WarnContext(
			ctx, "macro lookup failed",
			"thread_id", ts.Thread.ID,
			"intent", ts.Result.PrimaryIntent,
			"error", err,
		)
	}

	return escalate(ctx, rt, ts, "no approved macro for "+ts.Result.PrimaryIntent)
}

// escalate routes the message to a human, attaching a generated draft when
// the generation collaborator can produce one and the neutral notice when
// it cannot.
func escalate(ctx context.Context, rt *Runtime, ts TriageState, why string) TriageState {
	ts.Action = threads.ActionEscalateWithDraft
	ts = ts.addTrace("respond: escalating, " + why)

	draft, err := generateDraft(ctx, rt, ts)
	if err != nil {
		rt.Logger.WarnContext(
			ctx, "draft generation failed, using notice",
			"thread_id", ts.Thread.ID,
			"error", err,
		)
		ts.Draft = escalationNotice(rt.Config.ApprovedSignatures)
		ts.DraftSource = SourceNotice
		return ts
	}

	ts.Draft = draft
	ts.DraftSource = SourceGenerated
	return ts
}

// DraftGenerator is the text-generation collaborator producing escalation
// draft bodies. Implementations return an error rather than empty text; the
// pipeline falls back to the static notice.
type DraftGenerator interface {
	Generate(ctx context.Context, ts TriageState) (string, error)
}

func generateDraft(ctx context.Context, rt *Runtime, ts TriageState) (string, error) {
	if rt.Generator == nil {
		return "", fmt.Errorf("draft generator not configured")
	}
	return rt.Generator.Generate(ctx, ts)
}

type agentGenerator struct {
	cfg        gaconfig.AgentConfig
	signatures []string
}

// NewAgentGenerator creates the model-backed DraftGenerator.
func NewAgentGenerator(cfg gaconfig.AgentConfig, signatures []string) DraftGenerator {
	return &agentGenerator{cfg: cfg, signatures: signatures}
}

func (g *agentGenerator) Generate(ctx context.Context, ts TriageState) (string, error) {
	a, err := agent.New(&g.cfg)
	if err != nil {
		return "", fmt.Errorf("create agent: %w", err)
	}

	resp, err := a.Chat(ctx, composeDraftPrompt(ts, g.signatures))
	if err != nil {
		return "", fmt.Errorf("draft call: %w", err)
	}

	draft := strings.TrimSpace(resp.Content())
	if draft == "" {
		return "", fmt.Errorf("empty draft")
	}
	return draft, nil
}

func composeDraftPrompt(ts TriageState, signatures []string) string {
	var sb strings.Builder
	sb.WriteString("Draft a reply to the customer support message below. ")
	sb.WriteString("The reply is reviewed by a human before anything is sent.\n")
	sb.WriteString("Never guarantee or promise refunds, replacements, or delivery dates.\n")
	if len(signatures) > 0 {
		fmt.Fprintf(&sb, "End the reply with exactly this signature: %s\n", signatures[0])
	}

	fmt.Fprintf(&sb, "\nIntent: %s\n", ts.Result.PrimaryIntent)
	fmt.Fprintf(&sb, "Subject: %s\n\nMessage:\n%s\n", ts.Inbound.Subject, ts.Inbound.Body)
	return sb.String()
}

// composeQuestions builds a clarifying reply asking for at most
// maxClarifyingQuestions fields, required fields first.
func composeQuestions(missing []classify.MissingInfoField, signatures []string) string {
	var fields []classify.MissingInfoField
	for _, f := range missing {
		if f.Required {
			fields = append(fields, f)
		}
	}
	for _, f := range missing {
		if !f.Required {
			fields = append(fields, f)
		}
	}
	if len(fields) > maxClarifyingQuestions {
		fields = fields[:maxClarifyingQuestions]
	}

	var sb strings.Builder
	sb.WriteString("Thanks for reaching out. To help with your request, could you share:\n")
	for _, f := range fields {
		fmt.Fprintf(&sb, "- %s\n", f.Label)
	}
	sb.WriteString("\nOnce we have this, we can pick up right where we left off.\n")
	appendSignature(&sb, signatures)
	return sb.String()
}

// escalationNoticeText is the neutral notice every escalation draft carries.
// It never names the escalation target.
const escalationNoticeText = "Your request has been passed to a specialist on our side who will follow up with you shortly."

// escalationNotice is the standalone customer-facing fallback draft for an
// escalation with no generated text.
func escalationNotice(signatures []string) string {
	var sb strings.Builder
	sb.WriteString("Thanks for reaching out. " + escalationNoticeText + "\n")
	appendSignature(&sb, signatures)
	return sb.String()
}

// withEscalationNotice rewrites a draft to carry the neutral escalation
// notice, once.
func withEscalationNotice(draft string) string {
	if strings.Contains(draft, escalationNoticeText) {
		return draft
	}
	return escalationNoticeText + "\n\n" + draft
}

func appendSignature(sb *strings.Builder, signatures []string) {
	if len(signatures) > 0 {
		fmt.Fprintf(sb, "\n%s", signatures[0])
	}
}
