package triage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/relay/internal/classify"
	"github.com/JaimeStill/relay/internal/macros"
	"github.com/JaimeStill/relay/internal/threads"
)

func TestComposeQuestionsRequiredFirstAndCapped(t *testing.T) {
	missing := []classify.MissingInfoField{
		{ID: "issue_photo", Label: "Photo of the issue", Required: false},
		{ID: "order_number", Label: "Order number", Required: true},
		{ID: "order_email", Label: "Email on the order", Required: true},
		{ID: "error_message", Label: "Exact error message", Required: false},
	}

	draft := composeQuestions(missing, []string{"The Relay Team"})

	orderPos := strings.Index(draft, "Order number")
	emailPos := strings.Index(draft, "Email on the order")
	photoPos := strings.Index(draft, "Photo of the issue")
	if orderPos < 0 || emailPos < 0 || photoPos < 0 {
		t.Fatalf("draft missing expected fields:\n%s", draft)
	}
	if orderPos > photoPos || emailPos > photoPos {
		t.Error("required fields should be asked before optional ones")
	}
	if strings.Contains(draft, "Exact error message") {
		t.Errorf("more than %d questions asked:\n%s", maxClarifyingQuestions, draft)
	}
	if !strings.HasSuffix(strings.TrimSpace(draft), "The Relay Team") {
		t.Errorf("draft should end with the approved signature:\n%s", draft)
	}
}

func TestEscalationNotice(t *testing.T) {
	notice := escalationNotice([]string{"The Relay Team"})

	if notice == "" {
		t.Fatal("notice should not be empty")
	}
	if !strings.Contains(notice, escalationNoticeText) {
		t.Errorf("notice should carry the standard text:\n%s", notice)
	}
	if !strings.HasSuffix(strings.TrimSpace(notice), "The Relay Team") {
		t.Errorf("notice should end with the approved signature:\n%s", notice)
	}
}

func TestClarifyPrefersMacro(t *testing.T) {
	mcs := &fakeMacros{byIntent: map[string]*macros.Macro{
		classify.IntentOrderStatus: {
			ID:     uuid.New(),
			Name:   "order-lookup",
			Intent: classify.IntentOrderStatus,
			Body:   "We'd love to check on that. Could you share your order number?\n\nThe Relay Team",
			Active: true,
		},
	}}
	rt := testRuntime(nil, nil, mcs)

	ts := TriageState{
		Thread: &threads.Thread{ID: uuid.New()},
		Result: classify.Finalize([]classify.IntentScore{{Slug: classify.IntentOrderStatus, Confidence: 0.7}}),
	}

	out := clarify(context.Background(), rt, ts)

	if out.Action != threads.ActionAskClarifying {
		t.Errorf("action: got %s, want %s", out.Action, threads.ActionAskClarifying)
	}
	if out.DraftSource != SourceMacro {
		t.Errorf("draft source: got %s, want %s", out.DraftSource, SourceMacro)
	}
	if !strings.Contains(out.Draft, "We'd love to check on that.") {
		t.Errorf("draft should carry the macro body:\n%s", out.Draft)
	}
}

func TestClarifySynthesizesWithoutMacro(t *testing.T) {
	rt := testRuntime(nil, nil, nil)

	ts := TriageState{
		Thread: &threads.Thread{ID: uuid.New()},
		Result: classify.Finalize([]classify.IntentScore{{Slug: classify.IntentOrderStatus, Confidence: 0.7}}),
	}

	out := clarify(context.Background(), rt, ts)

	if out.Action != threads.ActionAskClarifying {
		t.Errorf("action: got %s, want %s", out.Action, threads.ActionAskClarifying)
	}
	if out.DraftSource != SourceQuestions {
		t.Errorf("draft source: got %s, want %s", out.DraftSource, SourceQuestions)
	}
	if out.DraftBlocked {
		t.Error("a clarifying question is sendable")
	}
	if !strings.Contains(out.Draft, "Order number") {
		t.Errorf("draft should ask for the missing field:\n%s", out.Draft)
	}
}

func TestMacroOrEscalateUsesMacro(t *testing.T) {
	mcs := &fakeMacros{byIntent: map[string]*macros.Macro{
		classify.IntentProductQuestion: {
			ID:     uuid.New(),
			Name:   "product-basics",
			Intent: classify.IntentProductQuestion,
			Body:   "Here's how that works.\n\nThe Relay Team",
			Active: true,
		},
	}}
	rt := testRuntime(nil, nil, mcs)

	ts := TriageState{
		Thread: &threads.Thread{ID: uuid.New()},
		Result: classify.Finalize([]classify.IntentScore{{Slug: classify.IntentProductQuestion, Confidence: 0.8}}),
	}

	out := macroOrEscalate(context.Background(), rt, ts)

	if out.Action != threads.ActionSendMacro {
		t.Errorf("action: got %s, want %s", out.Action, threads.ActionSendMacro)
	}
	if out.DraftSource != SourceMacro {
		t.Errorf("draft source: got %s, want %s", out.DraftSource, SourceMacro)
	}
	if !strings.Contains(out.Draft, "Here's how that works.") {
		t.Errorf("draft should carry the macro body:\n%s", out.Draft)
	}
}

func TestEscalateUsesGeneratedDraft(t *testing.T) {
	rt := testRuntime(nil, nil, nil)
	rt.Generator = &fakeGenerator{draft: "Happy to help with this refund question.\n\nThe Relay Team"}

	ts := TriageState{
		Thread: &threads.Thread{ID: uuid.New()},
		Result: classify.Finalize([]classify.IntentScore{{Slug: classify.IntentRefundRequest, Confidence: 0.8}}),
	}

	out := escalate(context.Background(), rt, ts, "no approved macro")

	if out.Action != threads.ActionEscalateWithDraft {
		t.Errorf("action: got %s, want %s", out.Action, threads.ActionEscalateWithDraft)
	}
	if out.DraftSource != SourceGenerated {
		t.Errorf("draft source: got %s, want %s", out.DraftSource, SourceGenerated)
	}
	if !strings.Contains(out.Draft, "refund question") {
		t.Errorf("draft should carry the generated text:\n%s", out.Draft)
	}
}

func TestEscalateFallsBackToNotice(t *testing.T) {
	rt := testRuntime(nil, nil, nil)
	rt.Generator = &fakeGenerator{err: errors.New("model unavailable")}

	ts := TriageState{
		Thread: &threads.Thread{ID: uuid.New()},
		Result: classify.Finalize([]classify.IntentScore{{Slug: classify.IntentRefundRequest, Confidence: 0.8}}),
	}

	out := escalate(context.Background(), rt, ts, "no approved macro")

	if out.Action != threads.ActionEscalateWithDraft {
		t.Errorf("action: got %s, want %s", out.Action, threads.ActionEscalateWithDraft)
	}
	if out.DraftSource != SourceNotice {
		t.Errorf("draft source: got %s, want %s", out.DraftSource, SourceNotice)
	}
	if !strings.Contains(out.Draft, escalationNoticeText) {
		t.Errorf("fallback draft should carry the notice:\n%s", out.Draft)
	}
}
