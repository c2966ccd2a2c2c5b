package triage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/relay/internal/classify"
	"github.com/JaimeStill/relay/internal/events"
	"github.com/JaimeStill/relay/internal/messages"
)

// clarifyCategoryKey marks outbound clarification drafts with the category
// of information they asked for, for audit display.
const clarifyCategoryKey = "clarify_category"

// Clarification categories. Distinct field IDs that ask for the same thing
// share a category: asking for an order email after an order number is still
// asking the customer to identify the order.
const (
	categoryOrderNumber  = "order_number"
	categoryVehicleInfo  = "vehicle_info"
	categoryProductType  = "product_type"
	categoryPhotoRequest = "photo_request"
	categoryErrorMessage = "error_message"
)

var fieldCategories = map[string]string{
	"order_number":  categoryOrderNumber,
	"order_email":   categoryOrderNumber,
	"vehicle_info":  categoryVehicleInfo,
	"product_type":  categoryProductType,
	"issue_photo":   categoryPhotoRequest,
	"error_message": categoryErrorMessage,
}

// LoopResult reports one scan of a thread's outbound history: whether any
// category crossed the repeat threshold, which category repeated most, how
// often, and the full per-category count map.
type LoopResult struct {
	LoopDetected bool           `json:"loop_detected"`
	Category     string         `json:"category,omitempty"`
	Occurrences  int            `json:"occurrences,omitempty"`
	Counts       map[string]int `json:"counts"`
}

type loopCategory struct {
	name     string
	patterns []*regexp.Regexp
}

func (c loopCategory) matches(body string) bool {
	for _, p := range c.patterns {
		if p.MatchString(body) {
			return true
		}
	}
	return false
}

func compilePatterns(exprs ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		compiled[i] = regexp.MustCompile(`(?i)` + expr)
	}
	return compiled
}

// loopCategories is the declaration-ordered category taxonomy. Order breaks
// ties: when two categories repeat equally often, the earlier one is
// reported. Patterns cover both the synthesized question labels and common
// operator phrasings.
var loopCategories = []loopCategory{
	{categoryOrderNumber, compilePatterns(
		`order\s*(number|#|no\.?\b|id)`,
		`confirmation\s+number`,
		`email\s+(address\s+)?(used|associated|on)\b[^.]*order`,
	)},
	{categoryVehicleInfo, compilePatterns(
		`vehicle`,
		`year,?\s+make,?\s+and\s+model`,
		`\bmake\s+and\s+model\b`,
	)},
	{categoryProductType, compilePatterns(
		`product\s+(or\s+unit\s+)?type`,
		`which\s+(product|unit|model)`,
	)},
	{categoryPhotoRequest, compilePatterns(
		`photo`,
		`screenshot`,
		`picture\s+of`,
	)},
	{categoryErrorMessage, compilePatterns(
		`error\s+message`,
		`exact\s+error`,
	)},
}

// detectLoop scans every outbound message on the thread, counts which
// clarification categories each body asks for (a category counts at most
// once per message), and reports a loop when the most-repeated category
// reaches the threshold. Errors fail open: a missed loop just escalates one
// message later.
func detectLoop(ctx context.Context, rt *Runtime, ts TriageState) LoopResult {
	result := LoopResult{Counts: map[string]int{}}

	outbound, err := rt.Messages.Outbound(ctx, ts.Thread.ID)
	if err != nil {
		rt.Logger.WarnContext(
			ctx, "clarification history unavailable",
			"thread_id", ts.Thread.ID,
			"error", err,
		)
		return result
	}

	for _, m := range outbound {
		for _, c := range loopCategories {
			if c.matches(m.Body) {
				result.Counts[c.name]++
			}
		}
	}

	// declaration order wins ties
	for _, c := range loopCategories {
		if result.Counts[c.name] > result.Occurrences {
			result.Category = c.name
			result.Occurrences = result.Counts[c.name]
		}
	}

	if result.Occurrences >= rt.Config.LoopThreshold {
		result.LoopDetected = true
	} else {
		result.Category = ""
	}
	return result
}

// LoopNode returns a state node that breaks clarification loops: when the
// thread's outbound history already asked for the same category of
// information too often, the message escalates instead of asking again.
// Auto-escalating intents pass through untouched; they outrank the detector.
func LoopNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		ts, err := extractTriageState(s)
		if err != nil {
			return s, fmt.Errorf("loop: %w", err)
		}

		if ts.Action != "" || ts.Result == nil || ts.Result.AutoEscalate {
			s = s.Set(KeyTriageState, ts)
			return s, nil
		}

		result := detectLoop(ctx, rt, ts)
		ts.Loop = &result

		if !result.LoopDetected {
			ts = ts.addTrace("loop: none")
			s = s.Set(KeyTriageState, ts)
			return s, nil
		}

		ts.LoopCategory = result.Category
		ts = ts.addTrace(loopTrace(result.Category, result.Occurrences))

		if _, err := rt.Events.Record(ctx, ts.Thread.ID, events.LoopDetected{
			Category:    result.Category,
			Occurrences: result.Occurrences,
			Counts:      result.Counts,
		}); err != nil {
			rt.Logger.Warn("record loop_detected failed", "thread_id", ts.Thread.ID, "error", err)
		}

		ts = escalate(ctx, rt, ts, "clarification loop on "+result.Category)
		ts.DraftBlocked = true

		s = s.Set(KeyTriageState, ts)
		return s, nil
	})
}

// clarifyCategory returns the category of a pending clarification: that of
// the first required missing field, in declaration order.
func clarifyCategory(missing []classify.MissingInfoField) string {
	for _, f := range missing {
		if !f.Required {
			continue
		}
		if cat, ok := fieldCategories[f.ID]; ok {
			return cat
		}
	}
	return ""
}

// clarifyMetadata builds the metadata marker stored on a clarification draft.
func clarifyMetadata(category string) messages.Metadata {
	if category == "" {
		return messages.Metadata{}
	}
	return messages.Metadata{
		Opaque: map[string]any{clarifyCategoryKey: category},
	}
}

func loopTrace(category string, occurrences int) string {
	return fmt.Sprintf("loop: asked for %s %d time(s) already", category, occurrences)
}
