package policy

import "regexp"

// PromiseCategory classifies a detected commitment-like phrase.
type PromiseCategory string

// Promise taxonomy. Wire-visible vocabulary; persisted in audit events.
const (
	PromiseRefund       PromiseCategory = "refund"
	PromiseShipping     PromiseCategory = "shipping"
	PromiseReplacement  PromiseCategory = "replacement"
	PromiseFollowUp     PromiseCategory = "follow_up"
	PromiseConfirmation PromiseCategory = "confirmation"
	PromiseTimeline     PromiseCategory = "timeline"
)

// DetectedPromise is one commitment-like phrase found in a draft.
type DetectedPromise struct {
	Category    PromiseCategory `json:"category"`
	Match       string          `json:"match"`
	Description string          `json:"description"`
}

type promisePattern struct {
	category    PromiseCategory
	pattern     *regexp.Regexp
	description string
}

func promise(category PromiseCategory, pattern, description string) promisePattern {
	return promisePattern{
		category:    category,
		pattern:     regexp.MustCompile(`(?i)` + pattern),
		description: description,
	}
}

var promisePatterns = []promisePattern{
	promise(PromiseRefund, `\b(will|going to) (issue|process|send)? ?(a |your |the )?refund\b`, "Will refund"),
	promise(PromiseRefund, `\brefund (is|has been|will be) (issued|processed|on its way)\b`, "Refund issued"),
	promise(PromiseReplacement, `\b(will|going to) (replace|send (you )?a (new|replacement))\b`, "Will replace"),
	promise(PromiseShipping, `\b(will|going to) ship\b`, "Will ship"),
	promise(PromiseShipping, `\b(has|have) shipped\b`, "Has shipped"),
	promise(PromiseFollowUp, `\b(will|going to) (follow up|get back to you|check on this)\b`, "Will follow up"),
	promise(PromiseConfirmation, `\b(confirm(ed|ing)?|your (order|return) (is|has been) (confirmed|approved))\b`, "Confirmation given"),
	promise(PromiseTimeline, `\bwithin \d+([-–]\d+)? (business )?(days?|hours?|weeks?)\b`, "Specific timeline given"),
	promise(PromiseTimeline, `\bby (tomorrow|end of (day|week)|monday|tuesday|wednesday|thursday|friday)\b`, "Specific deadline given"),
}

// DetectPromises scans draft text for commitment-like phrases and returns
// the first match per distinct description. It is a non-blocking audit aid:
// it runs on whatever text was ultimately chosen, including drafts the gate
// rejected, and never changes the pipeline outcome.
func DetectPromises(text string) []DetectedPromise {
	var detected []DetectedPromise
	seen := make(map[string]bool)

	for _, p := range promisePatterns {
		if seen[p.description] {
			continue
		}
		if match := p.pattern.FindString(text); match != "" {
			seen[p.description] = true
			detected = append(detected, DetectedPromise{
				Category:    p.category,
				Match:       match,
				Description: p.description,
			})
		}
	}

	return detected
}
