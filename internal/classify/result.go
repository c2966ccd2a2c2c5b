package classify

import (
	"sort"
)

// IntentScore is one classifier-proposed intent with its confidence and
// reasoning. Confidence is in [0,1].
type IntentScore struct {
	Slug       string  `json:"slug"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Result is the normalized classification contract shared by all classifier
// variants. Intents are ordered by descending confidence with ties keeping
// first-seen order; PrimaryIntent is the highest-confidence slug and the
// verification/escalation flags and missing-info list derive from its
// intent configuration.
type Result struct {
	Intents              []IntentScore      `json:"intents"`
	PrimaryIntent        string             `json:"primary_intent"`
	Confidence           float64            `json:"confidence"`
	RequiresVerification bool               `json:"requires_verification"`
	AutoEscalate         bool               `json:"auto_escalate"`
	MissingInfo          []MissingInfoField `json:"missing_info"`
	CanProceed           bool               `json:"can_proceed"`
}

// Finalize builds a Result from raw intent scores. Unrecognized slugs are
// preserved in the score list but never selected as primary; an empty or
// fully-unrecognized score list yields the unknown fallback.
func Finalize(scores []IntentScore) *Result {
	ordered := make([]IntentScore, len(scores))
	copy(ordered, scores)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})

	primary := IntentScore{Slug: IntentUnknown}
	for _, s := range ordered {
		if Known(s.Slug) {
			primary = s
			break
		}
	}

	cfg := Lookup(primary.Slug)
	missing := make([]MissingInfoField, len(cfg.MissingInfo))
	copy(missing, cfg.MissingInfo)

	return &Result{
		Intents:              ordered,
		PrimaryIntent:        primary.Slug,
		Confidence:           primary.Confidence,
		RequiresVerification: cfg.RequiresVerification,
		AutoEscalate:         cfg.AutoEscalate,
		MissingInfo:          missing,
		CanProceed:           primary.Slug != IntentUnknown,
	}
}

// Unknown returns the degraded fallback result used when classification is
// unavailable or fails. The low confidence and CanProceed=false force the
// message to a human instead of guessing.
func Unknown(reasoning string) *Result {
	r := Finalize([]IntentScore{{
		Slug:       IntentUnknown,
		Confidence: 0.1,
		Reasoning:  reasoning,
	}})
	return r
}

// MissingRequired reports whether any required missing-info field remains.
func (r *Result) MissingRequired() bool {
	for _, f := range r.MissingInfo {
		if f.Required {
			return true
		}
	}
	return false
}

// ClearMissing removes the missing-info fields whose IDs appear in
// satisfied, preserving order of the remainder.
func (r *Result) ClearMissing(satisfied map[string]bool) {
	if len(satisfied) == 0 {
		return
	}
	remaining := r.MissingInfo[:0]
	for _, f := range r.MissingInfo {
		if !satisfied[f.ID] {
			remaining = append(remaining, f)
		}
	}
	r.MissingInfo = remaining
}
