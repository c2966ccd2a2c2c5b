package classify

import "slices"

// Integration describes how a new classification result changes a thread's
// accumulated intent set. It is computed purely; the pipeline applies the
// additions and removal through the thread repository and records the
// matching audit events.
type Integration struct {
	// Add lists intents crossing the confidence floor that the thread does
	// not already carry, in result order.
	Add []string
	// RemoveUnknown is set when the thread's only recorded intent was
	// unknown and a real intent has now been detected.
	RemoveUnknown bool
	// SpamOverridden is set when a spam classification from an internal
	// sender was downgraded to unknown.
	SpamOverridden bool
}

// Integrate reconciles a classification result with a thread's current
// intent set. Internal senders are never recorded as vendor spam: such a
// classification is downgraded to unknown in the result itself before any
// intent is accumulated.
func Integrate(result *Result, current []string, floor float64, internalSender bool) Integration {
	var out Integration

	if internalSender && result.PrimaryIntent == IntentVendorSpam {
		downgradeSpam(result)
		out.SpamOverridden = true
	}

	for _, score := range result.Intents {
		if score.Confidence < floor || !Known(score.Slug) {
			continue
		}
		if internalSender && score.Slug == IntentVendorSpam {
			continue
		}
		if slices.Contains(current, score.Slug) || slices.Contains(out.Add, score.Slug) {
			continue
		}
		out.Add = append(out.Add, score.Slug)
	}

	hasReal := slices.ContainsFunc(out.Add, func(s string) bool { return s != IntentUnknown })
	if hasReal && len(current) == 1 && current[0] == IntentUnknown {
		out.RemoveUnknown = true
	}

	return out
}

func downgradeSpam(result *Result) {
	unknown := Unknown("vendor spam override: internal sender")
	result.PrimaryIntent = unknown.PrimaryIntent
	result.Confidence = unknown.Confidence
	result.RequiresVerification = unknown.RequiresVerification
	result.AutoEscalate = unknown.AutoEscalate
	result.MissingInfo = unknown.MissingInfo
	result.CanProceed = false

	kept := result.Intents[:0]
	for _, s := range result.Intents {
		if s.Slug != IntentVendorSpam {
			kept = append(kept, s)
		}
	}
	result.Intents = kept
}
