package classify

import (
	"context"
	"regexp"
	"strings"
)

type intentRule struct {
	slug       string
	confidence float64
	reasoning  string
	patterns   []*regexp.Regexp
}

func rule(slug string, confidence float64, reasoning string, patterns ...string) intentRule {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(`(?i)` + p)
	}
	return intentRule{
		slug:       slug,
		confidence: confidence,
		reasoning:  reasoning,
		patterns:   compiled,
	}
}

// Declaration order doubles as priority: earlier rules surface first when
// confidences tie. High-risk rules sit above transactional ones so a message
// that both threatens a chargeback and asks about an order escalates.
var intentRules = []intentRule{
	rule(IntentChargebackThreat, 0.9, "chargeback or dispute language",
		`charge ?back`, `dispute (the|this|my) charge`, `contact(ing)? my (bank|credit card)`),
	rule(IntentLegalThreat, 0.9, "legal escalation language",
		`my (lawyer|attorney)`, `legal action`, `small claims`, `better business bureau`, `\bbbb\b`),
	rule(IntentThankYouClose, 0.85, "closing or gratitude with no new request",
		`^thanks?[.!\s]*$`, `^thank you[.!\s]*$`, `that (fixed|solved) it`, `all set now`, `no further (help|questions)`),
	rule(IntentVendorSpam, 0.8, "unsolicited vendor pitch",
		`seo services`, `link ?building`, `guest post`, `increase your (sales|traffic)`, `business proposal`),
	rule(IntentAutomatedEmail, 0.8, "automated notification body",
		`do not reply to this (email|message)`, `this is an automated`, `delivery status notification`),
	rule(IntentRefundRequest, 0.75, "refund language",
		`refund`, `money back`, `charged twice`),
	rule(IntentReturnRequest, 0.75, "return language",
		`return (it|this|the)`, `send (it|this) back`, `\brma\b`, `exchange`),
	rule(IntentShippingIssue, 0.7, "shipping problem language",
		`(hasn't|has not|never) (arrived|shipped)`, `tracking (number|says|stuck)`, `lost (package|shipment)`, `damaged (in|during) (shipping|transit)`),
	rule(IntentOrderStatus, 0.7, "order status language",
		`order status`, `where is my order`, `status of my order`, `order #?\d+`),
	rule(IntentWarrantyClaim, 0.7, "warranty language",
		`warranty`, `stopped working`, `defective`, `dead on arrival`),
	rule(IntentFitmentQuestion, 0.65, "vehicle fitment language",
		`will (this|it) fit`, `compatible with my`, `fitment`, `\b(19|20)\d{2}\s+\w+\s+\w+\b`),
	rule(IntentProductQuestion, 0.6, "product question language",
		`how (do|does|can) (i|it)`, `what('s| is) the difference`, `spec(s|ification)`, `instructions`),
}

type ruleClassifier struct{}

// NewRuleClassifier creates the rule-based classifier variant. It is the
// configuration fallback when no model provider is available and shares the
// Result contract with the model-backed variant.
func NewRuleClassifier() Classifier {
	return ruleClassifier{}
}

func (ruleClassifier) Classify(_ context.Context, subject, body string, _ []string) (*Result, error) {
	text := subject + "\n" + body

	var scores []IntentScore
	for _, r := range intentRules {
		if matchesAny(r.patterns, text) {
			scores = append(scores, IntentScore{
				Slug:       r.slug,
				Confidence: r.confidence,
				Reasoning:  r.reasoning,
			})
		}
	}

	return Finalize(scores), nil
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, p := range patterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}
