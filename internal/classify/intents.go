// Package classify implements intent classification for Relay.
// It defines the intent taxonomy, the classification result contract, the
// Classifier capability with model-backed and rule-based variants, and the
// integration logic that merges new results into a thread's intent set.
package classify

import "slices"

// Intent slugs. Wire-visible vocabulary; values are persisted on threads
// and events and must remain stable.
const (
	IntentOrderStatus      = "order_status"
	IntentRefundRequest    = "refund_request"
	IntentReturnRequest    = "return_request"
	IntentShippingIssue    = "shipping_issue"
	IntentProductQuestion  = "product_question"
	IntentFitmentQuestion  = "fitment_question"
	IntentWarrantyClaim    = "warranty_claim"
	IntentChargebackThreat = "chargeback_threat"
	IntentLegalThreat      = "legal_threat"
	IntentVendorSpam       = "vendor_spam"
	IntentAutomatedEmail   = "automated_email"
	IntentThankYouClose    = "thank_you_close"
	IntentUnknown          = "unknown"
)

// MissingInfoField identifies one piece of information the pipeline needs
// before it can act on an intent.
type MissingInfoField struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// IntentConfig declares the triage behavior for one intent.
type IntentConfig struct {
	Slug                 string
	Label                string
	RequiresVerification bool
	AutoEscalate         bool
	MissingInfo          []MissingInfoField
}

var fieldOrderNumber = MissingInfoField{ID: "order_number", Label: "Order number", Required: true}
var fieldOrderEmail = MissingInfoField{ID: "order_email", Label: "Email address used on the order", Required: true}
var fieldVehicleInfo = MissingInfoField{ID: "vehicle_info", Label: "Vehicle year, make, and model", Required: true}
var fieldProductType = MissingInfoField{ID: "product_type", Label: "Product or unit type", Required: true}
var fieldIssuePhoto = MissingInfoField{ID: "issue_photo", Label: "Photo or screenshot of the issue", Required: false}
var fieldErrorMessage = MissingInfoField{ID: "error_message", Label: "Exact error message shown", Required: false}

// intents is the declaration-ordered intent table. Declaration order matters
// for tie-breaking in downstream consumers.
var intents = []IntentConfig{
	{
		Slug:                 IntentOrderStatus,
		Label:                "Order status inquiry",
		RequiresVerification: true,
		MissingInfo:          []MissingInfoField{fieldOrderNumber, fieldOrderEmail},
	},
	{
		Slug:                 IntentRefundRequest,
		Label:                "Refund request",
		RequiresVerification: true,
		MissingInfo:          []MissingInfoField{fieldOrderNumber, fieldOrderEmail},
	},
	{
		Slug:                 IntentReturnRequest,
		Label:                "Return request",
		RequiresVerification: true,
		MissingInfo:          []MissingInfoField{fieldOrderNumber, fieldProductType, fieldIssuePhoto},
	},
	{
		Slug:                 IntentShippingIssue,
		Label:                "Shipping problem",
		RequiresVerification: true,
		MissingInfo:          []MissingInfoField{fieldOrderNumber},
	},
	{
		Slug:        IntentProductQuestion,
		Label:       "Product question",
		MissingInfo: []MissingInfoField{fieldProductType},
	},
	{
		Slug:        IntentFitmentQuestion,
		Label:       "Fitment question",
		MissingInfo: []MissingInfoField{fieldVehicleInfo, fieldProductType},
	},
	{
		Slug:                 IntentWarrantyClaim,
		Label:                "Warranty claim",
		RequiresVerification: true,
		MissingInfo:          []MissingInfoField{fieldOrderNumber, fieldIssuePhoto, fieldErrorMessage},
	},
	{
		Slug:         IntentChargebackThreat,
		Label:        "Chargeback threat",
		AutoEscalate: true,
	},
	{
		Slug:         IntentLegalThreat,
		Label:        "Legal threat",
		AutoEscalate: true,
	},
	{
		Slug:  IntentVendorSpam,
		Label: "Unsolicited vendor outreach",
	},
	{
		Slug:  IntentAutomatedEmail,
		Label: "Automated notification",
	},
	{
		Slug:  IntentThankYouClose,
		Label: "Thank you / conversation close",
	},
	{
		Slug:  IntentUnknown,
		Label: "Unknown",
	},
}

var intentIndex = buildIntentIndex()

func buildIntentIndex() map[string]IntentConfig {
	idx := make(map[string]IntentConfig, len(intents))
	for _, ic := range intents {
		idx[ic.Slug] = ic
	}
	return idx
}

// Lookup returns the configuration for an intent slug, falling back to the
// unknown intent for unrecognized values.
func Lookup(slug string) IntentConfig {
	if ic, ok := intentIndex[slug]; ok {
		return ic
	}
	return intentIndex[IntentUnknown]
}

// Known reports whether the slug is part of the intent taxonomy.
func Known(slug string) bool {
	_, ok := intentIndex[slug]
	return ok
}

// nonActionable intents never receive a reply and resolve the thread.
var nonActionable = []string{IntentVendorSpam, IntentAutomatedEmail}

// Resolves reports whether the intent closes the thread without a reply:
// the closing intent plus the non-actionable set.
func Resolves(slug string) bool {
	return slug == IntentThankYouClose || slices.Contains(nonActionable, slug)
}

// NonActionable reports whether the intent warrants no reply at all.
func NonActionable(slug string) bool {
	return slices.Contains(nonActionable, slug)
}

// AlwaysEscalates reports whether the intent is configured to escalate
// regardless of missing information.
func AlwaysEscalates(slug string) bool {
	return Lookup(slug).AutoEscalate
}
