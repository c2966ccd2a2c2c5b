package verify

// fieldExtractors maps missing-info field IDs to the verified data that
// satisfies them. The mapping is explicit and exhaustive rather than a
// substring heuristic: a field clears only when its extractor finds a
// non-empty value in the verification result.
var fieldExtractors = map[string]func(*Result) string{
	"order_number": func(r *Result) string {
		if r.Order != nil {
			return r.Order.Number
		}
		return ""
	},
	"order_email": func(r *Result) string {
		if r.Order != nil && r.Order.Email != "" {
			return r.Order.Email
		}
		if r.Customer != nil {
			return r.Customer.Email
		}
		return ""
	},
	"vehicle_info": func(r *Result) string {
		if r.Order != nil {
			return r.Order.Vehicle
		}
		return ""
	},
	"product_type": func(r *Result) string {
		if r.Order != nil {
			return r.Order.Product
		}
		return ""
	},
}

// SatisfiedFields returns the set of missing-info field IDs the verified
// result supplies. Only a verified result satisfies anything.
func SatisfiedFields(r *Result) map[string]bool {
	satisfied := make(map[string]bool)
	if r == nil || r.Status != StatusVerified {
		return satisfied
	}

	for id, extract := range fieldExtractors {
		if extract(r) != "" {
			satisfied[id] = true
		}
	}
	return satisfied
}
