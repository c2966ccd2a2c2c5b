package policy

import "testing"

func TestDetectPromises(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []PromiseCategory
	}{
		{
			name: "refund commitment",
			text: "We will process your refund once the item arrives.",
			want: []PromiseCategory{PromiseRefund},
		},
		{
			name: "replacement commitment",
			text: "We're going to send you a new one.",
			want: []PromiseCategory{PromiseReplacement},
		},
		{
			name: "shipping and timeline",
			text: "It will ship within 2 business days.",
			want: []PromiseCategory{PromiseShipping, PromiseTimeline},
		},
		{
			name: "follow up",
			text: "I will follow up once I hear back from the warehouse.",
			want: []PromiseCategory{PromiseFollowUp},
		},
		{
			name: "deadline",
			text: "Expect an update by end of week.",
			want: []PromiseCategory{PromiseTimeline},
		},
		{
			name: "no commitments",
			text: "Could you share your order number so I can take a look?",
			want: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			detected := DetectPromises(tc.text)
			if len(detected) != len(tc.want) {
				t.Fatalf("detected %d promises, want %d: %v", len(detected), len(tc.want), detected)
			}
			for i, d := range detected {
				if d.Category != tc.want[i] {
					t.Errorf("promise %d: got category %s, want %s", i, d.Category, tc.want[i])
				}
				if d.Match == "" {
					t.Errorf("promise %d: match text should be captured", i)
				}
			}
		})
	}
}

func TestDetectPromisesDeduplicates(t *testing.T) {
	detected := DetectPromises("We will refund you. Yes, we will refund the full amount.")

	refunds := 0
	for _, d := range detected {
		if d.Category == PromiseRefund {
			refunds++
		}
	}
	if refunds != 1 {
		t.Errorf("same pattern should report once: got %d refund promises", refunds)
	}
}
