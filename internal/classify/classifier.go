package classify

import (
	"context"
)

// Classifier is the capability both classification variants implement.
// Context carries up to the last few prior message bodies, oldest first.
type Classifier interface {
	Classify(ctx context.Context, subject, body string, history []string) (*Result, error)
}

// Mode selects a classifier variant in configuration.
const (
	ModeAgent = "agent"
	ModeRules = "rules"
)
