// Package triage implements the inbound message pipeline for Relay. Each
// message flows through a state graph (ingest, filter, classify, verify,
// loop, respond, gate, finalize) that decides one terminal action, produces at
// most one draft, advances the thread state machine, and records the audit
// trail.
package triage

import (
	"log/slog"

	"github.com/JaimeStill/relay/internal/classify"
	"github.com/JaimeStill/relay/internal/config"
	"github.com/JaimeStill/relay/internal/events"
	"github.com/JaimeStill/relay/internal/macros"
	"github.com/JaimeStill/relay/internal/messages"
	"github.com/JaimeStill/relay/internal/policy"
	"github.com/JaimeStill/relay/internal/threads"
	"github.com/JaimeStill/relay/internal/verify"
)

// Runtime bundles the dependencies that pipeline nodes require.
// It is constructed by higher-level composition code from Infrastructure
// and Domain systems. Verifier is nil when verification is disabled;
// a nil Generator degrades escalation drafts to the static notice.
type Runtime struct {
	Threads    threads.System
	Messages   messages.System
	Events     events.System
	Macros     macros.System
	Classifier classify.Classifier
	Verifier   verify.System
	Gate       *policy.Gate
	Generator  DraftGenerator
	Config     config.TriageConfig
	Logger     *slog.Logger
}
