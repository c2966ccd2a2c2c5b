package api

import (
	"github.com/JaimeStill/relay/internal/classify"
	"github.com/JaimeStill/relay/internal/events"
	"github.com/JaimeStill/relay/internal/macros"
	"github.com/JaimeStill/relay/internal/messages"
	"github.com/JaimeStill/relay/internal/policy"
	"github.com/JaimeStill/relay/internal/threads"
	"github.com/JaimeStill/relay/internal/triage"
	"github.com/JaimeStill/relay/internal/verify"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Threads  threads.System
	Messages messages.System
	Events   events.System
	Macros   macros.System
	Triage   *triage.Runtime
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	eventsSystem := events.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	threadsSystem := threads.New(
		runtime.Database.Connection(),
		eventsSystem,
		runtime.Logger,
		runtime.Pagination,
	)

	messagesSystem := messages.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	macrosSystem := macros.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	triageRuntime := &triage.Runtime{
		Threads:    threadsSystem,
		Messages:   messagesSystem,
		Events:     eventsSystem,
		Macros:     macrosSystem,
		Classifier: newClassifier(runtime),
		Verifier:   newVerifier(runtime),
		Gate: policy.NewGate(policy.GateConfig{
			ApprovedSignatures: runtime.Triage.ApprovedSignatures,
			BannedSigners:      runtime.Triage.BannedSigners,
		}),
		Generator: triage.NewAgentGenerator(runtime.Agent, runtime.Triage.ApprovedSignatures),
		Config:    runtime.Triage,
		Logger:    runtime.Logger,
	}

	return &Domain{
		Threads:  threadsSystem,
		Messages: messagesSystem,
		Events:   eventsSystem,
		Macros:   macrosSystem,
		Triage:   triageRuntime,
	}
}

func newClassifier(runtime *Runtime) classify.Classifier {
	if runtime.Triage.Classifier == classify.ModeRules {
		return classify.NewRuleClassifier()
	}
	return classify.NewAgentClassifier(runtime.Agent, runtime.Logger)
}

func newVerifier(runtime *Runtime) verify.System {
	if !runtime.Triage.Verification.Enabled {
		return nil
	}
	return verify.NewClient(verify.ClientConfig{
		BaseURL: runtime.Triage.Verification.BaseURL,
		Token:   runtime.Triage.Verification.Token,
		Timeout: runtime.Triage.Verification.TimeoutDuration(),
	}, runtime.Logger)
}
