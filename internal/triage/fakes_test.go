package triage

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/relay/internal/classify"
	"github.com/JaimeStill/relay/internal/config"
	"github.com/JaimeStill/relay/internal/events"
	"github.com/JaimeStill/relay/internal/macros"
	"github.com/JaimeStill/relay/internal/messages"
	"github.com/JaimeStill/relay/internal/policy"
	"github.com/JaimeStill/relay/internal/threads"
)

// Test doubles embed the domain interface so only the methods the pipeline
// exercises need implementations.

type fakeMessages struct {
	messages.System
	outbound []messages.Message
	created  []messages.Message
	err      error
}

func (f *fakeMessages) Outbound(_ context.Context, _ uuid.UUID) ([]messages.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.outbound, nil
}

func (f *fakeMessages) Create(_ context.Context, cmd messages.CreateCommand) (*messages.Message, error) {
	m := messages.Message{
		ID:        uuid.New(),
		ThreadID:  cmd.ThreadID,
		Direction: cmd.Direction,
		Role:      cmd.Role,
		Body:      cmd.Body,
		Blocked:   cmd.Blocked,
	}
	if !cmd.Metadata.Empty() {
		raw, err := json.Marshal(cmd.Metadata)
		if err != nil {
			return nil, err
		}
		m.Metadata = raw
	}

	f.created = append(f.created, m)
	if cmd.Direction == messages.DirectionOutbound {
		f.outbound = append(f.outbound, m)
	}
	return &m, nil
}

func (f *fakeMessages) RecentContext(_ context.Context, _, _ uuid.UUID, _ int) ([]messages.Message, error) {
	return nil, nil
}

type fakeEvents struct {
	events.System
	recorded []events.Payload
}

func (f *fakeEvents) Record(_ context.Context, threadID uuid.UUID, payload events.Payload) (*events.Event, error) {
	f.recorded = append(f.recorded, payload)
	return &events.Event{ID: uuid.New(), ThreadID: threadID, Type: payload.EventType()}, nil
}

func (f *fakeEvents) ofType(t events.Type) []events.Payload {
	var out []events.Payload
	for _, p := range f.recorded {
		if p.EventType() == t {
			out = append(out, p)
		}
	}
	return out
}

type fakeMacros struct {
	macros.System
	byIntent map[string]*macros.Macro
}

func (f *fakeMacros) FindByIntent(_ context.Context, intent string) (*macros.Macro, error) {
	if m, ok := f.byIntent[intent]; ok {
		return m, nil
	}
	return nil, macros.ErrNotFound
}

// fakeThreads holds a single in-memory thread with working optimistic
// versioning, enough to carry the pipeline end to end.
type fakeThreads struct {
	threads.System
	thread *threads.Thread
}

func (f *fakeThreads) Resolve(_ context.Context, cmd threads.ResolveCommand) (*threads.Thread, bool, error) {
	if f.thread == nil {
		f.thread = &threads.Thread{
			ID:      uuid.New(),
			Channel: cmd.Channel,
			Subject: cmd.Subject,
			State:   threads.StateNew,
			Intents: []string{},
			Version: 1,
		}
		t := *f.thread
		return &t, true, nil
	}
	t := *f.thread
	return &t, false, nil
}

func (f *fakeThreads) Find(_ context.Context, _ uuid.UUID) (*threads.Thread, error) {
	t := *f.thread
	return &t, nil
}

func (f *fakeThreads) UpdateState(_ context.Context, _ uuid.UUID, cmd threads.StateCommand) (*threads.Thread, error) {
	if cmd.Version != f.thread.Version {
		return nil, threads.ErrVersionConflict
	}
	f.thread.State = cmd.State
	f.thread.LastIntent = cmd.LastIntent
	f.thread.Version++
	t := *f.thread
	return &t, nil
}

func (f *fakeThreads) AddIntents(_ context.Context, _ uuid.UUID, add []string, removeUnknown bool) (*threads.Thread, error) {
	for _, a := range add {
		known := false
		for _, existing := range f.thread.Intents {
			if existing == a {
				known = true
				break
			}
		}
		if !known {
			f.thread.Intents = append(f.thread.Intents, a)
		}
	}
	if removeUnknown {
		kept := f.thread.Intents[:0]
		for _, existing := range f.thread.Intents {
			if existing != classify.IntentUnknown {
				kept = append(kept, existing)
			}
		}
		f.thread.Intents = kept
	}
	t := *f.thread
	return &t, nil
}

type fakeClassifier struct {
	result *classify.Result
	err    error
}

func (f *fakeClassifier) Classify(_ context.Context, _, _ string, _ []string) (*classify.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeGenerator struct {
	draft string
	err   error
}

func (f *fakeGenerator) Generate(_ context.Context, _ TriageState) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.draft, nil
}

func testRuntime(msgs *fakeMessages, evts *fakeEvents, mcs *fakeMacros) *Runtime {
	if msgs == nil {
		msgs = &fakeMessages{}
	}
	if evts == nil {
		evts = &fakeEvents{}
	}
	if mcs == nil {
		mcs = &fakeMacros{}
	}

	return &Runtime{
		Messages: msgs,
		Events:   evts,
		Macros:   mcs,
		Gate: policy.NewGate(policy.GateConfig{
			ApprovedSignatures: []string{"The Relay Team"},
		}),
		Config: config.TriageConfig{
			ConfidenceFloor:    0.6,
			LoopThreshold:      2,
			ApprovedSignatures: []string{"The Relay Team"},
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func pipelineRuntime(th *fakeThreads, msgs *fakeMessages, evts *fakeEvents, mcs *fakeMacros, cls classify.Classifier) *Runtime {
	rt := testRuntime(msgs, evts, mcs)
	rt.Threads = th
	rt.Classifier = cls
	return rt
}
