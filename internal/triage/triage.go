package triage

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

// Process runs the triage pipeline for a single inbound message. It builds
// the state graph (ingest → filter → classify → verify? → loop → respond →
// gate? → finalize), executes it, and extracts the Outcome from the final
// state.
func Process(ctx context.Context, rt *Runtime, inbound Inbound) (*Outcome, error) {
	graph, err := buildGraph(rt)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	initialState := state.New(nil)
	initialState = initialState.Set(KeyTriageState, TriageState{Inbound: inbound})

	finalState, err := graph.Execute(ctx, initialState)
	if err != nil {
		return nil, fmt.Errorf("execute graph: %w", err)
	}

	ts, err := extractTriageState(finalState)
	if err != nil {
		return nil, err
	}

	return buildOutcome(ts)
}

// BatchResult pairs one batch entry with its outcome or failure. A failed
// entry never aborts the rest of the batch.
type BatchResult struct {
	Index   int      `json:"index"`
	Outcome *Outcome `json:"outcome,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ProcessBatch runs the pipeline over a set of inbound messages. Messages
// that resolve to the same thread are processed in input order; distinct
// threads run concurrently under bounded errgroup parallelism.
func ProcessBatch(ctx context.Context, rt *Runtime, inbound []Inbound) []BatchResult {
	results := make([]BatchResult, len(inbound))

	groups := make(map[string][]int)
	var order []string
	for i, in := range inbound {
		key := in.ThreadKey()
		if key == "" {
			// no external id: each message is its own thread
			key = fmt.Sprintf("solo:%d", i)
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(min(runtime.NumCPU(), len(order)), 1))

	for _, key := range order {
		indices := groups[key]
		g.Go(func() error {
			for _, i := range indices {
				if gctx.Err() != nil {
					results[i] = BatchResult{Index: i, Error: gctx.Err().Error()}
					continue
				}

				outcome, err := Process(gctx, rt, inbound[i])
				if err != nil {
					results[i] = BatchResult{Index: i, Error: err.Error()}
					continue
				}
				results[i] = BatchResult{Index: i, Outcome: outcome}
			}
			return nil
		})
	}

	g.Wait()
	return results
}

func buildGraph(rt *Runtime) (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("relay-triage")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	if err := graph.AddNode("ingest", IngestNode(rt)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("filter", FilterNode(rt)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("classify", ClassifyNode(rt)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("verify", VerifyNode(rt)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("loop", LoopNode(rt)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("respond", RespondNode(rt)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("gate", GateNode(rt)); err != nil {
		return nil, err
	}

	if err := graph.AddNode("finalize", FinalizeNode(rt)); err != nil {
		return nil, err
	}

	// ingest → filter (unconditional)
	if err := graph.AddEdge("ingest", "filter", nil); err != nil {
		return nil, err
	}

	// filter → finalize (when the message is filtered out)
	if err := graph.AddEdge("filter", "finalize", filtered); err != nil {
		return nil, err
	}

	// filter → classify (when processing continues)
	if err := graph.AddEdge("filter", "classify", state.Not(filtered)); err != nil {
		return nil, err
	}

	// classify → verify (when the intent requires verification)
	if err := graph.AddEdge("classify", "verify", needsVerification(rt)); err != nil {
		return nil, err
	}

	// classify → loop (otherwise)
	if err := graph.AddEdge("classify", "loop", state.Not(needsVerification(rt))); err != nil {
		return nil, err
	}

	// verify → loop (unconditional)
	if err := graph.AddEdge("verify", "loop", nil); err != nil {
		return nil, err
	}

	// loop → respond (unconditional)
	if err := graph.AddEdge("loop", "respond", nil); err != nil {
		return nil, err
	}

	// respond → gate (when a draft exists)
	if err := graph.AddEdge("respond", "gate", hasDraft); err != nil {
		return nil, err
	}

	// respond → finalize (when no draft was produced)
	if err := graph.AddEdge("respond", "finalize", state.Not(hasDraft)); err != nil {
		return nil, err
	}

	// gate → finalize (unconditional)
	if err := graph.AddEdge("gate", "finalize", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("ingest"); err != nil {
		return nil, err
	}

	if err := graph.SetExitPoint("finalize"); err != nil {
		return nil, err
	}

	return graph, nil
}

func extractTriageState(s state.State) (TriageState, error) {
	val, ok := s.Get(KeyTriageState)
	if !ok {
		return TriageState{}, fmt.Errorf("missing %s in state", KeyTriageState)
	}

	ts, ok := val.(TriageState)
	if !ok {
		return TriageState{}, fmt.Errorf("%s is not TriageState", KeyTriageState)
	}

	return ts, nil
}

func buildOutcome(ts TriageState) (*Outcome, error) {
	if ts.Thread == nil || ts.Message == nil {
		return nil, fmt.Errorf("incomplete pipeline state: thread or message missing")
	}

	outcome := &Outcome{
		ThreadID:      ts.Thread.ID,
		MessageID:     ts.Message.ID,
		Action:        ts.Action,
		PreviousState: ts.PreviousState,
		State:         ts.Thread.State,
		Draft:         ts.Draft,
		DraftBlocked:  ts.DraftBlocked,
		Summary:       ts.Summary,
	}

	if ts.Result != nil {
		outcome.Intent = ts.Result.PrimaryIntent
		outcome.Confidence = ts.Result.Confidence
	}

	return outcome, nil
}

func filtered(s state.State) bool {
	ts, err := extractTriageState(s)
	if err != nil {
		return false
	}
	return ts.Filtered
}

func needsVerification(rt *Runtime) func(state.State) bool {
	return func(s state.State) bool {
		if rt.Verifier == nil {
			return false
		}
		ts, err := extractTriageState(s)
		if err != nil {
			return false
		}
		return ts.Result != nil && ts.Result.RequiresVerification &&
			!internalSender(ts.Inbound.From, rt.Config.InternalDomains)
	}
}

func hasDraft(s state.State) bool {
	ts, err := extractTriageState(s)
	if err != nil {
		return false
	}
	return ts.Draft != ""
}
