package triage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/relay/pkg/handlers"
	"github.com/JaimeStill/relay/pkg/routes"
)

// maxBatchSize bounds one batch submission.
const maxBatchSize = 100

// Handler provides the HTTP entry points for the triage pipeline.
type Handler struct {
	rt     *Runtime
	logger *slog.Logger
}

// NewHandler creates a Handler over the pipeline runtime.
func NewHandler(rt *Runtime) *Handler {
	return &Handler{
		rt:     rt,
		logger: rt.Logger.With("handler", "triage"),
	}
}

// Routes returns the route group definition for triage endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/triage",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Process},
			{Method: "POST", Pattern: "/batch", Handler: h.ProcessBatch},
		},
	}
}

// Process runs the pipeline for a single inbound message.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var inbound Inbound
	if err := json.NewDecoder(r.Body).Decode(&inbound); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if err := validateInbound(inbound); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	outcome, err := Process(r.Context(), h.rt, inbound)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, outcome)
}

// ProcessBatch runs the pipeline over a batch of inbound messages,
// reporting a per-entry outcome or error.
func (h *Handler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	var inbound []Inbound
	if err := json.NewDecoder(r.Body).Decode(&inbound); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if len(inbound) == 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("empty batch"))
		return
	}
	if len(inbound) > maxBatchSize {
		handlers.RespondError(w, h.logger, http.StatusBadRequest,
			fmt.Errorf("batch exceeds %d messages", maxBatchSize))
		return
	}

	for i, in := range inbound {
		if err := validateInbound(in); err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest,
				fmt.Errorf("entry %d: %w", i, err))
			return
		}
	}

	results := ProcessBatch(r.Context(), h.rt, inbound)
	handlers.RespondJSON(w, http.StatusOK, results)
}

func validateInbound(in Inbound) error {
	if in.Channel == "" {
		return fmt.Errorf("channel required")
	}
	if in.Body == "" {
		return fmt.Errorf("body required")
	}
	return nil
}
