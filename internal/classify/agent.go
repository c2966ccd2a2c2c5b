package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/JaimeStill/relay/pkg/formatting"
)

type rawClassification struct {
	Intents []IntentScore `json:"intents"`
}

type agentClassifier struct {
	cfg    gaconfig.AgentConfig
	logger *slog.Logger
}

// NewAgentClassifier creates the model-backed classifier variant. Each call
// creates its own agent from the shared config, mirroring how the workflow
// nodes use go-agents.
func NewAgentClassifier(cfg gaconfig.AgentConfig, logger *slog.Logger) Classifier {
	return &agentClassifier{
		cfg:    cfg,
		logger: logger.With("classifier", ModeAgent),
	}
}

func (c *agentClassifier) Classify(ctx context.Context, subject, body string, history []string) (*Result, error) {
	a, err := agent.New(&c.cfg)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}

	resp, err := a.Chat(ctx, composeClassifyPrompt(subject, body, history))
	if err != nil {
		return nil, fmt.Errorf("classification call: %w", err)
	}

	parsed, err := formatting.Parse[rawClassification](resp.Content())
	if err != nil {
		return nil, fmt.Errorf("parse classification: %w", err)
	}

	result := Finalize(parsed.Intents)

	c.logger.InfoContext(
		ctx, "message classified",
		"primary_intent", result.PrimaryIntent,
		"confidence", result.Confidence,
		"intent_count", len(result.Intents),
	)
	return result, nil
}

func composeClassifyPrompt(subject, body string, history []string) string {
	var sb strings.Builder
	sb.WriteString("Classify the customer support message below into one or more intents.\n")
	sb.WriteString("Respond with JSON only: {\"intents\": [{\"slug\": ..., \"confidence\": 0.0-1.0, \"reasoning\": ...}]}\n\n")
	sb.WriteString("Valid intent slugs:\n")
	for _, ic := range intents {
		fmt.Fprintf(&sb, "- %s: %s\n", ic.Slug, ic.Label)
	}

	if len(history) > 0 {
		sb.WriteString("\nPrior messages in this conversation, oldest first:\n")
		for i, h := range history {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, h)
		}
	}

	fmt.Fprintf(&sb, "\nSubject: %s\n\nMessage:\n%s\n", subject, body)
	return sb.String()
}
