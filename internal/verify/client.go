package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ClientConfig holds the verification endpoint parameters.
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type client struct {
	http   *http.Client
	cfg    ClientConfig
	logger *slog.Logger
}

// NewClient creates the HTTP-backed verification system.
func NewClient(cfg ClientConfig, logger *slog.Logger) System {
	return &client{
		http:   &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger.With("system", "verify"),
	}
}

type verifyRequest struct {
	ThreadID uuid.UUID `json:"thread_id"`
	Sender   string    `json:"sender"`
	Message  string    `json:"message"`
}

func (c *client) Verify(ctx context.Context, threadID uuid.UUID, sender, body string) (*Result, error) {
	payload, err := json.Marshal(verifyRequest{
		ThreadID: threadID,
		Sender:   sender,
		Message:  body,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal verification request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.cfg.BaseURL+"/verify",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verification call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrVerificationFailed, resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode verification response: %w", err)
	}

	c.logger.InfoContext(
		ctx, "verification completed",
		"thread_id", threadID,
		"status", result.Status,
	)
	return &result, nil
}
