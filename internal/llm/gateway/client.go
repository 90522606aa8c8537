package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"compliance-backend/internal/llm"
	"compliance-backend/internal/shared/telemetry"
)

const defaultTimeout = 120 * time.Second

// Client posts transcripts to an analysis endpoint that builds the prompt itself and
// answers with the envelope {"result": "..."}. The body is returned untouched.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient builds a gateway client for endpoint.
func NewClient(endpoint string) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("LLM_GATEWAY_URL is required for the gateway provider")
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}, nil
}

type request struct {
	Prompt string `json:"prompt"`
}

// Analyze posts the transcript and returns the raw response body.
func (c *Client) Analyze(ctx context.Context, transcript string) (string, error) {
	payload, err := json.Marshal(request{Prompt: transcript})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("gateway request timeout: %w", err)
		}
		return "", fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gateway read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway: http status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if strings.TrimSpace(string(body)) == "" {
		return "", llm.ErrEmptyResponse
	}

	telemetry.Info("llm.response", map[string]any{
		"provider":       "gateway",
		"status":         resp.StatusCode,
		"response_chars": len(body),
	})
	return string(body), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

var _ llm.Client = (*Client)(nil)
