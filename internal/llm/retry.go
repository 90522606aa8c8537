package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"compliance-backend/internal/shared/telemetry"
)

// RetryBaseDelay is the pause before the single retry.
const RetryBaseDelay = 300 * time.Millisecond

type retryingClient struct {
	base   Client
	delay  time.Duration
	fields map[string]any
}

// WithRetry wraps base so a retryable failure is attempted once more after
// RetryBaseDelay. fields are attached to the retry log line.
func WithRetry(base Client, fields map[string]any) Client {
	if base == nil {
		return nil
	}
	return retryingClient{base: base, delay: RetryBaseDelay, fields: fields}
}

func (r retryingClient) Analyze(ctx context.Context, transcript string) (string, error) {
	out, err := r.base.Analyze(ctx, transcript)
	if err == nil || !ShouldRetry(err) {
		return out, err
	}

	logFields := map[string]any{"attempt": 1, "err": err.Error()}
	for k, v := range r.fields {
		logFields[k] = v
	}
	telemetry.Warn("llm.retry", logFields)

	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return r.base.Analyze(ctx, transcript)
}

// ShouldRetry reports whether err looks transient: timeouts, 5xx answers,
// throttling and dropped connections.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "throttling") || strings.Contains(msg, "too many requests") {
		return true
	}
	if strings.Contains(msg, "timeout") {
		return true
	}
	for _, s := range []string{"connection reset", "connection refused", "connection closed", "broken pipe", "eof"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
