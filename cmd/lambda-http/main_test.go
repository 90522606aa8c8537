package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"compliance-backend/internal/shared/server/respond"
)

func TestErrorResponseUsesStandardBody(t *testing.T) {
	resp := errorResponse(http.StatusInternalServerError, "internal_error", "service unavailable", "req-1")

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if resp.Headers["X-Request-Id"] != "req-1" {
		t.Fatalf("expected request id header, got %v", resp.Headers)
	}
	var body respond.ErrorResponse
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "internal_error" || body.Error.Message != "service unavailable" {
		t.Fatalf("unexpected body %+v", body)
	}
}
