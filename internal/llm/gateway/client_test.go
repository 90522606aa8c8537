package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"compliance-backend/internal/llm"
)

func TestAnalyzePostsPrompt(t *testing.T) {
	var got request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"result": "Tóm tắt {\"compliance_score\": 7"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	body, err := client.Analyze(context.Background(), "Agent: Xin chào")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Prompt != "Agent: Xin chào" {
		t.Fatalf("unexpected prompt %q", got.Prompt)
	}
	if body != `{"result": "Tóm tắt {\"compliance_score\": 7"}` {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestAnalyzeServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "boom"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	_, err := client.Analyze(context.Background(), "t")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !llm.ShouldRetry(err) {
		t.Fatalf("expected 5xx to be retryable: %v", err)
	}
}

func TestAnalyzeEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	if _, err := client.Analyze(context.Background(), "t"); !errors.Is(err, llm.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	if _, err := NewClient(" "); err == nil {
		t.Fatalf("expected error")
	}
}
