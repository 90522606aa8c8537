package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"compliance-backend/internal/llm"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestBuildPromptEmbedsTranscript(t *testing.T) {
	msgs := BuildPrompt("Agent: Xin chào quý khách", "gpt-4o")
	if len(msgs) != 2 || msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	if !strings.Contains(msgs[1].Content, "Agent: Xin chào quý khách") {
		t.Fatalf("transcript missing from prompt")
	}
}

func withServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	server := httptest.NewServer(h)
	prev := apiURL
	apiURL = server.URL
	t.Cleanup(func() {
		apiURL = prev
		server.Close()
	})
}

func TestAnalyzeReturnsContent(t *testing.T) {
	var got chatRequest
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" {\"compliance_score\": 8 "}}]}`))
	})

	client, err := NewClient("sk-test", "gpt-4o", 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	out, err := client.Analyze(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out != `{"compliance_score": 8` {
		t.Fatalf("unexpected content %q", out)
	}
	if got.ResponseFormat.Type != "json_object" || got.Temperature == nil {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestAnalyzeProviderError(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Too Many Requests","type":"rate_limit"}}`))
	})

	client, _ := NewClient("sk-test", "gpt-4o", 0)
	_, err := client.Analyze(context.Background(), "transcript")
	if err == nil || !llm.ShouldRetry(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestAnalyzeEmptyContent(t *testing.T) {
	withServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  "}}]}`))
	})

	client, _ := NewClient("sk-test", "gpt-4o", 0)
	if _, err := client.Analyze(context.Background(), "t"); !errors.Is(err, llm.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", "gpt-4o", 0); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := NewClient("sk", "", 0); err == nil {
		t.Fatalf("expected missing model error")
	}

	client, err := NewClient("sk", "gpt-4o", 0)
	if err != nil || client.httpClient.Timeout != defaultTimeout {
		t.Fatalf("expected default timeout, got %v err=%v", client, err)
	}
	client, err = NewClient("sk", "gpt-4o", 15*time.Second)
	if err != nil || client.httpClient.Timeout != 15*time.Second {
		t.Fatalf("expected configured timeout, got %v err=%v", client, err)
	}
}
