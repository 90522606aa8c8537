package calls

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/llm"
	"compliance-backend/internal/queue"
	"compliance-backend/internal/shared/server/middleware"
)

func setupRouter(t *testing.T, client llm.Client) (*gin.Engine, *Service, *MemoryRepo, *queueStub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, repo, _, q := newTestService(t, client)
	router := gin.New()
	router.Use(middleware.RequestID())
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router, svc, repo, q
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return env
}

func TestRegisterCallHandler(t *testing.T) {
	router, _, _, _ := setupRouter(t, nil)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/calls", map[string]string{
		"contactId":   "c-1",
		"phoneNumber": "0912345678",
		"queueName":   "cards",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var call Call
	if err := json.NewDecoder(resp.Body).Decode(&call); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if call.PhoneNumber != "+84912345678" {
		t.Fatalf("unexpected phone %q", call.PhoneNumber)
	}

	dup := doJSON(t, router, http.MethodPost, "/api/v1/calls", map[string]string{
		"contactId":   "c-1",
		"phoneNumber": "0912345678",
	})
	if dup.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", dup.Code)
	}

	bad := doJSON(t, router, http.MethodPost, "/api/v1/calls", map[string]string{
		"contactId":   "c-2",
		"phoneNumber": "unknown",
	})
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", bad.Code)
	}
	if env := decodeError(t, bad); env.Error.Code != "validation_error" {
		t.Fatalf("unexpected error code %q", env.Error.Code)
	}
}

func TestGetCallNotFound(t *testing.T) {
	router, _, _, _ := setupRouter(t, nil)
	resp := doJSON(t, router, http.MethodGet, "/api/v1/calls/missing", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if env := decodeError(t, resp); env.Error.Code != "not_found" {
		t.Fatalf("unexpected error code %q", env.Error.Code)
	}
}

func TestUploadRecordingHandler(t *testing.T) {
	router, svc, _, q := setupRouter(t, nil)
	seedCall(t, svc, "c-1")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "call.wav")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("RIFF....WAVE"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/calls/c-1/recording", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	msgs := q.sent()
	if len(msgs) != 1 || msgs[0].Kind != queue.KindTranscribe {
		t.Fatalf("expected transcribe message, got %+v", msgs)
	}
	if msgs[0].RequestID == "" {
		t.Fatalf("expected request id to be propagated")
	}
}

func TestUploadRecordingRequiresFile(t *testing.T) {
	router, svc, _, _ := setupRouter(t, nil)
	seedCall(t, svc, "c-1")
	resp := doJSON(t, router, http.MethodPost, "/api/v1/calls/c-1/recording", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestTranscriptAndAnalyzeHandlers(t *testing.T) {
	router, svc, _, q := setupRouter(t, nil)
	seedCall(t, svc, "c-1")

	empty := doJSON(t, router, http.MethodPost, "/api/v1/calls/c-1/analyze", nil)
	if empty.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 before transcript, got %d", empty.Code)
	}

	resp := doJSON(t, router, http.MethodPost, "/api/v1/calls/c-1/transcript", map[string]string{"transcript": "Agent: Xin chào"})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = doJSON(t, router, http.MethodPost, "/api/v1/calls/c-1/analyze", nil)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	var body struct {
		AnalysisStatus string `json:"analysisStatus"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.AnalysisStatus != StatusQueued {
		t.Fatalf("unexpected status %q", body.AnalysisStatus)
	}
	if len(q.sent()) != 2 {
		t.Fatalf("expected 2 analyze messages, got %d", len(q.sent()))
	}

	blank := doJSON(t, router, http.MethodPost, "/api/v1/calls/c-1/transcript", map[string]string{"transcript": "  "})
	if blank.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank transcript, got %d", blank.Code)
	}
}

func TestListAnalysesHandler(t *testing.T) {
	router, svc, _, _ := setupRouter(t, staticLLM(`Tóm tắt {"compliance_score": 12, "customer_emotion": "Tích cực"}`, nil))
	seedCall(t, svc, "c-1")
	_, _ = svc.SetTranscript(context.Background(), "c-1", "Agent: Xin chào")
	if err := svc.ProcessAnalysis(context.Background(), "c-1"); err != nil {
		t.Fatalf("ProcessAnalysis: %v", err)
	}

	resp := doJSON(t, router, http.MethodGet, "/api/v1/analyses?limit=5", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0]["summary"] != "Tóm tắt" || items[0]["complianceScore"] != float64(10) {
		t.Fatalf("unexpected item %+v", items[0])
	}
}

func TestRecoverHandler(t *testing.T) {
	router, _, _, _ := setupRouter(t, nil)

	tests := []struct {
		name string
		body map[string]any
		path string
	}{
		{name: "strict", body: map[string]any{"text": `{"compliance_score": 5}`}, path: "strict"},
		{name: "repaired", body: map[string]any{"text": `{"compliance_score": 5, "detailed_analysis": "cut`}, path: "repaired"},
		{name: "fallback", body: map[string]any{"text": "no structure here"}, path: "fallback"},
		{name: "envelope", body: map[string]any{"text": `{"result": "{\"compliance_score\": 3}"}`, "envelope": true}, path: "strict"},
		{name: "empty", body: map[string]any{"text": ""}, path: "fallback"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, router, http.MethodPost, "/api/v1/analyses/recover", tt.body)
			if resp.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.Code)
			}
			var got map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got["recovery_path"] != tt.path {
				t.Fatalf("expected path %q, got %v", tt.path, got["recovery_path"])
			}
		})
	}
}

func TestRecoverHandlerRejectsBadBody(t *testing.T) {
	router, _, _, _ := setupRouter(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses/recover", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
