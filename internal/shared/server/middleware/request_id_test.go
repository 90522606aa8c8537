package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func requestIDRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFromContext(c))
	})
	return r
}

func TestRequestIDReusesHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set("X-Request-Id", "gw-123")
	w := httptest.NewRecorder()
	requestIDRouter().ServeHTTP(w, req)

	if w.Body.String() != "gw-123" || w.Header().Get("X-Request-Id") != "gw-123" {
		t.Fatalf("expected reused id, got body=%q header=%q", w.Body.String(), w.Header().Get("X-Request-Id"))
	}
}

func TestRequestIDGeneratesWhenMissingOrOversized(t *testing.T) {
	for _, header := range []string{"", strings.Repeat("x", 200)} {
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		if header != "" {
			req.Header.Set("X-Request-Id", header)
		}
		w := httptest.NewRecorder()
		requestIDRouter().ServeHTTP(w, req)

		if _, err := uuid.Parse(w.Body.String()); err != nil {
			t.Fatalf("expected generated uuid, got %q", w.Body.String())
		}
	}
}

func TestRequestIDFromNilContext(t *testing.T) {
	if got := RequestIDFromContext(nil); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}
