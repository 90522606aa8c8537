package calls

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"compliance-backend/internal/recovery"
	"compliance-backend/internal/shared/server/middleware"
	"compliance-backend/internal/shared/server/respond"
)

const (
	maxRecordingSize = 50 << 20 // 50MB
	maxRecoverBytes  = 1 << 20
	defaultPageSize  = 20
	maxPageSize      = 100
)

// Handler wires HTTP handlers to the calls service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches call routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/calls", h.register)
	rg.GET("/calls", h.list)
	rg.GET("/calls/:id", h.get)
	rg.POST("/calls/:id/recording", h.uploadRecording)
	rg.POST("/calls/:id/transcript", h.setTranscript)
	rg.POST("/calls/:id/analyze", h.analyze)
	rg.GET("/analyses", h.listAnalyzed)
	rg.POST("/analyses/recover", h.recoverRecord)
}

type registerRequest struct {
	ContactID   string `json:"contactId"`
	PhoneNumber string `json:"phoneNumber"`
	QueueName   string `json:"queueName"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	c.Set("contactId", strings.TrimSpace(req.ContactID))

	call, err := h.Svc.Register(requestContext(c), req.ContactID, req.PhoneNumber, req.QueueName)
	if err != nil {
		h.writeError(c, err, "failed to register call")
		return
	}
	respond.Created(c, call)
}

func (h *Handler) get(c *gin.Context) {
	contactID := c.Param("id")
	c.Set("contactId", contactID)

	call, err := h.Svc.Get(requestContext(c), contactID)
	if err != nil {
		h.writeError(c, err, "failed to fetch call")
		return
	}
	respond.OK(c, call)
}

func (h *Handler) list(c *gin.Context) {
	limit, offset := pagination(c)
	calls, err := h.Svc.List(requestContext(c), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list calls", nil)
		return
	}
	resp := make([]gin.H, 0, len(calls))
	for _, call := range calls {
		resp = append(resp, gin.H{
			"contactId":           call.ContactID,
			"phoneNumber":         call.PhoneNumber,
			"callDate":            call.CallDate,
			"queueName":           call.QueueName,
			"transcriptionStatus": call.TranscriptionStatus,
			"analysisStatus":      call.AnalysisStatus,
			"createdAt":           call.CreatedAt,
		})
	}
	respond.OK(c, resp)
}

func (h *Handler) listAnalyzed(c *gin.Context) {
	limit, offset := pagination(c)
	calls, err := h.Svc.ListAnalyzed(requestContext(c), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}
	resp := make([]gin.H, 0, len(calls))
	for _, call := range calls {
		item := gin.H{
			"contactId":   call.ContactID,
			"phoneNumber": call.PhoneNumber,
			"callDate":    call.CallDate,
			"queueName":   call.QueueName,
			"analyzedAt":  call.AnalyzedAt,
		}
		if call.Analysis != nil {
			item["summary"] = call.Analysis.Summary
			item["complianceScore"] = json.Number(call.Analysis.ComplianceScore.String())
			item["customerEmotion"] = call.Analysis.CustomerEmotion
			item["violations"] = call.Analysis.Violations
			item["recoveryPath"] = call.Analysis.RecoveryPath
		}
		resp = append(resp, item)
	}
	respond.OK(c, resp)
}

func (h *Handler) uploadRecording(c *gin.Context) {
	contactID := c.Param("id")
	c.Set("contactId", contactID)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRecordingSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	call, err := h.Svc.SaveRecording(requestContext(c), contactID, fileHeader.Filename, file)
	if err != nil {
		h.writeError(c, err, "failed to save recording")
		return
	}
	c.Set("statusTransition", "transcription->"+call.TranscriptionStatus)
	respond.Accepted(c, gin.H{
		"contactId":           call.ContactID,
		"recordingKey":        call.RecordingKey,
		"transcriptionStatus": call.TranscriptionStatus,
	})
}

type transcriptRequest struct {
	Transcript string `json:"transcript"`
}

func (h *Handler) setTranscript(c *gin.Context) {
	contactID := c.Param("id")
	c.Set("contactId", contactID)

	var req transcriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	call, err := h.Svc.SetTranscript(requestContext(c), contactID, req.Transcript)
	if err != nil {
		h.writeError(c, err, "failed to store transcript")
		return
	}
	c.Set("statusTransition", "analysis->"+call.AnalysisStatus)
	respond.Accepted(c, gin.H{
		"contactId":      call.ContactID,
		"analysisStatus": call.AnalysisStatus,
	})
}

func (h *Handler) analyze(c *gin.Context) {
	contactID := c.Param("id")
	c.Set("contactId", contactID)

	call, err := h.Svc.StartAnalysis(requestContext(c), contactID)
	if err != nil {
		h.writeError(c, err, "failed to start analysis")
		return
	}
	c.Set("statusTransition", "analysis->"+call.AnalysisStatus)
	respond.Accepted(c, gin.H{
		"contactId":      call.ContactID,
		"analysisStatus": call.AnalysisStatus,
	})
}

type recoverRequest struct {
	Text     string `json:"text"`
	Envelope bool   `json:"envelope"`
}

func (h *Handler) recoverRecord(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRecoverBytes)
	var req recoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	text := req.Text
	if req.Envelope {
		text = recovery.Unwrap(text)
	}
	record := h.Svc.Recover(text)
	c.Set("recoveryPath", string(record.RecoveryPath))
	respond.OK(c, record)
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "call not found", nil)
	case errors.Is(err, ErrAlreadyExists):
		respond.Error(c, http.StatusConflict, "conflict", "call already exists", nil)
	case errors.Is(err, ErrInvalidContactID):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), []map[string]string{
			{"field": "contactId", "issue": "required"},
		})
	case errors.Is(err, ErrInvalidPhone):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), []map[string]string{
			{"field": "phoneNumber", "issue": "invalid"},
		})
	case errors.Is(err, ErrEmptyTranscript):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), []map[string]string{
			{"field": "transcript", "issue": "empty"},
		})
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func requestContext(c *gin.Context) context.Context {
	return WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
}

func pagination(c *gin.Context) (int, int) {
	limit := defaultPageSize
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
