package calls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"compliance-backend/internal/llm"
	"compliance-backend/internal/queue"
	"compliance-backend/internal/recovery"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/storage/object"
	"compliance-backend/internal/shared/telemetry"
)

const (
	recordingsNamespace = "recordings"
	transcriptsPrefix   = "transcripts/"
)

// Transcriber turns a stored recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaKey string) (string, error)
}

// Service contains business logic for calls.
type Service struct {
	Repo        Repo
	Store       object.ObjectStore
	Queue       queue.Client
	LLM         llm.Client
	Transcriber Transcriber
	Provider    string
}

// Register records a new call with a normalized phone number.
func (s *Service) Register(ctx context.Context, contactID, rawPhone, queueName string) (Call, error) {
	contactID = strings.TrimSpace(contactID)
	if contactID == "" {
		return Call{}, ErrInvalidContactID
	}
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return Call{}, err
	}

	now := time.Now().UTC()
	call := Call{
		ContactID:           contactID,
		PhoneNumber:         phone,
		OriginalPhoneNumber: strings.TrimSpace(rawPhone),
		CallDate:            now,
		Channel:             ChannelVoice,
		QueueName:           strings.TrimSpace(queueName),
		TranscriptionStatus: StatusPending,
		AnalysisStatus:      StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.Repo.Create(ctx, call); err != nil {
		return Call{}, err
	}
	telemetry.Info("call.registered", map[string]any{
		"request_id": RequestIDFromContext(ctx),
		"contact_id": contactID,
		"queue_name": call.QueueName,
	})
	return call, nil
}

// SaveRecording stores the audio for a call and schedules transcription.
func (s *Service) SaveRecording(ctx context.Context, contactID, fileName string, r io.Reader) (Call, error) {
	if s.Store == nil {
		return Call{}, errors.New("storage: object store not configured")
	}
	call, err := s.Repo.GetByID(ctx, contactID)
	if err != nil {
		return Call{}, err
	}

	key, size, mimeType, err := s.Store.Save(ctx, recordingsNamespace, contactID+"_"+fileName, r)
	if err != nil {
		return Call{}, fmt.Errorf("storage: save recording: %w", err)
	}
	if err := s.Repo.UpdateRecording(ctx, contactID, key); err != nil {
		return Call{}, err
	}
	call.RecordingKey = key
	call.TranscriptionStatus = StatusPending
	telemetry.Info("call.recording.saved", map[string]any{
		"request_id":    RequestIDFromContext(ctx),
		"contact_id":    contactID,
		"recording_key": key,
		"size_bytes":    size,
		"mime_type":     mimeType,
	})

	s.dispatch(ctx, queue.KindTranscribe, contactID)
	return call, nil
}

// SetTranscript stores a transcript supplied by the caller and schedules analysis.
func (s *Service) SetTranscript(ctx context.Context, contactID, text string) (Call, error) {
	if strings.TrimSpace(text) == "" {
		return Call{}, ErrEmptyTranscript
	}
	if err := s.Repo.UpdateTranscription(ctx, contactID, StatusCompleted, text); err != nil {
		return Call{}, err
	}
	s.archiveTranscript(ctx, contactID, text)
	if err := s.Repo.UpdateAnalysisStatus(ctx, contactID, StatusQueued); err != nil {
		return Call{}, err
	}
	s.dispatch(ctx, queue.KindAnalyze, contactID)
	return s.Repo.GetByID(ctx, contactID)
}

// StartAnalysis queues a new analysis for a call that already has a transcript.
func (s *Service) StartAnalysis(ctx context.Context, contactID string) (Call, error) {
	call, err := s.Repo.GetByID(ctx, contactID)
	if err != nil {
		return Call{}, err
	}
	if strings.TrimSpace(call.Transcript) == "" {
		return Call{}, ErrEmptyTranscript
	}
	if err := s.Repo.UpdateAnalysisStatus(ctx, contactID, StatusQueued); err != nil {
		return Call{}, err
	}
	call.AnalysisStatus = StatusQueued
	s.dispatch(ctx, queue.KindAnalyze, contactID)
	return call, nil
}

// ProcessTranscription runs speech-to-text on the call recording and schedules analysis.
// Only retryable failures are returned; others are persisted on the call.
func (s *Service) ProcessTranscription(ctx context.Context, contactID string) error {
	call, err := s.Repo.GetByID(ctx, contactID)
	if err != nil {
		return err
	}
	if call.RecordingKey == "" {
		return s.failTranscription(ctx, contactID, ErrNoRecording)
	}
	if s.Transcriber == nil {
		return s.failTranscription(ctx, contactID, errors.New("transcription: transcriber not configured"))
	}
	if err := s.Repo.UpdateTranscription(ctx, contactID, StatusProcessing, ""); err != nil {
		return s.failTranscription(ctx, contactID, fmt.Errorf("set processing failed: %w", err))
	}
	s.logTransition(ctx, "transcription.status", contactID, call.TranscriptionStatus, StatusProcessing, nil)

	text, err := s.Transcriber.Transcribe(ctx, call.RecordingKey)
	if err != nil {
		return s.failTranscription(ctx, contactID, fmt.Errorf("transcription: %w", err))
	}
	if strings.TrimSpace(text) == "" {
		return s.failTranscription(ctx, contactID, ErrEmptyTranscript)
	}
	if err := s.Repo.UpdateTranscription(ctx, contactID, StatusCompleted, text); err != nil {
		return s.failTranscription(ctx, contactID, fmt.Errorf("storage: save transcript: %w", err))
	}
	s.archiveTranscript(ctx, contactID, text)
	s.logTransition(ctx, "transcription.status", contactID, StatusProcessing, StatusCompleted, map[string]any{
		"transcript_chars": len(text),
	})

	if err := s.Repo.UpdateAnalysisStatus(ctx, contactID, StatusQueued); err != nil {
		return err
	}
	s.dispatch(ctx, queue.KindAnalyze, contactID)
	return nil
}

// ProcessAnalysis sends the transcript to the model and persists whatever record
// can be recovered from its answer. Only retryable failures are returned.
func (s *Service) ProcessAnalysis(ctx context.Context, contactID string) error {
	startedAt := time.Now().UTC()
	call, err := s.Repo.GetByID(ctx, contactID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(call.Transcript) == "" {
		return s.failAnalysis(ctx, contactID, ErrEmptyTranscript, nil)
	}
	if s.LLM == nil {
		return s.failAnalysis(ctx, contactID, errors.New("missing llm client"), nil)
	}
	if err := s.Repo.UpdateAnalysisStatus(ctx, contactID, StatusProcessing); err != nil {
		return s.failAnalysis(ctx, contactID, fmt.Errorf("set processing failed: %w", err), &startedAt)
	}
	metrics.IncAnalysisStarted()
	s.logTransition(ctx, "analysis.status", contactID, call.AnalysisStatus, StatusProcessing, map[string]any{
		"provider": s.Provider,
	})

	client := llm.WithRetry(s.LLM, map[string]any{
		"request_id": RequestIDFromContext(ctx),
		"contact_id": contactID,
	})
	raw, err := client.Analyze(ctx, call.Transcript)
	if err != nil {
		return s.failAnalysis(ctx, contactID, fmt.Errorf("llm analyze: %w", err), &startedAt)
	}

	record := recovery.Recover(recovery.Unwrap(raw))
	metrics.IncRecoveryPath(string(record.RecoveryPath))

	completedAt := time.Now().UTC()
	if err := s.Repo.CompleteAnalysis(ctx, contactID, record, raw, completedAt); err != nil {
		return s.failAnalysis(ctx, contactID, fmt.Errorf("storage: save analysis: %w", err), &startedAt)
	}
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(startedAt, completedAt))
	s.logTransition(ctx, "analysis.status", contactID, StatusProcessing, StatusCompleted, map[string]any{
		"recovery_path":    string(record.RecoveryPath),
		"compliance_score": record.ComplianceScore.String(),
		"customer_emotion": string(record.CustomerEmotion),
		"duration_ms":      durationMs(startedAt, completedAt),
	})
	return nil
}

// Recover runs lenient record recovery on text without touching storage.
func (s *Service) Recover(text string) recovery.Record {
	record := recovery.Recover(text)
	metrics.IncRecoveryPath(string(record.RecoveryPath))
	return record
}

// Get returns a call by contact ID.
func (s *Service) Get(ctx context.Context, contactID string) (Call, error) {
	if strings.TrimSpace(contactID) == "" {
		return Call{}, ErrInvalidContactID
	}
	return s.Repo.GetByID(ctx, contactID)
}

// List returns calls newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Call, error) {
	return s.Repo.List(ctx, limit, offset)
}

// ListAnalyzed returns calls with a completed analysis, newest first.
func (s *Service) ListAnalyzed(ctx context.Context, limit, offset int) ([]Call, error) {
	return s.Repo.ListAnalyzed(ctx, limit, offset)
}

// dispatch sends a job to the queue, or runs it in the background when no
// queue is configured.
func (s *Service) dispatch(ctx context.Context, kind, contactID string) {
	err := s.enqueue(ctx, kind, contactID)
	if err == nil {
		return
	}
	if !errors.Is(err, ErrQueueNotConfigured) {
		telemetry.Error("queue.send.failed", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"contact_id": contactID,
			"kind":       kind,
			"err":        err,
		})
	}
	go s.runAsync(backgroundWithRequestID(ctx), kind, contactID)
}

func (s *Service) enqueue(ctx context.Context, kind, contactID string) error {
	if s.Queue == nil {
		return ErrQueueNotConfigured
	}
	return s.Queue.Send(ctx, queue.Message{
		Kind:       kind,
		ContactID:  contactID,
		RequestID:  RequestIDFromContext(ctx),
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    queue.MessageVersion,
	})
}

func (s *Service) runAsync(ctx context.Context, kind, contactID string) {
	defer func() {
		if r := recover(); r != nil {
			perr := fmt.Errorf("panic: %v", r)
			if kind == queue.KindTranscribe {
				_ = s.failTranscription(ctx, contactID, perr)
				return
			}
			_ = s.failAnalysis(ctx, contactID, perr, nil)
		}
	}()
	var err error
	switch kind {
	case queue.KindTranscribe:
		err = s.ProcessTranscription(ctx, contactID)
	default:
		err = s.ProcessAnalysis(ctx, contactID)
	}
	if err != nil {
		telemetry.Error("job.failed", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"contact_id": contactID,
			"kind":       kind,
			"err":        err,
		})
	}
}

// archiveTranscript keeps a plain-text copy next to the recordings. Failures are
// logged only; the transcript column stays authoritative.
func (s *Service) archiveTranscript(ctx context.Context, contactID, text string) {
	if s.Store == nil {
		return
	}
	key := transcriptsPrefix + contactID + ".txt"
	if _, err := s.Store.SaveWithKey(ctx, key, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		telemetry.Warn("transcript.archive.failed", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"contact_id": contactID,
			"err":        err,
		})
	}
}

func (s *Service) failTranscription(ctx context.Context, contactID string, err error) error {
	code, retryable := classifyFailure(err)
	if code == ErrorCodeInternal || code == ErrorCodeValidation {
		code = ErrorCodeTranscriptionFailed
	}
	msg := sanitizeError(err)
	if updateErr := s.Repo.FailTranscription(context.Background(), contactID, code, msg); updateErr != nil {
		telemetry.Error("transcription.fail.update", map[string]any{
			"contact_id": contactID,
			"err":        updateErr,
			"orig":       msg,
		})
	}
	s.logTransition(ctx, "transcription.status", contactID, StatusProcessing, StatusFailed, map[string]any{
		"error_code": code,
		"retryable":  retryable,
	})
	if retryable {
		return err
	}
	return nil
}

func (s *Service) failAnalysis(ctx context.Context, contactID string, err error, startedAt *time.Time) error {
	code, retryable := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()
	if updateErr := s.Repo.FailAnalysis(context.Background(), contactID, code, msg); updateErr != nil {
		telemetry.Error("analysis.fail.update", map[string]any{
			"contact_id": contactID,
			"err":        updateErr,
			"orig":       msg,
		})
	}
	metrics.IncAnalysisFailed()
	fields := map[string]any{
		"error_code": code,
		"retryable":  retryable,
	}
	if startedAt != nil {
		ms := durationMs(*startedAt, completedAt)
		metrics.ObserveAnalysisDurationMs(ms)
		fields["duration_ms"] = ms
	}
	s.logTransition(ctx, "analysis.status", contactID, StatusProcessing, StatusFailed, fields)
	if retryable {
		return err
	}
	return nil
}

func (s *Service) logTransition(ctx context.Context, msg, contactID, from, to string, extra map[string]any) {
	fields := map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"contact_id":        contactID,
		"status":            to,
		"status_transition": from + "->" + to,
	}
	for k, v := range extra {
		fields[k] = v
	}
	telemetry.Info(msg, fields)
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) (string, bool) {
	code, retryable := classifyCause(err)
	// A cancelled job was interrupted, not rejected; let the queue redeliver it.
	if code != ErrorCodeValidation && errors.Is(err, context.Canceled) {
		retryable = true
	}
	return code, retryable
}

func classifyCause(err error) (string, bool) {
	if err == nil {
		return ErrorCodeInternal, false
	}
	if errors.Is(err, ErrEmptyTranscript) || errors.Is(err, ErrInvalidPhone) || errors.Is(err, ErrNoRecording) {
		return ErrorCodeValidation, false
	}
	msg := strings.ToLower(err.Error())
	if strings.HasPrefix(msg, "transcription") {
		return ErrorCodeTranscriptionFailed, llm.ShouldRetry(err)
	}
	if strings.HasPrefix(msg, "llm") {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "timeout") {
			return ErrorCodeLLMTimeout, true
		}
		return ErrorCodeInternal, llm.ShouldRetry(err)
	}
	if strings.Contains(msg, "storage") || strings.Contains(msg, "set processing") {
		return ErrorCodeStorage, true
	}
	return ErrorCodeInternal, false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToValidUTF8(err.Error(), "\uFFFD")
	msg = strings.ReplaceAll(msg, "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}
