package calls

import (
	"context"
	"time"

	"compliance-backend/internal/recovery"
)

// Repo defines persistence operations for calls.
type Repo interface {
	Create(ctx context.Context, call Call) error
	GetByID(ctx context.Context, contactID string) (Call, error)
	List(ctx context.Context, limit, offset int) ([]Call, error)
	ListAnalyzed(ctx context.Context, limit, offset int) ([]Call, error)
	UpdateRecording(ctx context.Context, contactID, recordingKey string) error
	UpdateTranscription(ctx context.Context, contactID, status, transcript string) error
	UpdateAnalysisStatus(ctx context.Context, contactID, status string) error
	CompleteAnalysis(ctx context.Context, contactID string, record recovery.Record, rawResponse string, analyzedAt time.Time) error
	FailTranscription(ctx context.Context, contactID, code, message string) error
	FailAnalysis(ctx context.Context, contactID, code, message string) error
}
