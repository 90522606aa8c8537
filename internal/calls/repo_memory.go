package calls

import (
	"context"
	"sort"
	"sync"
	"time"

	"compliance-backend/internal/recovery"
)

// MemoryRepo stores calls in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Call
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Call)}
}

// Create stores the call.
func (r *MemoryRepo) Create(ctx context.Context, call Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[call.ContactID]; ok {
		return ErrAlreadyExists
	}
	r.byID[call.ContactID] = call
	return nil
}

// GetByID returns a call by its contact ID.
func (r *MemoryRepo) GetByID(ctx context.Context, contactID string) (Call, error) {
	if err := ctx.Err(); err != nil {
		return Call{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	call, ok := r.byID[contactID]
	if !ok {
		return Call{}, ErrNotFound
	}
	return call, nil
}

// List returns calls newest first.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Call, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Call, 0, len(r.byID))
	for _, call := range r.byID {
		out = append(out, call)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ContactID < out[j].ContactID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

// ListAnalyzed returns completed analyses, most recently analyzed first.
func (r *MemoryRepo) ListAnalyzed(ctx context.Context, limit, offset int) ([]Call, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Call, 0, len(r.byID))
	for _, call := range r.byID {
		if call.AnalysisStatus == StatusCompleted && call.AnalyzedAt != nil {
			out = append(out, call)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].AnalyzedAt.Equal(*out[j].AnalyzedAt) {
			return out[i].ContactID < out[j].ContactID
		}
		return out[i].AnalyzedAt.After(*out[j].AnalyzedAt)
	})
	return page(out, limit, offset), nil
}

// UpdateRecording stores the recording key and resets transcription to pending.
func (r *MemoryRepo) UpdateRecording(ctx context.Context, contactID, recordingKey string) error {
	return r.update(ctx, contactID, func(call *Call) {
		call.RecordingKey = recordingKey
		call.TranscriptionStatus = StatusPending
	})
}

// UpdateTranscription sets the transcription status and, when non-empty, the transcript.
func (r *MemoryRepo) UpdateTranscription(ctx context.Context, contactID, status, transcript string) error {
	return r.update(ctx, contactID, func(call *Call) {
		call.TranscriptionStatus = status
		if transcript != "" {
			call.Transcript = transcript
		}
		if status == StatusCompleted {
			call.ErrorCode = ""
			call.ErrorMessage = ""
		}
	})
}

// UpdateAnalysisStatus sets the analysis status.
func (r *MemoryRepo) UpdateAnalysisStatus(ctx context.Context, contactID, status string) error {
	return r.update(ctx, contactID, func(call *Call) {
		call.AnalysisStatus = status
	})
}

// CompleteAnalysis stores the recovered record and marks the analysis completed.
func (r *MemoryRepo) CompleteAnalysis(ctx context.Context, contactID string, record recovery.Record, rawResponse string, analyzedAt time.Time) error {
	return r.update(ctx, contactID, func(call *Call) {
		rec := record
		call.Analysis = &rec
		call.RawResponse = rawResponse
		call.AnalysisStatus = StatusCompleted
		call.AnalyzedAt = &analyzedAt
		call.ErrorCode = ""
		call.ErrorMessage = ""
	})
}

// FailTranscription marks transcription failed with an error code.
func (r *MemoryRepo) FailTranscription(ctx context.Context, contactID, code, message string) error {
	return r.update(ctx, contactID, func(call *Call) {
		call.TranscriptionStatus = StatusFailed
		call.ErrorCode = code
		call.ErrorMessage = message
	})
}

// FailAnalysis marks the analysis failed with an error code.
func (r *MemoryRepo) FailAnalysis(ctx context.Context, contactID, code, message string) error {
	return r.update(ctx, contactID, func(call *Call) {
		call.AnalysisStatus = StatusFailed
		call.ErrorCode = code
		call.ErrorMessage = message
	})
}

func (r *MemoryRepo) update(ctx context.Context, contactID string, fn func(*Call)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	call, ok := r.byID[contactID]
	if !ok {
		return ErrNotFound
	}
	fn(&call)
	call.UpdatedAt = time.Now().UTC()
	r.byID[contactID] = call
	return nil
}

func page(calls []Call, limit, offset int) []Call {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(calls) {
		return []Call{}
	}
	end := len(calls)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return calls[offset:end]
}
