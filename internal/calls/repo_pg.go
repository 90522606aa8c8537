package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"compliance-backend/internal/recovery"
)

const uniqueViolation = "23505"

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectCallColumns = `
SELECT contact_id, phone_number, original_phone_number, call_date, channel, queue_name,
       recording_key, transcription_status, transcript, analysis_status, analysis,
       compliance_score, recovery_path, raw_response, error_code, error_message,
       created_at, updated_at, analyzed_at
FROM calls`

// Create inserts a new call.
func (r *PGRepo) Create(ctx context.Context, call Call) error {
	const query = `
INSERT INTO calls (
	contact_id, phone_number, original_phone_number, call_date, channel, queue_name,
	recording_key, transcription_status, transcript, analysis_status, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.DB.ExecContext(ctx, query,
		call.ContactID,
		call.PhoneNumber,
		call.OriginalPhoneNumber,
		call.CallDate,
		call.Channel,
		call.QueueName,
		call.RecordingKey,
		call.TranscriptionStatus,
		call.Transcript,
		call.AnalysisStatus,
		call.CreatedAt,
		call.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAlreadyExists
	}
	return err
}

// GetByID returns a call by contact ID.
func (r *PGRepo) GetByID(ctx context.Context, contactID string) (Call, error) {
	row := r.DB.QueryRowContext(ctx, selectCallColumns+`
WHERE contact_id = $1
LIMIT 1`, contactID)
	call, err := scanCall(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	return call, nil
}

// List returns calls newest first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Call, error) {
	return r.query(ctx, selectCallColumns+`
ORDER BY created_at DESC, contact_id
LIMIT $1 OFFSET $2`, limitOrAll(limit), max(offset, 0))
}

// ListAnalyzed returns completed analyses, most recently analyzed first.
func (r *PGRepo) ListAnalyzed(ctx context.Context, limit, offset int) ([]Call, error) {
	return r.query(ctx, selectCallColumns+`
WHERE analysis_status = 'completed' AND analyzed_at IS NOT NULL
ORDER BY analyzed_at DESC, contact_id
LIMIT $1 OFFSET $2`, limitOrAll(limit), max(offset, 0))
}

// UpdateRecording stores the recording key and resets transcription to pending.
func (r *PGRepo) UpdateRecording(ctx context.Context, contactID, recordingKey string) error {
	return r.exec(ctx, `
UPDATE calls
SET recording_key = $2, transcription_status = 'pending', updated_at = now()
WHERE contact_id = $1`, contactID, recordingKey)
}

// UpdateTranscription sets the transcription status and, when non-empty, the transcript.
func (r *PGRepo) UpdateTranscription(ctx context.Context, contactID, status, transcript string) error {
	return r.exec(ctx, `
UPDATE calls
SET transcription_status = $2,
    transcript = CASE WHEN $3 = '' THEN transcript ELSE $3 END,
    error_code = CASE WHEN $2 = 'completed' THEN NULL ELSE error_code END,
    error_message = CASE WHEN $2 = 'completed' THEN NULL ELSE error_message END,
    updated_at = now()
WHERE contact_id = $1`, contactID, status, transcript)
}

// UpdateAnalysisStatus sets the analysis status.
func (r *PGRepo) UpdateAnalysisStatus(ctx context.Context, contactID, status string) error {
	return r.exec(ctx, `
UPDATE calls
SET analysis_status = $2, updated_at = now()
WHERE contact_id = $1`, contactID, status)
}

// CompleteAnalysis stores the recovered record and marks the analysis completed.
func (r *PGRepo) CompleteAnalysis(ctx context.Context, contactID string, record recovery.Record, rawResponse string, analyzedAt time.Time) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	return r.exec(ctx, `
UPDATE calls
SET analysis_status = 'completed',
    analysis = $2,
    compliance_score = $3,
    recovery_path = $4,
    raw_response = $5,
    analyzed_at = $6,
    error_code = NULL,
    error_message = NULL,
    updated_at = now()
WHERE contact_id = $1`,
		contactID,
		string(payload),
		record.ComplianceScore,
		string(record.RecoveryPath),
		rawResponse,
		analyzedAt,
	)
}

// FailTranscription marks transcription failed with an error code.
func (r *PGRepo) FailTranscription(ctx context.Context, contactID, code, message string) error {
	return r.exec(ctx, `
UPDATE calls
SET transcription_status = 'failed', error_code = $2, error_message = $3, updated_at = now()
WHERE contact_id = $1`, contactID, code, message)
}

// FailAnalysis marks the analysis failed with an error code.
func (r *PGRepo) FailAnalysis(ctx context.Context, contactID, code, message string) error {
	return r.exec(ctx, `
UPDATE calls
SET analysis_status = 'failed', error_code = $2, error_message = $3, updated_at = now()
WHERE contact_id = $1`, contactID, code, message)
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) query(ctx context.Context, query string, args ...any) ([]Call, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Call{}
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, call)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (Call, error) {
	var c Call
	var analysis sql.NullString
	var score decimal.NullDecimal
	var recoveryPath sql.NullString
	var errorCode sql.NullString
	var errorMessage sql.NullString
	var analyzedAt sql.NullTime
	err := row.Scan(
		&c.ContactID,
		&c.PhoneNumber,
		&c.OriginalPhoneNumber,
		&c.CallDate,
		&c.Channel,
		&c.QueueName,
		&c.RecordingKey,
		&c.TranscriptionStatus,
		&c.Transcript,
		&c.AnalysisStatus,
		&analysis,
		&score,
		&recoveryPath,
		&c.RawResponse,
		&errorCode,
		&errorMessage,
		&c.CreatedAt,
		&c.UpdatedAt,
		&analyzedAt,
	)
	if err != nil {
		return Call{}, err
	}
	if analysis.Valid && analysis.String != "" {
		var rec recovery.Record
		if err := json.Unmarshal([]byte(analysis.String), &rec); err == nil {
			if score.Valid {
				rec.ComplianceScore = score.Decimal
			}
			if recoveryPath.Valid && recoveryPath.String != "" {
				rec.RecoveryPath = recovery.Path(recoveryPath.String)
			}
			c.Analysis = &rec
		}
	}
	if errorCode.Valid {
		c.ErrorCode = errorCode.String
	}
	if errorMessage.Valid {
		c.ErrorMessage = errorMessage.String
	}
	if analyzedAt.Valid {
		t := analyzedAt.Time
		c.AnalyzedAt = &t
	}
	return c, nil
}

// limitOrAll maps a non-positive limit to NULL, which Postgres treats as LIMIT ALL.
func limitOrAll(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
