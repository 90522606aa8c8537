package calls

import (
	"time"

	"compliance-backend/internal/recovery"
)

const (
	StatusPending    = "pending"
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ChannelVoice is the only contact channel recorded today.
const ChannelVoice = "voice"

// Call is a recorded customer service contact and its compliance analysis.
type Call struct {
	ContactID           string           `json:"contactId"`
	PhoneNumber         string           `json:"phoneNumber"`
	OriginalPhoneNumber string           `json:"originalPhoneNumber"`
	CallDate            time.Time        `json:"callDate"`
	Channel             string           `json:"channel"`
	QueueName           string           `json:"queueName"`
	RecordingKey        string           `json:"recordingKey,omitempty"`
	TranscriptionStatus string           `json:"transcriptionStatus"`
	Transcript          string           `json:"transcript,omitempty"`
	AnalysisStatus      string           `json:"analysisStatus"`
	Analysis            *recovery.Record `json:"analysis,omitempty"`
	RawResponse         string           `json:"-"`
	ErrorCode           string           `json:"errorCode,omitempty"`
	ErrorMessage        string           `json:"errorMessage,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
	AnalyzedAt          *time.Time       `json:"analyzedAt,omitempty"`
}
