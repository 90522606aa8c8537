package calls

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("call already exists")
	ErrInvalidContactID   = errors.New("contact id is required")
	ErrEmptyTranscript    = errors.New("transcript is empty")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrNoRecording        = errors.New("call has no recording")
	ErrQueueNotConfigured = errors.New("job queue not configured")
)

const (
	ErrorCodeValidation          = "VALIDATION_ERROR"
	ErrorCodeLLMTimeout          = "LLM_TIMEOUT"
	ErrorCodeTranscriptionFailed = "TRANSCRIPTION_FAILED"
	ErrorCodeStorage             = "STORAGE_ERROR"
	ErrorCodeInternal            = "INTERNAL_ERROR"
)
