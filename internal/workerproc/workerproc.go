package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"compliance-backend/internal/calls"
	"compliance-backend/internal/queue"
	"compliance-backend/internal/shared/metrics"
)

// Processor runs the jobs carried by queue messages.
type Processor interface {
	ProcessTranscription(ctx context.Context, contactID string) error
	ProcessAnalysis(ctx context.Context, contactID string) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrMissingContactID indicates a message missing the contact id.
type ErrMissingContactID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingContactID) Error() string { return "missing contact id" }

// ErrUnknownKind indicates a message for a job this worker does not run.
type ErrUnknownKind struct {
	Kind      string
	ContactID string
}

func (e ErrUnknownKind) Error() string { return "unknown job kind " + e.Kind }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	Kind      string
	ContactID string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process " + e.Kind
	}
	return "process " + e.Kind + ": " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether err means the message can never succeed and
// should be removed from the queue.
func Unrecoverable(err error) bool {
	switch err.(type) {
	case ErrEmptyBody, ErrDecode, ErrMissingContactID, ErrUnknownKind:
		return true
	}
	return false
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.ContactID) == "" {
		return msg, meta, ErrMissingContactID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates and dispatches a message payload by kind.
func HandleMessage(ctx context.Context, processor Processor, body string) error {
	if processor == nil {
		return errors.New("call processor not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			metrics.IncWorkerJob("unknown", "rejected")
			return err
		}
	}
	if strings.TrimSpace(msg.ContactID) == "" {
		metrics.IncWorkerJob(msg.Kind, "rejected")
		return ErrMissingContactID{Meta: ComputeMeta(body), RequestID: msg.RequestID}
	}

	ctxWithRequest := calls.WithRequestID(ctx, msg.RequestID)
	var err error
	switch msg.Kind {
	case queue.KindTranscribe:
		err = processor.ProcessTranscription(ctxWithRequest, msg.ContactID)
	case queue.KindAnalyze, "":
		err = processor.ProcessAnalysis(ctxWithRequest, msg.ContactID)
	default:
		metrics.IncWorkerJob(msg.Kind, "rejected")
		return ErrUnknownKind{Kind: msg.Kind, ContactID: msg.ContactID}
	}
	if err != nil {
		metrics.IncWorkerJob(msg.Kind, "failed")
		return ErrProcess{Kind: msg.Kind, ContactID: msg.ContactID, RequestID: msg.RequestID, Err: err}
	}
	metrics.IncWorkerJob(msg.Kind, "completed")
	return nil
}
