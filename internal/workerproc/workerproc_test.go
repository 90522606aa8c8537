package workerproc

import (
	"context"
	"errors"
	"testing"

	"compliance-backend/internal/calls"
	"compliance-backend/internal/queue"
)

type fakeProcessor struct {
	transcribed []string
	analyzed    []string
	requestIDs  []string
	err         error
}

func (f *fakeProcessor) ProcessTranscription(ctx context.Context, contactID string) error {
	f.transcribed = append(f.transcribed, contactID)
	f.requestIDs = append(f.requestIDs, calls.RequestIDFromContext(ctx))
	return f.err
}

func (f *fakeProcessor) ProcessAnalysis(ctx context.Context, contactID string) error {
	f.analyzed = append(f.analyzed, contactID)
	f.requestIDs = append(f.requestIDs, calls.RequestIDFromContext(ctx))
	return f.err
}

func encode(t *testing.T, msg queue.Message) string {
	t.Helper()
	payload, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(payload)
}

func TestParseMessageErrors(t *testing.T) {
	if _, _, err := ParseMessage("  "); !errors.As(err, &ErrEmptyBody{}) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	_, meta, err := ParseMessage("{not json")
	var decodeErr ErrDecode
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if meta.BodyLen != 9 || meta.BodySHA == "" {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if _, _, err := ParseMessage(`{"kind":"analyze","requestId":"r"}`); !errors.As(err, &ErrMissingContactID{}) {
		t.Fatalf("expected ErrMissingContactID, got %v", err)
	}
}

func TestHandleMessageDispatchesByKind(t *testing.T) {
	p := &fakeProcessor{}

	if err := HandleMessage(context.Background(), p, encode(t, queue.Message{Kind: queue.KindTranscribe, ContactID: "c-1", RequestID: "r-1"})); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if err := HandleMessage(context.Background(), p, encode(t, queue.Message{Kind: queue.KindAnalyze, ContactID: "c-2", RequestID: "r-2"})); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(p.transcribed) != 1 || p.transcribed[0] != "c-1" {
		t.Fatalf("unexpected transcriptions %v", p.transcribed)
	}
	if len(p.analyzed) != 1 || p.analyzed[0] != "c-2" {
		t.Fatalf("unexpected analyses %v", p.analyzed)
	}
	if p.requestIDs[0] != "r-1" || p.requestIDs[1] != "r-2" {
		t.Fatalf("request ids not propagated: %v", p.requestIDs)
	}
}

func TestHandleMessageUsesParsedMessage(t *testing.T) {
	p := &fakeProcessor{}
	ctx := WithParsedMessage(context.Background(), queue.Message{Kind: queue.KindAnalyze, ContactID: "c-9"})
	if err := HandleMessage(ctx, p, "ignored"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(p.analyzed) != 1 || p.analyzed[0] != "c-9" {
		t.Fatalf("unexpected analyses %v", p.analyzed)
	}
}

func TestHandleMessageUnknownKind(t *testing.T) {
	err := HandleMessage(context.Background(), &fakeProcessor{}, encode(t, queue.Message{Kind: "summarize", ContactID: "c-1"}))
	if !Unrecoverable(err) {
		t.Fatalf("expected unrecoverable error, got %v", err)
	}
}

func TestHandleMessageWrapsProcessError(t *testing.T) {
	boom := errors.New("boom")
	err := HandleMessage(context.Background(), &fakeProcessor{err: boom}, encode(t, queue.Message{Kind: queue.KindAnalyze, ContactID: "c-1"}))
	var procErr ErrProcess
	if !errors.As(err, &procErr) || procErr.ContactID != "c-1" {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if !errors.Is(err, boom) || Unrecoverable(err) {
		t.Fatalf("process errors must stay retryable: %v", err)
	}
}

func TestHandleMessageNilProcessor(t *testing.T) {
	if err := HandleMessage(context.Background(), nil, "{}"); err == nil {
		t.Fatalf("expected error")
	}
}
