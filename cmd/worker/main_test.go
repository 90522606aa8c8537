package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"compliance-backend/internal/queue"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	_ = ctx
	_ = params
	_ = optFns
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	_ = ctx
	_ = optFns
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	err         error
	transcribed []string
	analyzed    []string
	ctxErrs     []error
}

func (f *fakeProcessor) ProcessTranscription(ctx context.Context, contactID string) error {
	_ = ctx
	f.transcribed = append(f.transcribed, contactID)
	return f.err
}

func (f *fakeProcessor) ProcessAnalysis(ctx context.Context, contactID string) error {
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.analyzed = append(f.analyzed, contactID)
	return f.err
}

func sqsMessage(t *testing.T, id string, body queue.Message) sqstypes.Message {
	t.Helper()
	payload, err := queue.EncodeMessage(body)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(string(payload)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	processor := &fakeProcessor{}
	msg := sqsMessage(t, "m1", queue.Message{Kind: queue.KindAnalyze, ContactID: "C-1", RequestID: "req-1"})

	handleMessage(context.Background(), client, "queue", processor, msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
	if len(processor.analyzed) != 1 || processor.analyzed[0] != "C-1" {
		t.Fatalf("expected analysis of C-1, got %v", processor.analyzed)
	}
}

func TestWorkerDispatchesTranscription(t *testing.T) {
	client := &fakeSQS{}
	processor := &fakeProcessor{}
	msg := sqsMessage(t, "m2", queue.Message{Kind: queue.KindTranscribe, ContactID: "C-2"})

	handleMessage(context.Background(), client, "queue", processor, msg)

	if len(processor.transcribed) != 1 || len(processor.analyzed) != 0 {
		t.Fatalf("expected transcription only, got t=%v a=%v", processor.transcribed, processor.analyzed)
	}
	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDoesNotDeleteOnFailure(t *testing.T) {
	client := &fakeSQS{}
	processor := &fakeProcessor{err: errors.New("llm: throttled")}
	msg := sqsMessage(t, "m3", queue.Message{Kind: queue.KindAnalyze, ContactID: "C-3"})

	handleMessage(context.Background(), client, "queue", processor, msg)

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	msg := sqstypes.Message{
		MessageId:     aws.String("m4"),
		ReceiptHandle: aws.String("r4"),
		Body:          aws.String("{bad-json"),
	}

	handleMessage(context.Background(), client, "queue", &fakeProcessor{}, msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesUnknownKind(t *testing.T) {
	client := &fakeSQS{}
	processor := &fakeProcessor{}
	msg := sqsMessage(t, "m5", queue.Message{Kind: "reindex", ContactID: "C-5"})

	handleMessage(context.Background(), client, "queue", processor, msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
	if len(processor.analyzed)+len(processor.transcribed) != 0 {
		t.Fatalf("expected no processing")
	}
}

func TestWorkerJobsSurviveShutdownSignal(t *testing.T) {
	signalCtx, stop := context.WithCancel(context.Background())
	jobCtx, cancelJobs := detachJobs(signalCtx)
	defer cancelJobs()
	stop()

	client := &fakeSQS{}
	processor := &fakeProcessor{}
	msg := sqsMessage(t, "m6", queue.Message{Kind: queue.KindAnalyze, ContactID: "C-6"})
	handleMessage(jobCtx, client, "queue", processor, msg)

	if len(processor.ctxErrs) != 1 || processor.ctxErrs[0] != nil {
		t.Fatalf("expected live job context, got %v", processor.ctxErrs)
	}
	if len(client.deleted) != 1 {
		t.Fatalf("expected delete after signal, got %d", len(client.deleted))
	}

	cancelJobs()
	if !errors.Is(jobCtx.Err(), context.Canceled) {
		t.Fatalf("expected jobs cancelled after shutdown timeout, got %v", jobCtx.Err())
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := receiveCount(sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}
