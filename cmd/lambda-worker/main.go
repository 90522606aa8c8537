package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"golang.org/x/sync/errgroup"

	"compliance-backend/internal/bootstrap"
	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/telemetry"
	"compliance-backend/internal/workerproc"
)

const maxConcurrentRecords = 4

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda_worker.bootstrap_failed", map[string]any{"err": initErr})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processBatch(ctx, app.Processor, event), nil
}

// processBatch reports only retryable failures; poison messages are dropped.
func processBatch(ctx context.Context, processor workerproc.Processor, event events.SQSEvent) events.SQSEventResponse {
	var (
		mu       sync.Mutex
		failures = make([]events.SQSBatchItemFailure, 0)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRecords)
	for _, record := range event.Records {
		record := record
		g.Go(func() error {
			err := workerproc.HandleMessage(gctx, processor, record.Body)
			if err == nil {
				return nil
			}
			if workerproc.Unrecoverable(err) {
				telemetry.Warn("lambda_worker.message_dropped", map[string]any{
					"message_id": record.MessageId,
					"err":        err,
				})
				return nil
			}
			telemetry.Error("lambda_worker.message_failed", map[string]any{
				"message_id": record.MessageId,
				"err":        err,
			})
			mu.Lock()
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
