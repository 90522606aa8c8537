package transcribe

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/google/uuid"

	"compliance-backend/internal/shared/telemetry"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 60
	DefaultLanguage     = "vi-VN"
)

// API is the subset of the Amazon Transcribe client used here.
type API interface {
	StartTranscriptionJob(ctx context.Context, params *awstranscribe.StartTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, params *awstranscribe.GetTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.GetTranscriptionJobOutput, error)
}

// MediaStore is the bucket the recordings live in. Transcribe reads media from it
// and writes its output back into it.
type MediaStore interface {
	Bucket() string
	ObjectKey(storageKey string) string
	URI(storageKey string) string
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// AWSTranscriber runs one Amazon Transcribe job per recording and waits for it.
type AWSTranscriber struct {
	api          API
	store        MediaStore
	language     string
	pollInterval time.Duration
	maxAttempts  int
	jobName      func() string
}

// NewAWSTranscriber loads AWS config for region and builds a transcriber.
func NewAWSTranscriber(ctx context.Context, region string, store MediaStore, language string) (*AWSTranscriber, error) {
	if store == nil {
		return nil, fmt.Errorf("transcribe requires an S3 object store")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithAPI(awstranscribe.NewFromConfig(cfg), store, language), nil
}

// NewWithAPI builds a transcriber around an existing client.
func NewWithAPI(api API, store MediaStore, language string) *AWSTranscriber {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	return &AWSTranscriber{
		api:          api,
		store:        store,
		language:     language,
		pollInterval: DefaultPollInterval,
		maxAttempts:  DefaultMaxAttempts,
		jobName: func() string {
			return "transcribe_" + uuid.NewString()[:8]
		},
	}
}

// Transcribe starts a job for mediaKey, polls until it finishes and returns the
// transcript text.
func (t *AWSTranscriber) Transcribe(ctx context.Context, mediaKey string) (string, error) {
	if !ShouldProcess(mediaKey) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, mediaKey)
	}
	job := t.jobName()
	outputKey := OutputPrefix + "/" + job + ".json"

	_, err := t.api.StartTranscriptionJob(ctx, &awstranscribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(job),
		Media:                &types.Media{MediaFileUri: aws.String(t.store.URI(mediaKey))},
		MediaFormat:          types.MediaFormatWav,
		LanguageCode:         types.LanguageCode(t.language),
		OutputBucketName:     aws.String(t.store.Bucket()),
		OutputKey:            aws.String(t.store.ObjectKey(outputKey)),
		Settings:             &types.Settings{ShowSpeakerLabels: aws.Bool(false)},
	})
	if err != nil {
		return "", fmt.Errorf("start transcription job: %w", err)
	}
	telemetry.Info("transcribe.job.started", map[string]any{
		"job":        job,
		"contact_id": ContactIDFromKey(mediaKey),
		"media_key":  mediaKey,
		"language":   t.language,
	})

	if err := t.wait(ctx, job); err != nil {
		return "", err
	}

	body, err := t.store.Open(ctx, outputKey)
	if err != nil {
		return "", fmt.Errorf("open transcription output: %w", err)
	}
	defer body.Close()
	return ParseOutput(body)
}

func (t *AWSTranscriber) wait(ctx context.Context, job string) error {
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		out, err := t.api.GetTranscriptionJob(ctx, &awstranscribe.GetTranscriptionJobInput{
			TranscriptionJobName: aws.String(job),
		})
		if err != nil {
			return fmt.Errorf("get transcription job: %w", err)
		}
		if out.TranscriptionJob != nil {
			switch out.TranscriptionJob.TranscriptionJobStatus {
			case types.TranscriptionJobStatusCompleted:
				telemetry.Info("transcribe.job.completed", map[string]any{"job": job, "attempts": attempt})
				return nil
			case types.TranscriptionJobStatusFailed:
				return fmt.Errorf("%w: %s: %s", ErrJobFailed, job, aws.ToString(out.TranscriptionJob.FailureReason))
			}
		}
		if attempt == t.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.pollInterval):
		}
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrJobTimeout, job, t.maxAttempts)
}

var _ Transcriber = (*AWSTranscriber)(nil)
