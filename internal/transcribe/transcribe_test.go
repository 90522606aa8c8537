package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
)

func TestParseOutput(t *testing.T) {
	doc := `{"jobName":"j","results":{"transcripts":[{"transcript":"Xin chào quý khách"}],"items":[]}}`
	got, err := ParseOutput(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseOutput: %v", err)
	}
	if got != "Xin chào quý khách" {
		t.Fatalf("unexpected transcript %q", got)
	}

	if _, err := ParseOutput(strings.NewReader(`{"results":{"transcripts":[]}}`)); !errors.Is(err, ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript, got %v", err)
	}
	if _, err := ParseOutput(strings.NewReader(`{`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestShouldProcess(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{key: "recordings/C123_2024.wav", want: true},
		{key: "recordings/C123_2024.WAV", want: true},
		{key: "recordings/C123_2024.mp3", want: false},
		{key: "transcribed/job.wav", want: false},
		{key: "transcribed/job.json", want: false},
	}
	for _, tt := range tests {
		if got := ShouldProcess(tt.key); got != tt.want {
			t.Fatalf("ShouldProcess(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestContactIDFromKey(t *testing.T) {
	tests := map[string]string{
		"recordings/C123_2024-01-01.wav": "C123",
		"C9_a_b.wav":                     "C9",
		"recordings/nounderscore.wav":    "nounderscore.wav",
		"":                               "",
	}
	for key, want := range tests {
		if got := ContactIDFromKey(key); got != want {
			t.Fatalf("ContactIDFromKey(%q) = %q, want %q", key, got, want)
		}
	}
}

type fakeAPI struct {
	started  *awstranscribe.StartTranscriptionJobInput
	statuses []types.TranscriptionJobStatus
	polls    int
	reason   string
}

func (f *fakeAPI) StartTranscriptionJob(ctx context.Context, params *awstranscribe.StartTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.StartTranscriptionJobOutput, error) {
	f.started = params
	return &awstranscribe.StartTranscriptionJobOutput{}, nil
}

func (f *fakeAPI) GetTranscriptionJob(ctx context.Context, params *awstranscribe.GetTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.GetTranscriptionJobOutput, error) {
	status := f.statuses[len(f.statuses)-1]
	if f.polls < len(f.statuses) {
		status = f.statuses[f.polls]
	}
	f.polls++
	return &awstranscribe.GetTranscriptionJobOutput{
		TranscriptionJob: &types.TranscriptionJob{
			TranscriptionJobName:   params.TranscriptionJobName,
			TranscriptionJobStatus: status,
			FailureReason:          aws.String(f.reason),
		},
	}, nil
}

type fakeStore struct {
	objects map[string]string
}

func (s *fakeStore) Bucket() string { return "calls-bucket" }
func (s *fakeStore) ObjectKey(key string) string { return "prod/" + key }
func (s *fakeStore) URI(key string) string { return "s3://calls-bucket/prod/" + key }
func (s *fakeStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	body, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("missing %s", key)
	}
	return io.NopCloser(bytes.NewBufferString(body)), nil
}

func newTestTranscriber(api API, store MediaStore) *AWSTranscriber {
	tr := NewWithAPI(api, store, "")
	tr.pollInterval = time.Millisecond
	tr.maxAttempts = 3
	tr.jobName = func() string { return "transcribe_test" }
	return tr
}

func TestAWSTranscriberCompletes(t *testing.T) {
	api := &fakeAPI{statuses: []types.TranscriptionJobStatus{
		types.TranscriptionJobStatusInProgress,
		types.TranscriptionJobStatusCompleted,
	}}
	store := &fakeStore{objects: map[string]string{
		"transcribed/transcribe_test.json": `{"results":{"transcripts":[{"transcript":"Alo"}]}}`,
	}}

	got, err := newTestTranscriber(api, store).Transcribe(context.Background(), "recordings/C1_a.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "Alo" {
		t.Fatalf("unexpected transcript %q", got)
	}
	in := api.started
	if aws.ToString(in.Media.MediaFileUri) != "s3://calls-bucket/prod/recordings/C1_a.wav" {
		t.Fatalf("unexpected media uri %q", aws.ToString(in.Media.MediaFileUri))
	}
	if aws.ToString(in.OutputKey) != "prod/transcribed/transcribe_test.json" || aws.ToString(in.OutputBucketName) != "calls-bucket" {
		t.Fatalf("unexpected output location %q/%q", aws.ToString(in.OutputBucketName), aws.ToString(in.OutputKey))
	}
	if in.LanguageCode != types.LanguageCode("vi-VN") || in.MediaFormat != types.MediaFormatWav {
		t.Fatalf("unexpected job settings %+v", in)
	}
	if api.polls != 2 {
		t.Fatalf("expected 2 polls, got %d", api.polls)
	}
}

func TestAWSTranscriberJobFailed(t *testing.T) {
	api := &fakeAPI{statuses: []types.TranscriptionJobStatus{types.TranscriptionJobStatusFailed}, reason: "bad audio"}
	_, err := newTestTranscriber(api, &fakeStore{}).Transcribe(context.Background(), "recordings/C1_a.wav")
	if !errors.Is(err, ErrJobFailed) || !strings.Contains(err.Error(), "bad audio") {
		t.Fatalf("expected ErrJobFailed, got %v", err)
	}
}

func TestAWSTranscriberGivesUp(t *testing.T) {
	api := &fakeAPI{statuses: []types.TranscriptionJobStatus{types.TranscriptionJobStatusInProgress}}
	_, err := newTestTranscriber(api, &fakeStore{}).Transcribe(context.Background(), "recordings/C1_a.wav")
	if !errors.Is(err, ErrJobTimeout) {
		t.Fatalf("expected ErrJobTimeout, got %v", err)
	}
	if api.polls != 3 {
		t.Fatalf("expected 3 polls, got %d", api.polls)
	}
}

func TestAWSTranscriberHonorsContext(t *testing.T) {
	api := &fakeAPI{statuses: []types.TranscriptionJobStatus{types.TranscriptionJobStatusQueued}}
	tr := newTestTranscriber(api, &fakeStore{})
	tr.pollInterval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tr.Transcribe(ctx, "recordings/C1_a.wav"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAWSTranscriberRejectsNonWav(t *testing.T) {
	api := &fakeAPI{}
	_, err := newTestTranscriber(api, &fakeStore{}).Transcribe(context.Background(), "recordings/C1_a.mp3")
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}
	if api.started != nil {
		t.Fatalf("job should not start")
	}
}
