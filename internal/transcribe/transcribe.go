// Package transcribe turns call recordings into text with Amazon Transcribe.
package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// OutputPrefix is where transcription jobs write their JSON results.
const OutputPrefix = "transcribed"

var (
	ErrUnsupportedMedia = errors.New("unsupported media")
	ErrJobFailed        = errors.New("transcription job failed")
	ErrJobTimeout       = errors.New("transcription job did not finish")
	ErrNoTranscript     = errors.New("transcription output has no transcript")
)

// Transcriber turns a stored recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaKey string) (string, error)
}

type output struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

// ParseOutput decodes an Amazon Transcribe result document and returns the first
// transcript.
func ParseOutput(r io.Reader) (string, error) {
	var out output
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return "", fmt.Errorf("decode transcription output: %w", err)
	}
	if len(out.Results.Transcripts) == 0 {
		return "", ErrNoTranscript
	}
	return out.Results.Transcripts[0].Transcript, nil
}

// ShouldProcess reports whether key names a recording to transcribe: a .wav file
// that is not itself transcription output.
func ShouldProcess(key string) bool {
	if !strings.HasSuffix(strings.ToLower(key), ".wav") {
		return false
	}
	return !strings.Contains(key, OutputPrefix)
}

// ContactIDFromKey returns the contact ID encoded in a recording key: the part of
// the file name before the first underscore.
func ContactIDFromKey(key string) string {
	name := path.Base(key)
	if name == "." || name == "/" {
		return ""
	}
	id, _, _ := strings.Cut(name, "_")
	return id
}
