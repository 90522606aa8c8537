package queue

import (
	"context"
	"encoding/json"
)

// Client sends job messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

const (
	KindTranscribe = "transcribe"
	KindAnalyze    = "analyze"
)

// MessageVersion is the payload version written by this build.
const MessageVersion = 1

// Message is the payload sent to downstream queue consumers.
type Message struct {
	Kind       string `json:"kind"`
	ContactID  string `json:"contactId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message. A missing kind means analyze.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Kind == "" {
		msg.Kind = KindAnalyze
	}
	return msg, nil
}
