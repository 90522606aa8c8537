package openai

import (
	"strings"

	"compliance-backend/internal/llm"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

const (
	systemPrompt   = "You are a banking customer service quality auditor. Respond with JSON only. No markdown."
	systemPromptV5 = "You are a banking customer service quality auditor. Respond with a single JSON object only. No markdown. Never omit keys."
)

// BuildPrompt creates the chat messages for a call compliance analysis request.
func BuildPrompt(transcript string, model string) []Message {
	system := systemPrompt
	if isGPT5(model) {
		system = systemPromptV5
	}
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: llm.BuildAnalysisPrompt(transcript)},
	}
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}
