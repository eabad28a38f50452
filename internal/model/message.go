package model

import (
	"time"
)

// Speaker identifies who said a transcript line.
type Speaker string

const (
	SpeakerAssistant    Speaker = "assistant"
	SpeakerCounterparty Speaker = "counterparty"
)

// TranscriptEntry is one line of a conversation transcript.
type TranscriptEntry struct {
	Speaker   Speaker   `json:"speaker" validate:"required,oneof=assistant counterparty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest is a message posted by the web chat widget.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

// ChatResponse is the assistant's reply to a ChatRequest.
type ChatResponse struct {
	ConversationID string    `json:"conversationId"`
	Response       string    `json:"response"`
	Timestamp      time.Time `json:"timestamp"`
}

// APIResponse wraps REST payloads for the dashboard.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AssistantStatus is the combined view returned by the status endpoint.
type AssistantStatus struct {
	Online              bool                 `json:"online"`
	ActiveConversations []ConversationRecord `json:"activeConversations"`
	Stats               AggregateStats       `json:"stats"`
}
