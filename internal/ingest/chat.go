package ingest

import (
	"time"

	"github.com/google/uuid"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
)

// ChatCounterparty is the counterparty id used for anonymous web visitors.
const ChatCounterparty = "web-visitor"

// NewChatID allocates an id for a new web chat session.
func NewChatID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ChatTurnToUpdate maps one widget message and its reply onto an
// in-progress chat conversation update.
func ChatTurnToUpdate(conversationID, message, reply string, now time.Time) model.ConversationUpdate {
	return model.ConversationUpdate{
		ID:             conversationID,
		Channel:        model.Ptr(model.ChannelChat),
		Direction:      model.Ptr(model.DirectionInbound),
		Status:         model.Ptr(model.StatusInProgress),
		CounterpartyID: model.Ptr(ChatCounterparty),
		Transcript: []model.TranscriptEntry{
			{Speaker: model.SpeakerCounterparty, Text: message, Timestamp: now},
			{Speaker: model.SpeakerAssistant, Text: reply, Timestamp: now},
		},
	}
}

// ChatEndToUpdate closes a chat conversation.
func ChatEndToUpdate(conversationID string) model.ConversationUpdate {
	return model.ConversationUpdate{
		ID:      conversationID,
		Channel: model.Ptr(model.ChannelChat),
		Status:  model.Ptr(model.StatusCompleted),
	}
}
