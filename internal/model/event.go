package model

import (
	"encoding/json"
	"time"
)

// EventType represents the type of broadcast event.
type EventType string

const (
	EventConversationStarted EventType = "conversation-started"
	EventConversationUpdated EventType = "conversation-updated"
	EventConversationEnded   EventType = "conversation-ended"
	EventStatsUpdated        EventType = "stats-updated"
)

// EventEnvelope is the unit of broadcast to observers. Data is either a
// ConversationRecord or AggregateStats depending on Type.
type EventEnvelope struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// RawEnvelope is the decoding side of EventEnvelope.
type RawEnvelope struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Record decodes the envelope payload as a ConversationRecord.
func (e RawEnvelope) Record() (ConversationRecord, error) {
	var rec ConversationRecord
	err := json.Unmarshal(e.Data, &rec)
	return rec, err
}

// Stats decodes the envelope payload as AggregateStats.
func (e RawEnvelope) Stats() (AggregateStats, error) {
	var s AggregateStats
	err := json.Unmarshal(e.Data, &s)
	return s, err
}
