// Package model defines data structures for the conversation tracker.
package model

import (
	"time"
)

// Channel is the medium a conversation happens on.
type Channel string

const (
	ChannelPhone Channel = "phone"
	ChannelSMS   Channel = "sms"
	ChannelChat  Channel = "chat"
)

// Direction tells who initiated the conversation.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Status is the lifecycle state of a conversation.
type Status string

const (
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusNoAnswer   Status = "no-answer"
	StatusBusy       Status = "busy"
)

// IsTerminal reports whether no further updates are expected after s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusNoAnswer, StatusBusy:
		return true
	}
	return false
}

// IsMissed reports whether s counts as a missed call.
func (s Status) IsMissed() bool {
	return s == StatusNoAnswer || s == StatusBusy || s == StatusFailed
}

// Sentiment is the overall tone assigned to a finished conversation.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ConversationRecord is the canonical unit of tracked activity.
type ConversationRecord struct {
	ID               string            `json:"id"`
	Channel          Channel           `json:"channel"`
	Direction        Direction         `json:"direction"`
	Status           Status            `json:"status"`
	CounterpartyID   string            `json:"counterpartyId"`
	CounterpartyName string            `json:"counterpartyName,omitempty"`
	StartedAt        time.Time         `json:"startedAt"`
	DurationSeconds  *int              `json:"durationSeconds,omitempty"`
	Transcript       []TranscriptEntry `json:"transcript,omitempty"`
	Sentiment        Sentiment         `json:"sentiment,omitempty"`
	Summary          string            `json:"summary,omitempty"`
}

// Clone returns a deep copy that shares no memory with r.
func (r ConversationRecord) Clone() ConversationRecord {
	out := r
	if r.DurationSeconds != nil {
		d := *r.DurationSeconds
		out.DurationSeconds = &d
	}
	if r.Transcript != nil {
		out.Transcript = make([]TranscriptEntry, len(r.Transcript))
		copy(out.Transcript, r.Transcript)
	}
	return out
}

// ConversationUpdate is a partial ConversationRecord. Every field except ID
// is optional; nil means "leave the stored value alone".
type ConversationUpdate struct {
	ID               string            `json:"id" validate:"required,max=256"`
	Channel          *Channel          `json:"channel,omitempty" validate:"omitempty,oneof=phone sms chat"`
	Direction        *Direction        `json:"direction,omitempty" validate:"omitempty,oneof=inbound outbound"`
	Status           *Status           `json:"status,omitempty" validate:"required,oneof=ringing in-progress completed failed no-answer busy"`
	CounterpartyID   *string           `json:"counterpartyId,omitempty" validate:"omitempty,max=256"`
	CounterpartyName *string           `json:"counterpartyName,omitempty" validate:"omitempty,max=256"`
	StartedAt        *time.Time        `json:"startedAt,omitempty"`
	DurationSeconds  *int              `json:"durationSeconds,omitempty" validate:"omitempty,min=0"`
	Transcript       []TranscriptEntry `json:"transcript,omitempty" validate:"omitempty,dive"`
	Sentiment        *Sentiment        `json:"sentiment,omitempty" validate:"omitempty,oneof=positive neutral negative"`
	Summary          *string           `json:"summary,omitempty"`
}

// NewRecord builds a fresh record from u. Missing direction defaults to
// inbound and a missing start time to now.
func NewRecord(u ConversationUpdate, now time.Time, retention int) ConversationRecord {
	rec := ConversationRecord{
		ID:        u.ID,
		Direction: DirectionInbound,
		StartedAt: now,
	}
	if u.StartedAt != nil {
		rec.StartedAt = *u.StartedAt
	}
	rec.Merge(u, retention)
	return rec
}

// Merge applies u field-wise onto r. Present fields overwrite, absent fields
// are preserved. StartedAt is never changed after creation, transcript
// entries are appended and Sentiment is only set once.
func (r *ConversationRecord) Merge(u ConversationUpdate, retention int) {
	if u.Channel != nil {
		r.Channel = *u.Channel
	}
	if u.Direction != nil {
		r.Direction = *u.Direction
	}
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.CounterpartyID != nil {
		r.CounterpartyID = *u.CounterpartyID
	}
	if u.CounterpartyName != nil {
		r.CounterpartyName = *u.CounterpartyName
	}
	if u.DurationSeconds != nil {
		d := *u.DurationSeconds
		r.DurationSeconds = &d
	}
	if len(u.Transcript) > 0 {
		r.Transcript = append(r.Transcript, u.Transcript...)
	}
	if retention > 0 && len(r.Transcript) > retention {
		trimmed := make([]TranscriptEntry, retention)
		copy(trimmed, r.Transcript[len(r.Transcript)-retention:])
		r.Transcript = trimmed
	}
	if u.Sentiment != nil && r.Sentiment == "" {
		r.Sentiment = *u.Sentiment
	}
	if u.Summary != nil {
		r.Summary = *u.Summary
	}
}

// Ptr returns a pointer to v. Handy for building updates.
func Ptr[T any](v T) *T {
	return &v
}
