package ingest

import (
	"math"
	"strings"
	"time"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
)

// Vapi server message types.
const (
	VapiAssistantRequest = "assistant-request"
	VapiFunctionCall     = "function-call"
	VapiStatusUpdate     = "status-update"
	VapiEndOfCallReport  = "end-of-call-report"
	VapiTranscript       = "transcript"
	VapiHang             = "hang"
	VapiSpeechUpdate     = "speech-update"
)

// VapiWebhookPayload is the body Vapi posts to the server URL.
type VapiWebhookPayload struct {
	Message VapiMessage `json:"message"`
}

// VapiMessage is the envelope inside every Vapi server message.
type VapiMessage struct {
	Type            string        `json:"type"`
	Call            *VapiCall     `json:"call,omitempty"`
	Status          string        `json:"status,omitempty"`
	EndedReason     string        `json:"endedReason,omitempty"`
	Role            string        `json:"role,omitempty"`
	TranscriptType  string        `json:"transcriptType,omitempty"`
	Transcript      string        `json:"transcript,omitempty"`
	Summary         string        `json:"summary,omitempty"`
	Messages        []VapiTurn    `json:"messages,omitempty"`
	DurationSeconds *float64      `json:"durationSeconds,omitempty"`
	StartedAt       *time.Time    `json:"startedAt,omitempty"`
	EndedAt         *time.Time    `json:"endedAt,omitempty"`
	Analysis        *VapiAnalysis `json:"analysis,omitempty"`
}

// VapiCall identifies the call a message belongs to.
type VapiCall struct {
	ID            string        `json:"id"`
	OrgID         string        `json:"orgId"`
	Type          string        `json:"type"`
	Status        string        `json:"status"`
	PhoneNumberID string        `json:"phoneNumberId,omitempty"`
	Customer      *VapiCustomer `json:"customer,omitempty"`
	CreatedAt     *time.Time    `json:"createdAt,omitempty"`
}

// VapiCustomer is the remote party of a call.
type VapiCustomer struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

// VapiTurn is one message of an end-of-call transcript.
type VapiTurn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// VapiAnalysis is the post-call analysis block.
type VapiAnalysis struct {
	Summary   string `json:"summary,omitempty"`
	Sentiment string `json:"sentiment,omitempty"`
}

var vapiStatuses = map[string]model.Status{
	"queued":      model.StatusRinging,
	"ringing":     model.StatusRinging,
	"in-progress": model.StatusInProgress,
	"forwarding":  model.StatusInProgress,
}

// VapiToUpdate maps a Vapi message onto a conversation update. Messages
// without a call, status-update "ended" (the end-of-call report that follows
// carries the terminal state) and partial transcripts return ErrIgnoredEvent.
func VapiToUpdate(p VapiWebhookPayload) (model.ConversationUpdate, error) {
	msg := p.Message
	if msg.Call == nil || msg.Call.ID == "" {
		return model.ConversationUpdate{}, ErrIgnoredEvent
	}

	u := model.ConversationUpdate{
		ID:        msg.Call.ID,
		Channel:   model.Ptr(model.ChannelPhone),
		Direction: model.Ptr(vapiDirection(msg.Call.Type)),
		StartedAt: msg.Call.CreatedAt,
	}
	if msg.Call.Customer != nil {
		number := msg.Call.Customer.Number
		if number == "" {
			number = "Unknown"
		}
		u.CounterpartyID = model.Ptr(number)
		if msg.Call.Customer.Name != "" {
			u.CounterpartyName = model.Ptr(msg.Call.Customer.Name)
		}
	}

	switch msg.Type {
	case VapiStatusUpdate:
		if msg.Status == "ended" {
			return model.ConversationUpdate{}, ErrIgnoredEvent
		}
		u.Status = model.Ptr(mapVapiStatus(msg.Status))

	case VapiEndOfCallReport:
		u.Status = model.Ptr(vapiEndedStatus(msg.EndedReason))
		if d, ok := vapiDuration(msg); ok {
			u.DurationSeconds = model.Ptr(d)
		}
		summary := msg.Summary
		if summary == "" && msg.Analysis != nil {
			summary = msg.Analysis.Summary
		}
		if summary != "" {
			u.Summary = model.Ptr(summary)
		}
		if msg.Analysis != nil {
			if s, err := parseSentimentLabel(msg.Analysis.Sentiment); err == nil {
				u.Sentiment = model.Ptr(s)
			}
		}

	case VapiTranscript:
		if msg.TranscriptType != "" && msg.TranscriptType != "final" {
			return model.ConversationUpdate{}, ErrIgnoredEvent
		}
		u.Status = model.Ptr(model.StatusInProgress)
		speaker, ok := vapiSpeaker(msg.Role)
		if ok && strings.TrimSpace(msg.Transcript) != "" {
			u.Transcript = []model.TranscriptEntry{{Speaker: speaker, Text: msg.Transcript}}
		}

	default:
		u.Status = model.Ptr(mapVapiStatus(msg.Status))
	}

	return u, nil
}

// VapiTranscriptFromTurns converts end-of-call messages into transcript
// entries, skipping system and tool turns.
func VapiTranscriptFromTurns(turns []VapiTurn) []model.TranscriptEntry {
	out := make([]model.TranscriptEntry, 0, len(turns))
	for _, t := range turns {
		speaker, ok := vapiSpeaker(t.Role)
		if !ok || strings.TrimSpace(t.Message) == "" {
			continue
		}
		out = append(out, model.TranscriptEntry{Speaker: speaker, Text: t.Message})
	}
	return out
}

func mapVapiStatus(status string) model.Status {
	if s, ok := vapiStatuses[status]; ok {
		return s
	}
	return model.StatusInProgress
}

func vapiEndedStatus(reason string) model.Status {
	r := strings.ToLower(reason)
	switch {
	case strings.Contains(r, "did-not-answer"), strings.Contains(r, "no-answer"):
		return model.StatusNoAnswer
	case strings.Contains(r, "busy"):
		return model.StatusBusy
	case strings.Contains(r, "error"), strings.Contains(r, "failed"):
		return model.StatusFailed
	default:
		return model.StatusCompleted
	}
}

func vapiDirection(callType string) model.Direction {
	if strings.HasPrefix(strings.ToLower(callType), "outbound") {
		return model.DirectionOutbound
	}
	return model.DirectionInbound
}

func vapiSpeaker(role string) (model.Speaker, bool) {
	switch role {
	case "assistant", "bot":
		return model.SpeakerAssistant, true
	case "user", "customer":
		return model.SpeakerCounterparty, true
	default:
		return "", false
	}
}

func vapiDuration(msg VapiMessage) (int, bool) {
	if msg.DurationSeconds != nil && *msg.DurationSeconds >= 0 {
		return int(math.Round(*msg.DurationSeconds)), true
	}
	if msg.StartedAt != nil && msg.EndedAt != nil && msg.EndedAt.After(*msg.StartedAt) {
		return int(math.Round(msg.EndedAt.Sub(*msg.StartedAt).Seconds())), true
	}
	return 0, false
}

func parseSentimentLabel(label string) (model.Sentiment, error) {
	switch s := model.Sentiment(strings.ToLower(strings.TrimSpace(label))); s {
	case model.SentimentPositive, model.SentimentNeutral, model.SentimentNegative:
		return s, nil
	}
	return "", ErrIgnoredEvent
}
