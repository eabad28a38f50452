package ingest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
)

// TwilioCallWebhook is the form payload of a Twilio voice webhook or status
// callback.
type TwilioCallWebhook struct {
	CallSid      string
	AccountSid   string
	From         string
	To           string
	CallStatus   string
	Direction    string
	CallerName   string
	CallDuration string
	APIVersion   string
}

// TwilioSMSWebhook is the form payload of an incoming Twilio SMS.
type TwilioSMSWebhook struct {
	MessageSid string
	AccountSid string
	From       string
	To         string
	Body       string
	NumMedia   string
}

// ParseTwilioCall reads a voice webhook from decoded form values.
func ParseTwilioCall(form url.Values) TwilioCallWebhook {
	return TwilioCallWebhook{
		CallSid:      form.Get("CallSid"),
		AccountSid:   form.Get("AccountSid"),
		From:         form.Get("From"),
		To:           form.Get("To"),
		CallStatus:   form.Get("CallStatus"),
		Direction:    form.Get("Direction"),
		CallerName:   form.Get("CallerName"),
		CallDuration: form.Get("CallDuration"),
		APIVersion:   form.Get("ApiVersion"),
	}
}

// ParseTwilioSMS reads an SMS webhook from decoded form values.
func ParseTwilioSMS(form url.Values) TwilioSMSWebhook {
	return TwilioSMSWebhook{
		MessageSid: form.Get("MessageSid"),
		AccountSid: form.Get("AccountSid"),
		From:       form.Get("From"),
		To:         form.Get("To"),
		Body:       form.Get("Body"),
		NumMedia:   form.Get("NumMedia"),
	}
}

var twilioCallStatuses = map[string]model.Status{
	"queued":      model.StatusRinging,
	"initiated":   model.StatusRinging,
	"ringing":     model.StatusRinging,
	"in-progress": model.StatusInProgress,
	"completed":   model.StatusCompleted,
	"busy":        model.StatusBusy,
	"no-answer":   model.StatusNoAnswer,
	"failed":      model.StatusFailed,
	"canceled":    model.StatusFailed,
}

// ToUpdate maps the call webhook onto a phone conversation update.
func (w TwilioCallWebhook) ToUpdate() (model.ConversationUpdate, error) {
	if w.CallSid == "" {
		return model.ConversationUpdate{}, fmt.Errorf("%w: missing CallSid", ErrMalformedPayload)
	}

	status, ok := twilioCallStatuses[w.CallStatus]
	if !ok {
		status = model.StatusInProgress
	}

	direction := model.DirectionOutbound
	counterparty := w.To
	if w.Direction == "inbound" {
		direction = model.DirectionInbound
		counterparty = w.From
	}

	u := model.ConversationUpdate{
		ID:             w.CallSid,
		Channel:        model.Ptr(model.ChannelPhone),
		Direction:      model.Ptr(direction),
		Status:         model.Ptr(status),
		CounterpartyID: model.Ptr(counterparty),
	}
	if w.CallerName != "" {
		u.CounterpartyName = model.Ptr(w.CallerName)
	}
	if w.CallDuration != "" {
		d, err := strconv.Atoi(strings.TrimSpace(w.CallDuration))
		if err != nil || d < 0 {
			return model.ConversationUpdate{}, fmt.Errorf("%w: invalid CallDuration %q", ErrMalformedPayload, w.CallDuration)
		}
		u.DurationSeconds = model.Ptr(d)
	}

	return u, nil
}

// ToUpdate maps an answered SMS onto a single-shot completed conversation
// holding the inbound text and the reply.
func (w TwilioSMSWebhook) ToUpdate(reply string, now time.Time) (model.ConversationUpdate, error) {
	if w.MessageSid == "" {
		return model.ConversationUpdate{}, fmt.Errorf("%w: missing MessageSid", ErrMalformedPayload)
	}

	return model.ConversationUpdate{
		ID:             w.MessageSid,
		Channel:        model.Ptr(model.ChannelSMS),
		Direction:      model.Ptr(model.DirectionInbound),
		Status:         model.Ptr(model.StatusCompleted),
		CounterpartyID: model.Ptr(w.From),
		StartedAt:      &now,
		Transcript: []model.TranscriptEntry{
			{Speaker: model.SpeakerCounterparty, Text: w.Body, Timestamp: now},
			{Speaker: model.SpeakerAssistant, Text: reply, Timestamp: now},
		},
	}, nil
}
