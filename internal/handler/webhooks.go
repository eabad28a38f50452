package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/ingest"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/middleware"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/service"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
)

const (
	twilioVoice = "Polly.Joanna"

	holdMessage        = "Please hold while I connect you with our AI assistant."
	unavailableMessage = "I'm sorry, we're unable to connect you right now. Please try again later."
	difficultyMessage  = "We're experiencing technical difficulties. Please try again later."
	smsFallbackMessage = "Sorry, we're experiencing an issue. Please try again or call us directly."
)

// WebhookOptions configures provider-facing behavior.
type WebhookOptions struct {
	VapiAssistant ingest.VapiAssistantOptions
	VapiSIPURI    string
}

// WebhookHandler receives Vapi and Twilio callbacks and feeds them to the
// tracker through the normalizer.
type WebhookHandler struct {
	tracker    *service.ConversationTracker
	normalizer *ingest.Normalizer
	assistant  *service.AssistantService
	opts       WebhookOptions
	now        func() time.Time
	logger     *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(
	tracker *service.ConversationTracker,
	normalizer *ingest.Normalizer,
	assistant *service.AssistantService,
	opts WebhookOptions,
	log *logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		tracker:    tracker,
		normalizer: normalizer,
		assistant:  assistant,
		opts:       opts,
		now:        time.Now,
		logger:     log,
	}
}

// Vapi handles POST /api/webhooks/vapi
func (h *WebhookHandler) Vapi(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.ForWebhook("vapi", middleware.GetCorrelationID(ctx))

	var payload ingest.VapiWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg := payload.Message
	log.Debug("vapi event", zap.String("type", msg.Type))

	update, err := ingest.VapiToUpdate(payload)
	switch {
	case errors.Is(err, ingest.ErrIgnoredEvent):
		log.Debug("vapi event not tracked", zap.String("type", msg.Type))
	case err != nil:
		log.Warn("failed to map vapi event", zap.Error(err))
	default:
		if msg.Type == ingest.VapiEndOfCallReport {
			h.enrichEndOfCall(ctx, &update, msg.Messages)
		}
		// Failures are logged and counted by the normalizer.
		_, _ = h.normalizer.TrackConversation(ctx, "vapi", update)
	}

	switch msg.Type {
	case ingest.VapiAssistantRequest:
		writeJSON(w, http.StatusOK, map[string]any{
			"assistant": ingest.BuildVapiAssistant(h.opts.VapiAssistant),
		})
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// enrichEndOfCall fills in the final transcript when no live transcript
// events were seen, and classifies sentiment when Vapi sent none.
func (h *WebhookHandler) enrichEndOfCall(ctx context.Context, update *model.ConversationUpdate, turns []ingest.VapiTurn) {
	rec, known := h.tracker.Conversation(update.ID)

	if !known || len(rec.Transcript) == 0 {
		update.Transcript = ingest.VapiTranscriptFromTurns(turns)
	}

	if update.Sentiment != nil || (known && rec.Sentiment != "") {
		return
	}

	transcript := append(rec.Transcript, update.Transcript...)
	sentiment, err := h.assistant.ClassifySentiment(ctx, transcript)
	if err != nil {
		if !errors.Is(err, service.ErrNoLLM) {
			h.logger.ForConversation(update.ID).Warn("sentiment classification failed", zap.Error(err))
		}
		return
	}
	update.Sentiment = model.Ptr(sentiment)
}

// TwilioVoice handles POST /api/webhooks/twilio/voice
func (h *WebhookHandler) TwilioVoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.ForWebhook("twilio", middleware.GetCorrelationID(ctx))

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	call := ingest.ParseTwilioCall(r.PostForm)
	log.Info("twilio call", zap.String("call_sid", call.CallSid), zap.String("status", call.CallStatus))

	update, err := call.ToUpdate()
	if err == nil {
		_, err = h.normalizer.TrackConversation(ctx, "twilio", update)
	}
	if err != nil {
		log.Warn("twilio voice webhook failed", zap.Error(err))
		writeTwiML(w, twimlResponse{Verbs: []any{twimlSay{Text: difficultyMessage}}})
		return
	}

	verbs := []any{twimlSay{Voice: twilioVoice, Text: holdMessage}}
	if h.opts.VapiSIPURI != "" {
		verbs = append(verbs,
			twimlDial{Sip: h.opts.VapiSIPURI},
			twimlSay{Voice: twilioVoice, Text: unavailableMessage},
		)
	}
	writeTwiML(w, twimlResponse{Verbs: verbs})
}

// TwilioVoiceStatus handles POST /api/webhooks/twilio/voice/status
func (h *WebhookHandler) TwilioVoiceStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.ForWebhook("twilio", middleware.GetCorrelationID(ctx))

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	call := ingest.ParseTwilioCall(r.PostForm)
	log.Info("twilio call status", zap.String("call_sid", call.CallSid), zap.String("status", call.CallStatus))

	update, err := call.ToUpdate()
	if err != nil {
		log.Warn("failed to map twilio status callback", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}
	_, _ = h.normalizer.TrackConversation(ctx, "twilio", update)

	w.WriteHeader(http.StatusOK)
}

// TwilioSMS handles POST /api/webhooks/twilio/sms
func (h *WebhookHandler) TwilioSMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.ForWebhook("twilio", middleware.GetCorrelationID(ctx))

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	sms := ingest.ParseTwilioSMS(r.PostForm)
	log.Info("twilio sms", zap.String("message_sid", sms.MessageSid), zap.String("from", sms.From))

	reply := h.assistant.Reply(ctx, model.ChannelSMS, sms.Body)

	update, err := sms.ToUpdate(reply, h.now())
	if err == nil {
		if sentiment, cerr := h.assistant.ClassifySentiment(ctx, update.Transcript); cerr == nil {
			update.Sentiment = model.Ptr(sentiment)
		}
		_, err = h.normalizer.TrackConversation(ctx, "twilio", update)
	}
	if err != nil {
		log.Warn("twilio sms webhook failed", zap.Error(err))
		writeTwiML(w, twimlResponse{Verbs: []any{twimlMessage{Text: smsFallbackMessage}}})
		return
	}

	writeTwiML(w, twimlResponse{Verbs: []any{twimlMessage{Text: reply}}})
}
