package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/ingest"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/middleware"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/service"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
)

// AssistantHandler serves the dashboard REST endpoints and the web chat widget.
type AssistantHandler struct {
	tracker    *service.ConversationTracker
	normalizer *ingest.Normalizer
	assistant  *service.AssistantService
	now        func() time.Time
	logger     *logger.Logger
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(
	tracker *service.ConversationTracker,
	normalizer *ingest.Normalizer,
	assistant *service.AssistantService,
	log *logger.Logger,
) *AssistantHandler {
	return &AssistantHandler{
		tracker:    tracker,
		normalizer: normalizer,
		assistant:  assistant,
		now:        time.Now,
		logger:     log,
	}
}

// Status handles GET /api/assistant/status
func (h *AssistantHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, model.AssistantStatus{
		Online:              true,
		ActiveConversations: h.tracker.ActiveConversations(),
		Stats:               h.tracker.Stats(),
	})
}

// Conversations handles GET /api/assistant/conversations
func (h *AssistantHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.tracker.ActiveConversations())
}

// Conversation handles GET /api/assistant/conversations/{id}
func (h *AssistantHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.tracker.Conversation(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeSuccess(w, rec)
}

// Stats handles GET /api/assistant/stats
func (h *AssistantHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.tracker.Stats())
}

// ResetStats handles POST /api/assistant/admin/stats/reset
func (h *AssistantHandler) ResetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.tracker.ResetDaily()
	op, _ := middleware.OperatorFrom(r.Context())
	h.logger.Info("stats reset by operator",
		zap.String("operator", op.Subject),
		zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
	)
	writeSuccess(w, stats)
}

// Chat handles POST /api/assistant/chat
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = ingest.NewChatID()
	} else if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply := h.assistant.Reply(ctx, model.ChannelChat, req.Message)
	now := h.now()

	update := ingest.ChatTurnToUpdate(conversationID, req.Message, reply, now)
	if _, err := h.normalizer.TrackConversation(ctx, "chat", update); err != nil {
		h.writeTrackError(w, err)
		return
	}

	writeSuccess(w, model.ChatResponse{
		ConversationID: conversationID,
		Response:       reply,
		Timestamp:      now.UTC(),
	})
}

// EndChat handles POST /api/assistant/chat/{id}/end
func (h *AssistantHandler) EndChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, ok := h.tracker.Conversation(conversationID)
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	update := ingest.ChatEndToUpdate(conversationID)
	if rec.Sentiment == "" {
		if sentiment, err := h.assistant.ClassifySentiment(ctx, rec.Transcript); err == nil {
			update.Sentiment = model.Ptr(sentiment)
		}
	}

	kind, err := h.normalizer.TrackExistingConversation(ctx, "chat", update)
	if errors.Is(err, service.ErrUnknownConversation) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		h.writeTrackError(w, err)
		return
	}
	writeSuccess(w, map[string]string{
		"conversationId": update.ID,
		"transition":     kind.String(),
	})
}

func (h *AssistantHandler) writeTrackError(w http.ResponseWriter, err error) {
	if errors.Is(err, ingest.ErrMalformedPayload) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("failed to track chat", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "failed to track conversation")
}
