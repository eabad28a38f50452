package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/llm"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/metrics"
)

// ErrNoLLM is returned when a feature needs an LLM and none is configured.
var ErrNoLLM = errors.New("no LLM client configured")

const replyPrompt = `You are a friendly, professional AI receptionist for Time & Attention AI.
Reply to the following %s message in at most two short sentences. Be warm and give a clear next step.

Message: %s`

const sentimentPrompt = `Classify the overall sentiment of the caller in this conversation transcript.
Answer with exactly one word: positive, neutral or negative.

%s`

// AssistantService generates replies for SMS and web chat and classifies
// conversation sentiment. It works without an LLM by falling back to
// keyword templates.
type AssistantService struct {
	llmClient llm.Client
	timeout   time.Duration
	logger    *logger.Logger
}

// NewAssistantService creates an assistant. llmClient may be nil.
func NewAssistantService(llmClient llm.Client, log *logger.Logger) *AssistantService {
	return &AssistantService{
		llmClient: llmClient,
		timeout:   10 * time.Second,
		logger:    log,
	}
}

// Reply answers an inbound message on the given channel.
func (s *AssistantService) Reply(ctx context.Context, channel model.Channel, message string) string {
	if s.llmClient != nil {
		text, err := s.complete(ctx, "reply", fmt.Sprintf(replyPrompt, channel, message))
		if err == nil {
			return text
		}
		s.logger.Warn("LLM reply failed, using template", zap.String("channel", string(channel)), zap.Error(err))
	}
	return templateReply(channel, message)
}

// ClassifySentiment asks the LLM for the tone of a transcript.
func (s *AssistantService) ClassifySentiment(ctx context.Context, transcript []model.TranscriptEntry) (model.Sentiment, error) {
	if s.llmClient == nil {
		return "", ErrNoLLM
	}
	if len(transcript) == 0 {
		return "", errors.New("empty transcript")
	}

	var b strings.Builder
	for _, entry := range transcript {
		fmt.Fprintf(&b, "%s: %s\n", entry.Speaker, entry.Text)
	}

	text, err := s.complete(ctx, "sentiment", fmt.Sprintf(sentimentPrompt, b.String()))
	if err != nil {
		return "", err
	}
	return ParseSentiment(text)
}

// ParseSentiment extracts a sentiment label from free-form model output.
func ParseSentiment(text string) (model.Sentiment, error) {
	lower := strings.ToLower(text)
	for _, s := range []model.Sentiment{model.SentimentNegative, model.SentimentPositive, model.SentimentNeutral} {
		if strings.Contains(lower, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unrecognized sentiment %q", strings.TrimSpace(text))
}

func (s *AssistantService) complete(ctx context.Context, purpose, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	out, err := s.llmClient.Complete(ctx, llm.Prompt{
		Text:        prompt,
		MaxTokens:   200,
		Temperature: 0.3,
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordLLM(s.llmClient.Name(), purpose, status, time.Since(start).Seconds(), out.TokensIn, out.TokensOut)
	return out.Text, err
}

func templateReply(channel model.Channel, message string) string {
	lower := strings.ToLower(message)

	switch {
	case channel == model.ChannelChat && containsAny(lower, "hello", "hi", "hey"):
		return "Hey there! I'm the AI assistant for Time & Attention. How can I help you today?"
	case containsAny(lower, "hours", "open"):
		return "We're available 24/7 through our AI assistant! For a human representative, our office hours are Mon-Fri 9am-5pm EST."
	case containsAny(lower, "appointment", "schedule"):
		return "I'd be happy to help schedule an appointment! What date and time work best for you?"
	case channel == model.ChannelSMS:
		return "Thanks for texting Time & Attention AI! I'm here to help 24/7. What can I assist you with? You can also call us for immediate voice support."
	default:
		return "Thanks for reaching out! I'm here to help with any questions about Time & Attention AI. What would you like to know?"
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
