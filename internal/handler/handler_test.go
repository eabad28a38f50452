package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jpisa-a11y/time-and-attention-ai/internal/ingest"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/model"
	"github.com/jpisa-a11y/time-and-attention-ai/internal/service"
	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	tracker  *service.ConversationTracker
	assist   *AssistantHandler
	webhooks *WebhookHandler
	router   chi.Router
}

func newTestEnv(t *testing.T, opts WebhookOptions) *testEnv {
	t.Helper()
	log := logger.NewNop()
	clock := func() time.Time { return t0 }

	tracker := service.NewConversationTracker(service.TrackerOptions{Now: clock}, log)
	normalizer := ingest.NewNormalizer(tracker, clock, log)
	assistant := service.NewAssistantService(nil, log)

	env := &testEnv{
		tracker:  tracker,
		assist:   NewAssistantHandler(tracker, normalizer, assistant, log),
		webhooks: NewWebhookHandler(tracker, normalizer, assistant, opts, log),
	}
	env.assist.now = clock
	env.webhooks.now = clock

	r := chi.NewRouter()
	r.Route("/api/assistant", func(r chi.Router) {
		r.Get("/status", env.assist.Status)
		r.Get("/conversations", env.assist.Conversations)
		r.Get("/conversations/{id}", env.assist.Conversation)
		r.Get("/stats", env.assist.Stats)
		r.Post("/chat", env.assist.Chat)
		r.Post("/chat/{id}/end", env.assist.EndChat)
		r.Post("/admin/stats/reset", env.assist.ResetStats)
	})
	r.Route("/api/webhooks", func(r chi.Router) {
		r.Post("/vapi", env.webhooks.Vapi)
		r.Post("/twilio/voice", env.webhooks.TwilioVoice)
		r.Post("/twilio/voice/status", env.webhooks.TwilioVoiceStatus)
		r.Post("/twilio/sms", env.webhooks.TwilioSMS)
	})
	env.router = r
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// apiResponse mirrors model.APIResponse with a raw payload.
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeAPI(t *testing.T, rec *httptest.ResponseRecorder, into any) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	if into != nil && resp.Data != nil {
		if err := json.Unmarshal(resp.Data, into); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return resp
}

// collectSink records every envelope the tracker broadcasts.
type collectSink struct {
	envs []model.RawEnvelope
}

func (s *collectSink) Send(data []byte) error {
	var env model.RawEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	s.envs = append(s.envs, env)
	return nil
}

func (s *collectSink) IsOpen() bool { return true }

func (s *collectSink) last(t *testing.T, typ model.EventType) model.ConversationRecord {
	t.Helper()
	for i := len(s.envs) - 1; i >= 0; i-- {
		if s.envs[i].Type == typ {
			rec, err := s.envs[i].Record()
			if err != nil {
				t.Fatalf("decode %s: %v", typ, err)
			}
			return rec
		}
	}
	t.Fatalf("no %s event broadcast", typ)
	return model.ConversationRecord{}
}
