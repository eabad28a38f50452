package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
)

var twilioParams = url.Values{
	"CallSid": {"CA1234567890ABCDE"},
	"Caller":  {"+12349013030"},
	"Digits":  {"1234"},
	"From":    {"+12349013030"},
	"To":      {"+18005551212"},
}

const (
	twilioToken     = "12345"
	twilioURL       = "https://mycompany.com/myapp.php?foo=1&bar=2"
	twilioSignature = "0/KCTR6DLpKmkAf8muzZqo1nDgQ="
)

func TestTwilioSignatureFor(t *testing.T) {
	if got := TwilioSignatureFor(twilioToken, twilioURL, twilioParams); got != twilioSignature {
		t.Fatalf("signature = %q, want %q", got, twilioSignature)
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func twilioRequest(signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, twilioURL, strings.NewReader(twilioParams.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set("X-Twilio-Signature", signature)
	}
	return req
}

func TestTwilioSignatureMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		enabled   bool
		signature string
		want      int
	}{
		{"valid", true, twilioSignature, http.StatusOK},
		{"tampered", true, "AAAAAAAAAAAAAAAAAAAAAAAAAAA=", http.StatusForbidden},
		{"missing", true, "", http.StatusForbidden},
		{"disabled", false, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := TwilioSignature(twilioToken, "https://mycompany.com", tt.enabled, logger.NewNop())(okHandler())
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, twilioRequest(tt.signature))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestTwilioSignatureRequiresAuthToken(t *testing.T) {
	forged := TwilioSignatureFor("", twilioURL, twilioParams)

	h := TwilioSignature("", "https://mycompany.com", true, logger.NewNop())(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, twilioRequest(forged))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 for empty auth token", rec.Code)
	}
}

func TestTwilioSignatureUsesRequestHost(t *testing.T) {
	h := TwilioSignature(twilioToken, "", true, logger.NewNop())(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, twilioRequest(twilioSignature))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestVapiSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"match", "s3cret", "s3cret", http.StatusOK},
		{"mismatch", "s3cret", "guess", http.StatusUnauthorized},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"check disabled", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/webhooks/vapi", strings.NewReader("{}"))
			if tt.header != "" {
				req.Header.Set("x-vapi-secret", tt.header)
			}
			rec := httptest.NewRecorder()
			VapiSecret(tt.secret)(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
