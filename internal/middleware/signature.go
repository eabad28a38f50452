package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jpisa-a11y/time-and-attention-ai/pkg/logger"
)

// VapiSecret rejects Vapi webhooks whose x-vapi-secret header does not match
// secret. An empty secret disables the check.
func VapiSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				got := r.Header.Get("x-vapi-secret")
				if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
					writeError(w, http.StatusUnauthorized, "invalid webhook secret")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TwilioSignature validates X-Twilio-Signature on form webhooks. baseURL is
// the public scheme and host Twilio was configured with; when empty the
// request's own Host is used. The check only runs when enabled is true; with
// no auth token every request is rejected.
func TwilioSignature(authToken, baseURL string, enabled bool, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authToken == "" {
				log.Error("twilio signature check enabled without an auth token", zap.String("path", r.URL.Path))
				writeError(w, http.StatusForbidden, "invalid twilio signature")
				return
			}
			if err := r.ParseForm(); err != nil {
				writeError(w, http.StatusBadRequest, "invalid form body")
				return
			}

			fullURL := requestURL(r, baseURL)
			expected := TwilioSignatureFor(authToken, fullURL, r.PostForm)
			got := r.Header.Get("X-Twilio-Signature")

			if !hmac.Equal([]byte(expected), []byte(got)) {
				log.Warn("rejected twilio webhook",
					zap.String("path", r.URL.Path),
					zap.String("correlation_id", GetCorrelationID(r.Context())),
				)
				writeError(w, http.StatusForbidden, "invalid twilio signature")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TwilioSignatureFor computes the signature Twilio sends for a POST to
// fullURL with the given form parameters.
func TwilioSignatureFor(authToken, fullURL string, form map[string][]string) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range form[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func requestURL(r *http.Request, baseURL string) string {
	if baseURL == "" {
		scheme := "https"
		if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
			scheme = "http"
		}
		baseURL = scheme + "://" + r.Host
	}
	return strings.TrimRight(baseURL, "/") + r.URL.RequestURI()
}
