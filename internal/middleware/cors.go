package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS lets the dashboard and chat widget origins call the REST API. The
// websocket endpoint checks origins itself.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", correlationHeader},
		ExposedHeaders: []string{correlationHeader, "Retry-After"},
		MaxAge:         600,
	})
}
