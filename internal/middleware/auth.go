// Package middleware provides HTTP middleware for the tracker server.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ScopeStatsReset allows resetting the daily stats.
const ScopeStatsReset = "stats:reset"

// Claims are the JWT claims accepted on operator endpoints.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scope"`
}

// Operator is the authenticated caller of an operator endpoint.
type Operator struct {
	Subject string
	Scopes  []string
}

// Can reports whether the operator was granted scope.
func (o Operator) Can(scope string) bool {
	return slices.Contains(o.Scopes, scope)
}

type operatorKey struct{}

var errNoBearer = errors.New("missing bearer token")

// Auth verifies an HS256 bearer token and stores the Operator on the context.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(jwtSecret), nil }
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			var claims Claims
			if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			op := Operator{Subject: claims.Subject, Scopes: claims.Scopes}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), operatorKey{}, op)))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", errNoBearer
	}
	return strings.TrimSpace(token), nil
}

// OperatorFrom returns the operator stored by Auth.
func OperatorFrom(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(Operator)
	return op, ok
}

// RequireScope rejects operators lacking scope with 403.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if op, ok := OperatorFrom(r.Context()); !ok || !op.Can(scope) {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
