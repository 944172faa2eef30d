package auth

import (
	"context"
	"net/http"
	"strings"
)

// subjectKey is the context key for the authenticated subject.
type subjectKey struct{}

// Subject returns the authenticated token subject from context.
// Returns empty string if the request was not authenticated.
func Subject(ctx context.Context) string {
	if s, ok := ctx.Value(subjectKey{}).(string); ok {
		return s
	}
	return ""
}

// RequireSubmitToken rejects requests that do not carry a valid bearer
// submission token. On success the token subject is stored in the
// request context.
func RequireSubmitToken(svc *JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				unauthorized(w, "missing bearer token")
				return
			}

			claims, err := svc.ValidateToken(strings.TrimPrefix(header, prefix))
			if err != nil {
				if err == ErrExpiredToken {
					unauthorized(w, "token has expired")
					return
				}
				unauthorized(w, "invalid token")
				return
			}
			if claims.Type != TokenTypeSubmit {
				unauthorized(w, "wrong token type")
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"code":"unauthorized","message":"` + msg + `"}}`))
}
