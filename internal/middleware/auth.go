// Package middleware provides the HTTP middleware the management API runs
// behind: bearer-token auth, per-client rate limiting, and request IDs.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"dirbridge/internal/domain"
	"dirbridge/internal/service"
)

// Auth validates a JWT Bearer token and places the authenticated principal
// in the request context. Requests without a valid token get 401.
func Auth(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				claims, err := auth.ValidateToken(strings.TrimPrefix(header, "Bearer "))
				if err == nil {
					principal := domain.ContextPrincipal{
						UserID:   claims.UserID,
						Username: claims.Username,
					}
					next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), principal)))
					return
				}
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code":    -1,
				"message": "unauthorized: provide a valid Bearer token",
			})
		})
	}
}
