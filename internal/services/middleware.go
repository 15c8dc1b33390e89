package services

import (
	"context"
	"log"
	"net/http"
	"strings"

	"leadcrm/internal/domain"
)

type contextKey string

const userContextKey contextKey = "user"

// AuthFailureFunc writes the response for a rejected request
type AuthFailureFunc func(w http.ResponseWriter, r *http.Request, err error)

// JWTAuthMiddleware rejects requests without a valid bearer token and stores
// the authenticated user in the request context
func JWTAuthMiddleware(auth *AuthService, fail AuthFailureFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				fail(w, r, AuthUnauthorized("Authorization header required"))
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				fail(w, r, AuthUnauthorized("Invalid authorization header format"))
				return
			}

			user, err := auth.Authenticate(r.Context(), parts[1])
			if err != nil {
				log.Printf("[AUTH] Rejected %s %s: %v", r.Method, r.URL.Path, err)
				fail(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, if any
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userContextKey).(*domain.User)
	return user, ok
}
