package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/vigilauth/vigil/internal/models"
	pkghttp "github.com/vigilauth/vigil/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey is the key for storing the authenticated user in context
	UserContextKey contextKey = "user"
	// SessionContextKey is the key for storing the validated session in context
	SessionContextKey contextKey = "session"
)

// SessionValidator checks a claim token against the durable session store.
type SessionValidator interface {
	ValidateSession(ctx context.Context, claimToken string) (*models.Session, error)
}

// UserFetcher loads the current user for role and status checks.
type UserFetcher interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Middleware validates the bearer token, the session behind its claim token,
// and the account state, then injects user and session into the context.
func Middleware(tm *TokenManager, sessions SessionValidator, users UserFetcher) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				pkghttp.WriteUnauthorized(w, "Authorization header required")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := r.Context()

			if claims.ClaimToken != "" {
				session, err := sessions.ValidateSession(ctx, claims.ClaimToken)
				if err != nil {
					pkghttp.WriteUnauthorized(w, "Invalid or expired session")
					return
				}

				if session.UserID != claims.UserID {
					pkghttp.WriteUnauthorized(w, "Session mismatch")
					return
				}

				ctx = context.WithValue(ctx, SessionContextKey, session)
			}

			user, err := users.GetUser(ctx, claims.UserID)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "User not found")
				return
			}

			if !user.IsActive {
				pkghttp.WriteUnauthorized(w, "Account is inactive")
				return
			}

			ctx = context.WithValue(ctx, UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin enforces the admin role. Must run after Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r)
		if user == nil {
			pkghttp.WriteUnauthorized(w, "Authorization header required")
			return
		}

		if user.Role != "admin" {
			pkghttp.WriteForbidden(w, "Admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext extracts the authenticated user from request context
func GetUserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetSessionFromContext extracts the validated session from request context
func GetSessionFromContext(r *http.Request) *models.Session {
	session, ok := r.Context().Value(SessionContextKey).(*models.Session)
	if !ok {
		return nil
	}
	return session
}
