package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/kozaktomas/sign-vision/internal/database"
)

type contextKey string

const (
	sessionContextKey contextKey = "session"
	userContextKey    contextKey = "user"
)

// Error messages shown to API clients.
const (
	msgUnauthorized = "يجب تسجيل الدخول أولاً"
	msgForbidden    = "هذه العملية متاحة للمدير فقط"
)

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// RequireAuth is middleware that requires a valid session belonging to an
// active user. The session and the user are added to the request context.
func RequireAuth(sm *SessionManager, users database.UserReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sm.GetSessionFromRequest(r)
			if session == nil {
				writeJSONError(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}

			user, err := users.GetUserByID(r.Context(), session.UserID)
			if err != nil {
				log.Printf("loading user %d failed: %v", session.UserID, err)
				writeJSONError(w, http.StatusInternalServerError, "failed to load user")
				return
			}
			if user == nil || !user.IsActive {
				sm.DeleteSession(session.ID)
				writeJSONError(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			ctx = context.WithValue(ctx, userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects users without the admin role. It must run after RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil {
			writeJSONError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		if !user.IsAdmin() {
			writeJSONError(w, http.StatusForbidden, msgForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSessionFromContext retrieves the session from the request context
func GetSessionFromContext(ctx context.Context) *Session {
	session, ok := ctx.Value(sessionContextKey).(*Session)
	if !ok {
		return nil
	}
	return session
}

// GetUserFromContext retrieves the authenticated user from the request context
func GetUserFromContext(ctx context.Context) *database.User {
	user, ok := ctx.Value(userContextKey).(*database.User)
	if !ok {
		return nil
	}
	return user
}

// SetUserInContext adds a user to the context.
// This is primarily for testing - use RequireAuth middleware in production.
func SetUserInContext(ctx context.Context, user *database.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
