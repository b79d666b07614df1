package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/kozaktomas/sign-vision/internal/web/middleware"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgBadCredentials  = "اسم المستخدم أو كلمة المرور غير صحيحة"
	msgAccountDisabled = "هذا الحساب معطّل، تواصل مع الإدارة"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	sessionManager *middleware.SessionManager
	users          database.UserReader
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sm *middleware.SessionManager, users database.UserReader) *AuthHandler {
	return &AuthHandler{
		sessionManager: sm,
		users:          users,
	}
}

// loginRequest represents a login request
type loginRequest struct {
	username string
	password string
}

func (l *loginRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal login request: %w", err)
	}
	l.username = raw["username"]
	l.password = raw["password"]
	return nil
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	SchoolName string `json:"school_name"`
	IsActive   bool   `json:"is_active"`
}

func newUserResponse(u *database.User) *UserResponse {
	return &UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		Role:       u.Role,
		SchoolName: u.SchoolName,
		IsActive:   u.IsActive,
	}
}

// LoginResponse represents a login response
type LoginResponse struct {
	Success   bool          `json:"success"`
	SessionID string        `json:"session_id,omitempty"`
	ExpiresAt string        `json:"expires_at,omitempty"`
	User      *UserResponse `json:"user,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Login checks the credentials against the user store and opens a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	// Require both username and password
	if req.username == "" || req.password == "" {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	user, err := h.users.GetByUsername(r.Context(), req.username)
	if err != nil {
		log.Printf("login lookup for %s failed: %v", sanitizeForLog(req.username), err)
		respondError(w, http.StatusInternalServerError, fmt.Sprintf(msgUnexpectedFmt, err))
		return
	}
	if user == nil || !checkPassword(user.PasswordHash, req.password) {
		respondJSON(w, http.StatusUnauthorized, LoginResponse{Error: msgBadCredentials})
		return
	}
	if !user.IsActive {
		respondJSON(w, http.StatusUnauthorized, LoginResponse{Error: msgAccountDisabled})
		return
	}

	session, err := h.sessionManager.CreateSession(user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.sessionManager.SetSessionCookie(w, r, session)

	respondJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		User:      newUserResponse(user),
	})
}

func checkPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		log.Printf("password check failed: %v", err)
	}
	return err == nil
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(session.ID)
	}

	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Authenticated bool          `json:"authenticated"`
	ExpiresAt     string        `json:"expires_at,omitempty"`
	User          *UserResponse `json:"user,omitempty"`
}

// Status checks if the user is authenticated by validating the session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}

	user, err := h.users.GetUserByID(r.Context(), session.UserID)
	if err != nil || user == nil || !user.IsActive {
		respondJSON(w, http.StatusOK, StatusResponse{Authenticated: false})
		return
	}

	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		ExpiresAt:     session.ExpiresAt.UTC().Format(time.RFC3339),
		User:          newUserResponse(user),
	})
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "يجب تسجيل الدخول أولاً")
		return
	}
	respondJSON(w, http.StatusOK, newUserResponse(user))
}
