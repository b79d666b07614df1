package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	sessionCookieName      = "sign_vision_session"
	sessionDuration        = 24 * time.Hour
	sessionCleanupInterval = time.Hour
	sessionStoreTimeout    = 5 * time.Second
)

// Session represents a logged-in user
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StoredSession is the persisted form of a session
type StoredSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionRepository persists sessions so they survive restarts
type SessionRepository interface {
	Save(ctx context.Context, id string, userID int64, createdAt, expiresAt time.Time) error
	// Get returns nil when the session is missing or expired
	Get(ctx context.Context, sessionID string) (*StoredSession, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionManager handles session creation and validation. Sessions are kept
// in memory and, when a repository is given, written through to it.
type SessionManager struct {
	secret   []byte
	repo     SessionRepository
	sessions map[string]*Session
	mu       sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionManager creates a new session manager. repo may be nil.
func NewSessionManager(secret string, repo SessionRepository) *SessionManager {
	// Use a default secret if none provided (for development)
	if secret == "" {
		secret = "sign-vision-dev-secret-change-in-production"
	}
	sm := &SessionManager{
		secret:   []byte(secret),
		repo:     repo,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	go sm.cleanupLoop()
	return sm
}

// Stop ends the background expiry cleanup.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.stop) })
}

func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sm.stop:
			return
		case <-ticker.C:
			sm.removeExpired()
		}
	}
}

func (sm *SessionManager) removeExpired() {
	now := time.Now()
	sm.mu.Lock()
	for id, s := range sm.sessions {
		if now.After(s.ExpiresAt) {
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	if sm.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sessionStoreTimeout)
	defer cancel()
	if n, err := sm.repo.DeleteExpired(ctx); err != nil {
		log.Printf("session cleanup failed: %v", err)
	} else if n > 0 {
		log.Printf("removed %d expired sessions", n)
	}
}

// CreateSession creates a new session for a user
func (sm *SessionManager) CreateSession(userID int64) (*Session, error) {
	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, err
	}
	now := time.Now()
	session := &Session{
		ID:        base64.RawURLEncoding.EncodeToString(idBytes),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionDuration),
	}

	if sm.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), sessionStoreTimeout)
		defer cancel()
		if err := sm.repo.Save(ctx, session.ID, session.UserID, session.CreatedAt, session.ExpiresAt); err != nil {
			return nil, err
		}
	}

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by ID, falling back to the repository for
// sessions created before a restart.
func (sm *SessionManager) GetSession(sessionID string) *Session {
	sm.mu.RLock()
	session, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if ok {
		if time.Now().After(session.ExpiresAt) {
			sm.DeleteSession(sessionID)
			return nil
		}
		return session
	}

	if sm.repo == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), sessionStoreTimeout)
	defer cancel()
	stored, err := sm.repo.Get(ctx, sessionID)
	if err != nil {
		log.Printf("loading session failed: %v", err)
		return nil
	}
	if stored == nil {
		return nil
	}

	session = &Session{
		ID:        stored.ID,
		UserID:    stored.UserID,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}
	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()
	return session
}

// DeleteSession removes a session
func (sm *SessionManager) DeleteSession(sessionID string) {
	sm.mu.Lock()
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()

	if sm.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), sessionStoreTimeout)
		defer cancel()
		if err := sm.repo.Delete(ctx, sessionID); err != nil {
			log.Printf("deleting session failed: %v", err)
		}
	}
}

// SetSessionCookie sets the signed session cookie on the response. The
// cookie is marked Secure when the request arrived over HTTPS.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, r *http.Request, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID + "." + sm.signData(session.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionDuration.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest extracts the session from the cookie or, for the
// mobile client, from an Authorization: Bearer header.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		sessionID, signature, ok := strings.Cut(cookie.Value, ".")
		if ok && sm.verifySignature(sessionID, signature) {
			if session := sm.GetSession(sessionID); session != nil {
				return session
			}
		}
	}

	if sessionID, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && sessionID != "" {
		return sm.GetSession(sessionID)
	}

	return nil
}

func (sm *SessionManager) signData(data string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (sm *SessionManager) verifySignature(data, signature string) bool {
	expected := sm.signData(data)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// SessionData is the public part of a session
type SessionData struct {
	SessionID string `json:"session_id"`
	ExpiresAt string `json:"expires_at"`
}

// ToJSON returns the session data for JSON response
func (s *Session) ToJSON() SessionData {
	return SessionData{
		SessionID: s.ID,
		ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// MarshalJSON implements json.Marshaler (excludes the user ID)
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToJSON())
}
