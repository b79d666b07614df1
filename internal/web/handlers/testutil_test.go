package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/kozaktomas/sign-vision/internal/database/mock"
	"github.com/kozaktomas/sign-vision/internal/descriptions"
	"github.com/kozaktomas/sign-vision/internal/media"
	"github.com/kozaktomas/sign-vision/internal/pipeline"
	"github.com/kozaktomas/sign-vision/internal/web/middleware"
)

// testConfig creates a minimal config for testing
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Storage: config.StorageConfig{
			MediaDir:  filepath.Join(dir, "media"),
			CachePath: filepath.Join(dir, "sign_descriptions.json"),
		},
	}
}

// stubDescriber returns description, or err when set.
type stubDescriber struct {
	mu          sync.Mutex
	description string
	err         error
	calls       int
}

func (s *stubDescriber) Describe(ctx context.Context, video []byte, filename string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.description, nil
}

func (s *stubDescriber) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// stubMatcher matches every description to sign.
type stubMatcher struct {
	sign  string
	reply string
	err   error
	calls int
}

func (s *stubMatcher) Match(ctx context.Context, description string, references []descriptions.Entry) (*ai.MatchResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &ai.MatchResult{SignName: s.sign, Explanation: s.reply}, nil
}

// testEnv wires handlers to in-memory stores.
type testEnv struct {
	config    *config.Config
	signs     *mock.MockSignStore
	users     *mock.MockUserStore
	media     *media.Store
	describer *stubDescriber
	matcher   *stubMatcher
	orch      *pipeline.Orchestrator
	sessions  *middleware.SessionManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig(t)
	env := &testEnv{
		config:    cfg,
		signs:     mock.NewMockSignStore(),
		users:     mock.NewMockUserStore(),
		media:     media.NewStore(cfg.Storage.AvatarsDir()),
		describer: &stubDescriber{description: "يد مفتوحة تتحرك"},
		matcher:   &stubMatcher{},
	}
	env.orch = pipeline.New(env.describer, env.matcher, env.signs, env.media, cfg.Storage.CachePath)
	env.sessions = middleware.NewSessionManager("test-secret", nil)
	t.Cleanup(env.sessions.Stop)
	return env
}

// requestAs attaches user to the request context the way RequireAuth does.
func requestAs(r *http.Request, user *database.User) *http.Request {
	return r.WithContext(middleware.SetUserInContext(r.Context(), user))
}

// multipartRequest builds a multipart body with fields and, when filename is
// not empty, a "video" file part.
func multipartRequest(t *testing.T, method, path string, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		part, err := mw.CreateFormFile("video", filename)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(data)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
