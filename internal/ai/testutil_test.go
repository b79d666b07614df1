package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/openai/openai-go"
	"github.com/tidwall/gjson"
)

// fakeUpstream is a chat-completions endpoint that records what it receives.
type fakeUpstream struct {
	server *httptest.Server
	calls  atomic.Int32

	mu       sync.Mutex
	lastBody []byte
	lastAuth string
}

func (f *fakeUpstream) body() gjson.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return gjson.ParseBytes(f.lastBody)
}

// newFakeUpstream starts a server answering /chat/completions with respond.
func newFakeUpstream(t *testing.T, respond http.HandlerFunc) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.lastBody = body
		f.lastAuth = r.Header.Get("Authorization")
		f.mu.Unlock()
		if r.URL.Path != "/chat/completions" {
			http.Error(w, "unexpected path "+r.URL.Path, http.StatusNotFound)
			return
		}
		respond(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

// replyWith answers every request with a completion whose content is text.
func replyWith(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "gen-1",
			"object": "chat.completion",
			"model":  "test/model",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": text},
				},
			},
			"usage": map[string]any{
				"prompt_tokens":     1000,
				"completion_tokens": 200,
				"total_tokens":      1200,
			},
		})
	}
}

// rawReply answers with a fixed body and status.
func rawReply(status int, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(body)
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(&config.OpenRouterConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "test/model",
	}, config.ModelPricing{Input: 1.0, Output: 2.0})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

// recordingCompleter is an in-process Completer for tests that do not need HTTP.
type recordingCompleter struct {
	mu       sync.Mutex
	calls    int
	timeouts []time.Duration
	reply    string
	err      error
}

func (c *recordingCompleter) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, timeout time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.timeouts = append(c.timeouts, timeout)
	return c.reply, c.err
}
