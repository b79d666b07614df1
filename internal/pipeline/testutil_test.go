package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/database/mock"
	"github.com/kozaktomas/sign-vision/internal/descriptions"
	"github.com/kozaktomas/sign-vision/internal/media"
	"github.com/openai/openai-go"
)

// fakeDescriber returns a fixed description, or an error for listed filenames.
type fakeDescriber struct {
	mu          sync.Mutex
	description string
	err         error
	failFor     map[string]error
	calls       []string
}

func (f *fakeDescriber) Describe(ctx context.Context, video []byte, filename string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, filename)
	if err, ok := f.failFor[filename]; ok {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return f.description + " " + string(video), nil
}

func (f *fakeDescriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeMatcher records the corpus it was given.
type fakeMatcher struct {
	result *ai.MatchResult
	err    error
	calls  int
	refs   []descriptions.Entry
}

func (f *fakeMatcher) Match(ctx context.Context, description string, references []descriptions.Entry) (*ai.MatchResult, error) {
	f.calls++
	f.refs = references
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &ai.MatchResult{Explanation: description}, nil
}

// staticCompleter answers every chat request with reply.
type staticCompleter struct {
	reply string
	calls int
}

func (c *staticCompleter) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, timeout time.Duration) (string, error) {
	c.calls++
	return c.reply, nil
}

type fixture struct {
	orch      *Orchestrator
	signs     *mock.MockSignStore
	media     *media.Store
	describer *fakeDescriber
	matcher   ai.SignMatcher
	cachePath string
}

func newFixture(t *testing.T, matcher ai.SignMatcher) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		signs:     mock.NewMockSignStore(),
		media:     media.NewStore(filepath.Join(dir, "media", "avatars")),
		describer: &fakeDescriber{description: "وصف"},
		matcher:   matcher,
		cachePath: filepath.Join(dir, "sign_descriptions.json"),
	}
	if f.matcher == nil {
		f.matcher = &fakeMatcher{}
	}
	f.orch = New(f.describer, f.matcher, f.signs, f.media, f.cachePath)
	return f
}

func (f *fixture) writeVideo(t *testing.T, name string, data string) {
	t.Helper()
	if err := os.MkdirAll(f.media.Dir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.media.Dir(), name), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) cache(t *testing.T) []descriptions.Entry {
	t.Helper()
	entries, err := descriptions.Load(f.cachePath)
	if err != nil {
		t.Fatalf("loading cache: %v", err)
	}
	return entries
}
