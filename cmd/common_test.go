package cmd

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/kozaktomas/sign-vision/internal/database/mock"
	"github.com/openai/openai-go"
)

// recordingCompleter returns a fixed reply and keeps the encoded messages of
// every call.
type recordingCompleter struct {
	mu    sync.Mutex
	calls []string
}

func (c *recordingCompleter) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, timeout time.Duration) (string, error) {
	encoded, err := json.Marshal(messages)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, string(encoded))
	return "يد مفتوحة", nil
}

func (c *recordingCompleter) last(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.calls) == 0 {
		t.Fatal("expected a completion call")
	}
	return c.calls[len(c.calls)-1]
}

func TestNewOrchestrator_AddSignUsesUploadPrompt(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Storage: config.StorageConfig{
		MediaDir:  dir,
		CachePath: filepath.Join(dir, "descriptions.json"),
	}}
	video := []byte("clip")

	completer := &recordingCompleter{}
	orchestrator := newOrchestrator(cfg, completer, mock.NewMockSignStore())
	if _, err := orchestrator.AddSign(context.Background(), "شكرا", video, "thanks.mp4"); err != nil {
		t.Fatalf("AddSign: %v", err)
	}
	cliRequest := completer.last(t)

	reference := &recordingCompleter{}
	if _, err := ai.NewReferenceDescriber(reference, time.Minute).Describe(context.Background(), video, "thanks.mp4"); err != nil {
		t.Fatal(err)
	}
	upload := &recordingCompleter{}
	if _, err := ai.NewDescriber(upload, time.Minute).Describe(context.Background(), video, "thanks.mp4"); err != nil {
		t.Fatal(err)
	}

	if cliRequest != upload.last(t) {
		t.Error("CLI add should send the same prompt as an HTTP upload")
	}
	if cliRequest == reference.last(t) {
		t.Error("CLI add should not use the reference prompt")
	}
}
