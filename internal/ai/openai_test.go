package ai

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/openai/openai-go"
	"golang.org/x/text/encoding/charmap"
)

func TestNewClient_MissingAPIKey(t *testing.T) {
	_, err := NewClient(&config.OpenRouterConfig{Model: "test/model"}, config.ModelPricing{})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestClient_Complete_TracksUsage(t *testing.T) {
	upstream := newFakeUpstream(t, replyWith("ok"))
	client := newTestClient(t, upstream.server.URL)

	messages := []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")}
	for range 2 {
		if _, err := client.Complete(context.Background(), messages, time.Minute); err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
	}

	usage := client.GetUsage()
	if usage.Requests != 2 {
		t.Errorf("Requests = %d, want 2", usage.Requests)
	}
	if usage.InputTokens != 2000 || usage.OutputTokens != 400 {
		t.Errorf("tokens = %d/%d, want 2000/400", usage.InputTokens, usage.OutputTokens)
	}
	// 2000 input tokens at $1/M plus 400 output tokens at $2/M.
	if want := 0.0028; math.Abs(usage.TotalCost-want) > 1e-9 {
		t.Errorf("TotalCost = %f, want %f", usage.TotalCost, want)
	}
}

func TestClient_Complete_LegacyEncodedBody(t *testing.T) {
	body, err := charmap.Windows1256.NewEncoder().String(`{"choices":[{"message":{"role":"assistant","content":"الإشارة: سلام"}}]}`)
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	upstream := newFakeUpstream(t, rawReply(http.StatusOK, []byte(body)))
	client := newTestClient(t, upstream.server.URL)

	got, err := client.Complete(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")}, time.Minute)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "الإشارة: سلام" {
		t.Errorf("content = %q", got)
	}
}

func TestClient_Complete_UndecodableBody(t *testing.T) {
	upstream := newFakeUpstream(t, rawReply(http.StatusOK, []byte("not json at all")))
	client := newTestClient(t, upstream.server.URL)

	_, err := client.Complete(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")}, time.Minute)

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected *UpstreamError, got %T: %v", err, err)
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Error("expected the DecodeError to be kept in the chain")
	}
}

func TestClient_Complete_TransportFailure(t *testing.T) {
	upstream := newFakeUpstream(t, replyWith("ok"))
	client := newTestClient(t, upstream.server.URL)
	upstream.server.Close()

	_, err := client.Complete(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")}, time.Minute)
	if err == nil {
		t.Fatal("expected error when upstream is unreachable")
	}
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		t.Errorf("transport failures should not be reported as UpstreamError: %v", err)
	}
}

func TestClient_Name(t *testing.T) {
	client := newTestClient(t, "http://localhost:1")
	if client.Name() != "test/model" {
		t.Errorf("Name() = %q", client.Name())
	}
}
