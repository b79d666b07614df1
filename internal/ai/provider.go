package ai

import (
	"context"
	"time"

	"github.com/kozaktomas/sign-vision/internal/descriptions"
	"github.com/openai/openai-go"
)

// Completer sends one chat-completions request and returns the text of the
// first choice.
type Completer interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, timeout time.Duration) (string, error)
}

// VideoDescriber turns a video into a free-text movement description.
type VideoDescriber interface {
	Describe(ctx context.Context, video []byte, filename string) (string, error)
}

// SignMatcher picks the reference closest to a movement description.
type SignMatcher interface {
	Match(ctx context.Context, description string, references []descriptions.Entry) (*MatchResult, error)
}

// MatchResult is the outcome of comparing a description against the corpus.
type MatchResult struct {
	// SignName is the first reference name found in the reply, empty when none was.
	SignName string
	// Explanation is the model's full reply, or the description itself when
	// there was nothing to compare against.
	Explanation string
}

// Matched reports whether a reference name was found.
func (r *MatchResult) Matched() bool {
	return r.SignName != ""
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	Requests     int
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}
