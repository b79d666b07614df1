package ai

import (
	"context"
	"time"

	"github.com/kozaktomas/sign-vision/internal/descriptions"
	"github.com/openai/openai-go"
)

// Matcher asks the language model which reference sign a description is
// closest to.
type Matcher struct {
	completer Completer
	timeout   time.Duration
}

func NewMatcher(completer Completer, timeout time.Duration) *Matcher {
	return &Matcher{completer: completer, timeout: timeout}
}

// Match compares description against references in their given order.
//
// The reply is not parsed for its answer line: the matched sign is the first
// reference name appearing anywhere in the reply, and the explanation is the
// whole reply. With no references, no request is made and the description is
// returned as the explanation.
func (m *Matcher) Match(ctx context.Context, description string, references []descriptions.Entry) (*MatchResult, error) {
	if len(references) == 0 {
		return &MatchResult{Explanation: description}, nil
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(matchSystemPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String(buildMatchPrompt(description, references)),
				},
			},
		},
	}

	reply, err := m.completer.Complete(ctx, messages, m.timeout)
	if err != nil {
		return nil, err
	}

	return &MatchResult{
		SignName:    findSignName(reply, references),
		Explanation: reply,
	}, nil
}
