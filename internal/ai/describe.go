package ai

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/kozaktomas/sign-vision/internal/constants"
	"github.com/openai/openai-go"
)

const bytesPerMB = 1024 * 1024

// Describer asks the vision model for a movement description of a video.
type Describer struct {
	completer    Completer
	timeout      time.Duration
	systemPrompt string
	userPrompt   string
}

// NewDescriber returns a Describer for user-submitted videos.
func NewDescriber(completer Completer, timeout time.Duration) *Describer {
	return &Describer{
		completer:    completer,
		timeout:      timeout,
		systemPrompt: describeSystemPrompt,
		userPrompt:   describePrompt,
	}
}

// NewReferenceDescriber returns a Describer whose prompt asks for
// instructions precise enough to imitate the sign. It is used when building
// the reference corpus from demonstration videos.
func NewReferenceDescriber(completer Completer, timeout time.Duration) *Describer {
	return &Describer{
		completer:    completer,
		timeout:      timeout,
		systemPrompt: referenceSystemPrompt,
		userPrompt:   referencePrompt,
	}
}

// Describe sends video as a base64 data URL together with the instruction
// prompt and returns the model's text unchanged. Videos above
// constants.MaxFileSizeMB are rejected without a request.
func (d *Describer) Describe(ctx context.Context, video []byte, filename string) (string, error) {
	sizeMB := float64(len(video)) / bytesPerMB
	if sizeMB > constants.MaxFileSizeMB {
		return "", newPayloadTooLarge(sizeMB)
	}

	dataURL := "data:" + MIMEType(filename) + ";base64," + base64.StdEncoding.EncodeToString(video)

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(d.systemPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart(d.userPrompt),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL: dataURL,
						}),
					},
				},
			},
		},
	}

	return d.completer.Complete(ctx, messages, d.timeout)
}
