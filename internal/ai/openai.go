package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/kozaktomas/sign-vision/internal/constants"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"
)

// Client talks to an OpenAI-compatible chat-completions endpoint (OpenRouter
// by default). Response bodies are decoded by Decode rather than the SDK so
// that non-UTF-8 answers survive.
type Client struct {
	client      openai.Client
	model       string
	inputPrice  float64 // per 1M tokens
	outputPrice float64 // per 1M tokens

	mu    sync.Mutex
	usage Usage
}

// NewClient builds a client for cfg. It fails before any network activity
// when no API key is configured. Extra options are appended last and mainly
// serve tests.
func NewClient(cfg *config.OpenRouterConfig, pricing config.ModelPricing, opts ...option.RequestOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
		option.WithMiddleware(rejectErrorStatus),
	}
	if cfg.Referer != "" {
		clientOpts = append(clientOpts, option.WithHeader("HTTP-Referer", cfg.Referer))
	}
	if cfg.Title != "" {
		clientOpts = append(clientOpts, option.WithHeader("X-Title", cfg.Title))
	}
	clientOpts = append(clientOpts, opts...)

	return &Client{
		client:      openai.NewClient(clientOpts...),
		model:       cfg.Model,
		inputPrice:  pricing.Input,
		outputPrice: pricing.Output,
	}, nil
}

// rejectErrorStatus turns HTTP status >= 400 into an UpstreamError carrying
// the start of the body, before the SDK tries to parse it.
func rejectErrorStatus(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
	res, err := next(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < http.StatusBadRequest {
		return res, nil
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	return nil, &UpstreamError{
		StatusCode: res.StatusCode,
		Detail:     truncateRunes(strings.ToValidUTF8(string(body), "�"), constants.MaxErrorDetailRunes),
	}
}

// Name returns the model identifier used for every request.
func (c *Client) Name() string {
	return c.model
}

func (c *Client) GetUsage() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

func (c *Client) trackUsage(inputTokens, outputTokens int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage.Requests++
	c.usage.InputTokens += int(inputTokens)
	c.usage.OutputTokens += int(outputTokens)
	c.usage.TotalCost += float64(inputTokens) / 1_000_000 * c.inputPrice
	c.usage.TotalCost += float64(outputTokens) / 1_000_000 * c.outputPrice
}

// Complete sends messages as a single request and returns the content of the
// first choice. No retries are made; timeout bounds the whole attempt.
func (c *Client) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, timeout time.Duration) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}

	reqOpts := []option.RequestOption{}
	if timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(timeout))
	}

	var res *http.Response
	if err := c.client.Post(ctx, "chat/completions", params, &res, reqOpts...); err != nil {
		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) {
			return "", upstreamErr
		}
		return "", fmt.Errorf("OpenRouter request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("reading OpenRouter response: %w", err)
	}

	payload, err := Decode(raw)
	if err != nil {
		return fallbackContent(raw, err)
	}

	usage := payload.Get("usage")
	c.trackUsage(usage.Get("prompt_tokens").Int(), usage.Get("completion_tokens").Int())

	content := payload.Get("choices.0.message.content")
	if content.Type != gjson.String {
		return "", &UpstreamError{
			Detail: truncateRunes(payload.Raw, constants.MaxErrorDetailRunes),
		}
	}
	return content.Str, nil
}

// fallbackContent lets the SDK's own JSON decoding have a go at a body none
// of the candidate encodings could parse.
func fallbackContent(raw []byte, decodeErr error) (string, error) {
	var completion openai.ChatCompletion
	if err := completion.UnmarshalJSON(raw); err != nil || len(completion.Choices) == 0 ||
		!completion.Choices[0].Message.JSON.Content.Valid() {
		return "", &UpstreamError{
			Detail: truncateRunes(strings.ToValidUTF8(string(raw), "�"), constants.MaxErrorDetailRunes),
			Err:    decodeErr,
		}
	}
	return completion.Choices[0].Message.Content, nil
}
