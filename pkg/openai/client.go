// Package openai implements vision.Completer against any OpenAI-compatible
// chat completions endpoint, OpenRouter included.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rotisserie/eris"

	"github.com/sells-group/fieldguide/pkg/vision"
)

const provider = "openai"

// Option configures the client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL    string
	httpClient *http.Client
	detail     string
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = strings.TrimRight(u, "/") + "/" }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithImageDetail sets the image fidelity hint ("auto", "low" or "high").
func WithImageDetail(detail string) Option {
	return func(o *clientOptions) { o.detail = detail }
}

// Client calls the chat completions API with an image part.
type Client struct {
	client sdk.Client
	detail string
}

// NewClient creates a Client. SDK retries are disabled; callers own retry
// and model fallback.
func NewClient(apiKey string, opts ...Option) *Client {
	o := clientOptions{detail: "auto"}
	for _, fn := range opts {
		fn(&o)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.httpClient))
	}
	return &Client{client: sdk.NewClient(reqOpts...), detail: o.detail}
}

// Complete sends req as one user message holding the prompt and the image.
func (c *Client) Complete(ctx context.Context, req vision.Request) (*vision.Response, error) {
	if err := req.Image.Validate(); err != nil {
		return nil, err
	}

	var msgs []sdk.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, sdk.SystemMessage(req.System))
	}
	msgs = append(msgs, sdk.UserMessage([]sdk.ChatCompletionContentPartUnionParam{
		sdk.TextContentPart(req.Prompt),
		sdk.ImageContentPart(sdk.ChatCompletionContentPartImageImageURLParam{
			URL:    req.Image.DataURL(),
			Detail: c.detail,
		}),
	}))

	params := sdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = sdk.Int(req.MaxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(mapError(err), "openai: chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: response contained no choices")
	}

	return &vision.Response{
		Model:        resp.Model,
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func mapError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return &vision.StatusError{Provider: provider, StatusCode: apiErr.StatusCode, Message: msg}
	}
	return err
}
