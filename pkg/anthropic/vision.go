package anthropic

import (
	"context"

	"github.com/sells-group/fieldguide/pkg/vision"
)

const defaultMaxTokens = 1024

// Completer adapts a Client to vision.Completer.
type Completer struct {
	client Client
}

// NewCompleter wraps client.
func NewCompleter(client Client) *Completer {
	return &Completer{client: client}
}

// Complete sends the image followed by the prompt as a single user turn.
func (c *Completer) Complete(ctx context.Context, req vision.Request) (*vision.Response, error) {
	if err := req.Image.Validate(); err != nil {
		return nil, err
	}

	img := ImageBlock{URL: req.Image.URL}
	if !req.Image.IsRemote() {
		img = ImageBlock{MediaType: req.Image.ContentType(), Base64: req.Image.Base64()}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	resp, err := c.client.CreateMessage(ctx, MessageRequest{
		Model:     req.Model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []Message{{Role: "user", Content: req.Prompt, Images: []ImageBlock{img}}},
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(req.Model, "feature_extraction")

	return &vision.Response{
		Model:        resp.Model,
		Text:         resp.Text(),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
