// Package gemini implements vision.Completer with the Google generative AI SDK.
package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/googleapi"
	googleoption "google.golang.org/api/option"

	"github.com/sells-group/fieldguide/pkg/vision"
)

const provider = "gemini"

// Client stores the API key; a genai.Client is created per call so the
// caller's context governs the connection.
type Client struct {
	apiKey string
	opts   []googleoption.ClientOption
}

// NewClient creates a Client. Extra options are passed to every genai.Client.
func NewClient(apiKey string, opts ...googleoption.ClientOption) *Client {
	return &Client{apiKey: apiKey, opts: opts}
}

// Complete sends the prompt and inline image and returns the JSON text the
// model produced. Remote image URLs are not supported by this provider.
func (c *Client) Complete(ctx context.Context, req vision.Request) (*vision.Response, error) {
	parts, err := buildParts(req)
	if err != nil {
		return nil, err
	}

	opts := append([]googleoption.ClientOption{googleoption.WithAPIKey(c.apiKey)}, c.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: genai client")
	}
	defer client.Close() //nolint:errcheck

	m := client.GenerativeModel(req.Model)
	if req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.MaxTokens > 0 {
		maxOut := int32(req.MaxTokens)
		m.MaxOutputTokens = &maxOut
	}
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, eris.Wrap(mapError(err), "gemini: generate content")
	}

	text := responseText(resp)
	if text == "" {
		return nil, eris.New("gemini: response contained no text content")
	}

	out := &vision.Response{Model: req.Model, Text: text}
	if resp.UsageMetadata != nil {
		out.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func buildParts(req vision.Request) ([]genai.Part, error) {
	if err := req.Image.Validate(); err != nil {
		return nil, err
	}
	if req.Image.IsRemote() {
		return nil, &vision.StatusError{Provider: provider, StatusCode: 400, Message: "image urls are not supported, send image bytes"}
	}
	return []genai.Part{
		genai.Blob{MIMEType: req.Image.ContentType(), Data: req.Image.Data},
		genai.Text(req.Prompt),
	}, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				parts = append(parts, string(t))
			}
		}
	}
	return strings.Join(parts, "")
}

func mapError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		msg := gErr.Message
		if msg == "" {
			msg = strings.TrimSpace(gErr.Body)
		}
		return &vision.StatusError{Provider: provider, StatusCode: gErr.Code, Message: msg}
	}
	return err
}
