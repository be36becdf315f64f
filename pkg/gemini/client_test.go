package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/sells-group/fieldguide/pkg/vision"
)

func TestBuildParts_Inline(t *testing.T) {
	parts, err := buildParts(vision.Request{
		Prompt: "describe",
		Image:  vision.Image{Data: []byte("abc"), MediaType: "image/webp"},
	})
	require.NoError(t, err)
	require.Len(t, parts, 2)
	blob, ok := parts[0].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/webp", blob.MIMEType)
	assert.Equal(t, genai.Text("describe"), parts[1])
}

func TestBuildParts_RemoteRejected(t *testing.T) {
	_, err := buildParts(vision.Request{Image: vision.Image{URL: "https://static.test/a.jpg"}})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, vision.StatusCode(err))
	assert.False(t, vision.IsCapacity(err))
}

func TestComplete_InvalidImageSkipsNetwork(t *testing.T) {
	_, err := NewClient("key").Complete(context.Background(), vision.Request{Model: "gemini-2.0-flash"})
	assert.Error(t, err)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"category":`), genai.Blob{}}}},
		{Content: nil},
		{Content: &genai.Content{Parts: []genai.Part{genai.Text(`"insect"}`)}}},
	}}
	assert.Equal(t, `{"category":"insect"}`, responseText(resp))
	assert.Empty(t, responseText(nil))
}

func TestMapError(t *testing.T) {
	quota := fmt.Errorf("rpc: %w", &googleapi.Error{Code: 429, Message: "Resource has been exhausted"})
	mapped := mapError(quota)
	assert.Equal(t, 429, vision.StatusCode(mapped))
	assert.True(t, vision.IsCapacity(mapped))

	bodyOnly := mapError(&googleapi.Error{Code: 500, Body: " internal \n"})
	var se *vision.StatusError
	require.True(t, errors.As(bodyOnly, &se))
	assert.Equal(t, "internal", se.Message)

	plain := errors.New("dial tcp: timeout")
	assert.Equal(t, plain, mapError(plain))
}
