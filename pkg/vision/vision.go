// Package vision defines the provider-neutral contract for multimodal
// completion calls.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
)

// Completer sends one prompt plus one image to a vision model.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Image is either inline bytes or a remote URL.
type Image struct {
	Data      []byte
	MediaType string
	URL       string
}

// Validate checks that exactly one image source is set.
func (i Image) Validate() error {
	switch {
	case len(i.Data) > 0 && i.URL != "":
		return eris.New("vision: image has both data and url")
	case len(i.Data) == 0 && i.URL == "":
		return eris.New("vision: image is empty")
	case i.URL != "" && !strings.HasPrefix(i.URL, "http://") && !strings.HasPrefix(i.URL, "https://"):
		return eris.Errorf("vision: unsupported image url %q", i.URL)
	}
	return nil
}

// IsRemote reports whether the image is referenced by URL.
func (i Image) IsRemote() bool {
	return i.URL != "" && len(i.Data) == 0
}

// ContentType returns the declared media type, sniffing the bytes when unset.
func (i Image) ContentType() string {
	if i.MediaType != "" {
		return i.MediaType
	}
	if len(i.Data) > 0 {
		return http.DetectContentType(i.Data)
	}
	return "image/jpeg"
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns a data: URL for inline images, or the remote URL.
func (i Image) DataURL() string {
	if i.IsRemote() {
		return i.URL
	}
	return fmt.Sprintf("data:%s;base64,%s", i.ContentType(), i.Base64())
}

// Request is a single multimodal completion request.
type Request struct {
	Model     string
	System    string
	Prompt    string
	Image     Image
	MaxTokens int64
}

// Response is the text a model produced.
type Response struct {
	Model        string
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// StatusError is a non-2xx answer from a vision provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// StatusCode extracts the upstream HTTP status from err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsCapacity reports whether err means the model is out of quota or credit
// and another model should be tried.
func IsCapacity(err error) bool {
	switch StatusCode(err) {
	case http.StatusTooManyRequests, http.StatusPaymentRequired:
		return true
	}
	return false
}
