package llm

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Request is a single user turn: text plus an optional inline image
// carried as a data URI.
type Request struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

// Config holds common configuration for LLM providers.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// InlineImage is an image decoded out of a data URI.
type InlineImage struct {
	MimeType string
	Data     string // base64 payload, unpadded validation left to the provider
}

// ParseDataURI splits a "data:<mime>;base64,<payload>" URI into its mime
// type and base64 payload. The payload is checked to be valid base64 so a
// bad screenshot fails before the network call.
func ParseDataURI(uri string) (*InlineImage, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("not a data URI")
	}
	mime, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return nil, fmt.Errorf("data URI is not base64-encoded")
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return nil, fmt.Errorf("decode data URI payload: %w", err)
	}
	return &InlineImage{MimeType: mime, Data: payload}, nil
}
