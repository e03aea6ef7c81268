// Package gemini implements llm.Provider against the Google Generative
// Language REST API.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avanolabs/tradepanel/pkg/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements the llm.Provider interface for the Gemini API.
type Client struct {
	config     *llm.Config
	httpClient *http.Client
}

// New creates a Gemini client with the given configuration.
func New(config *llm.Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// part is one element of a Gemini content turn.
type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

// generateRequest is the generateContent request body.
type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// generateResponse is the generateContent response body. Streaming chunks
// use the same shape.
type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func (c *Client) buildRequest(system string, req llm.Request) (*generateRequest, error) {
	parts := []part{{Text: req.Content}}
	if req.ImageURL != "" {
		img, err := llm.ParseDataURI(req.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("inline image: %w", err)
		}
		parts = append(parts, part{InlineData: &inlineData{MimeType: img.MimeType, Data: img.Data}})
	}

	body := &generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
	}
	if system != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}

	gc := &generationConfig{}
	if c.config.Temperature != 0 {
		temp := c.config.Temperature
		gc.Temperature = &temp
	}
	if c.config.MaxTokens > 0 {
		gc.MaxOutputTokens = c.config.MaxTokens
	}
	if gc.Temperature != nil || gc.MaxOutputTokens > 0 {
		body.GenerationConfig = gc
	}
	return body, nil
}

func (c *Client) baseURL() string {
	if c.config.BaseURL != "" {
		return c.config.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) post(ctx context.Context, endpoint string, body *generateRequest) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:%s", c.baseURL(), c.config.Model, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return resp, nil
}

// Generate sends a generateContent request and returns the assistant text.
func (c *Client) Generate(ctx context.Context, system string, req llm.Request) (string, error) {
	body, err := c.buildRequest(system, req)
	if err != nil {
		return "", err
	}

	resp, err := c.post(ctx, "generateContent", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(genResp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	return genResp.text(), nil
}

// Stream sends a streamGenerateContent request with SSE framing, invoking
// onChunk for each text increment, and returns the concatenated text.
func (c *Client) Stream(ctx context.Context, system string, req llm.Request, onChunk func(string)) (string, error) {
	body, err := c.buildRequest(system, req)
	if err != nil {
		return "", err
	}

	resp, err := c.post(ctx, "streamGenerateContent?alt=sse", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok || payload == "[DONE]" {
			continue
		}
		var chunk generateResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", fmt.Errorf("parsing stream chunk: %w", err)
		}
		if text := chunk.text(); text != "" {
			sb.WriteString(text)
			if onChunk != nil {
				onChunk(text)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stream: %w", err)
	}
	return sb.String(), nil
}
