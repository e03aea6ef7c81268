// Package openai implements llm.Provider on top of the go-openai client,
// covering OpenAI and any chat-completions-compatible endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/avanolabs/tradepanel/pkg/llm"
)

// Client implements the llm.Provider interface for OpenAI-compatible APIs.
type Client struct {
	client *goopenai.Client
	config *llm.Config
}

// New creates an OpenAI-compatible client with the given configuration.
func New(config *llm.Config) *Client {
	clientConfig := goopenai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &Client{
		client: goopenai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

func (c *Client) buildRequest(system string, req llm.Request) goopenai.ChatCompletionRequest {
	userMsg := goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser}
	if req.ImageURL != "" {
		userMsg.MultiContent = []goopenai.ChatMessagePart{
			{Type: goopenai.ChatMessagePartTypeText, Text: req.Content},
			{
				Type:     goopenai.ChatMessagePartTypeImageURL,
				ImageURL: &goopenai.ChatMessageImageURL{URL: req.ImageURL},
			},
		}
	} else {
		userMsg.Content = req.Content
	}

	return goopenai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			userMsg,
		},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}
}

// Generate sends a chat completion request and returns the assistant text.
func (c *Client) Generate(ctx context.Context, system string, req llm.Request) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(system, req))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream sends a streaming chat completion request, invoking onChunk per
// delta, and returns the concatenated text.
func (c *Client) Stream(ctx context.Context, system string, req llm.Request, onChunk func(string)) (string, error) {
	chatReq := c.buildRequest(system, req)
	chatReq.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("open completion stream: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read completion stream: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			sb.WriteString(delta)
			if onChunk != nil {
				onChunk(delta)
			}
		}
	}
	return sb.String(), nil
}
