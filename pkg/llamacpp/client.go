// Package llamacpp talks to a llama.cpp server through its OpenAI-compatible API.
package llamacpp

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultURL is where llama-server listens out of the box
const DefaultURL = "http://localhost:8080"

// DefaultTimeout bounds a single request
const DefaultTimeout = 5 * time.Minute

type Client struct {
	client    *openai.Client
	maxTokens int
}

// NewClient creates a client for the llama-server at serverURL
func NewClient(serverURL string) (*Client, error) {
	return NewClientWithTimeout(serverURL, DefaultTimeout)
}

// NewClientWithTimeout creates a client whose HTTP requests give up after timeout
func NewClientWithTimeout(serverURL string, timeout time.Duration) (*Client, error) {
	if serverURL == "" {
		serverURL = DefaultURL
	}
	if !strings.HasPrefix(serverURL, "http://") && !strings.HasPrefix(serverURL, "https://") {
		return nil, fmt.Errorf("invalid URL %q: expected http or https", serverURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// llama-server does not check the key
	config := openai.DefaultConfig("")
	config.BaseURL = strings.TrimSuffix(serverURL, "/") + "/v1"
	config.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		client:    openai.NewClientWithConfig(config),
		maxTokens: 1024,
	}, nil
}

// Query sends one JPEG image with a prompt and returns the reply text
func (c *Client) Query(ctx context.Context, model, prompt string, image []byte) (string, error) {
	parts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: prompt,
		},
	}
	if len(image) > 0 {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
		Temperature: 0,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		for _, part := range resp.Choices[0].Message.MultiContent {
			if part.Type == openai.ChatMessagePartTypeText && part.Text != "" {
				return part.Text, nil
			}
		}
		return "", fmt.Errorf("no text content in response")
	}
	return content, nil
}
