// Package ai implements the remote generative services: script generation,
// speech synthesis, cover images, and feed discovery.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

//go:generate moq -out mocks/http_client.go -pkg mocks -skip-ensure -fmt goimports . HTTPClient

// HTTPClient defines the interface for HTTP client operations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	defaultBaseURL = "https://api.openai.com/v1"
	httpTimeout    = 2 * time.Minute

	chatModel   = "gpt-4o"
	speechModel = "gpt-4o-audio-preview"
	imageModel  = "dall-e-3"

	// outbound request rate, keeps background chunk synthesis from
	// flooding the API
	requestsPerSecond = 2
)

// Client talks to the OpenAI-compatible API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPClient
	limiter    *rate.Limiter
	log        *logrus.Logger

	speechBackoff time.Duration // initial retry interval, shortened in tests
}

// NewClient creates a new API client. A nil httpClient gets a default with a
// generous timeout; an empty baseURL targets the public API.
func NewClient(apiKey, baseURL string, httpClient HTTPClient, log *logrus.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpTimeout}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		apiKey:        apiKey,
		baseURL:       baseURL,
		httpClient:    httpClient,
		limiter:       rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		log:           log,
		speechBackoff: speechBackoffInitial,
	}
}

// chatMessage represents a message in the chat API format
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// postJSON sends an authenticated JSON request and returns the raw response.
// The caller owns the response body.
func (c *Client) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return resp, nil
}

// callChat makes a chat completions request and returns the text content of
// the first choice.
func (c *Client) callChat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	request := struct {
		Model       string        `json:"model"`
		Messages    []chatMessage `json:"messages"`
		Temperature float64       `json:"temperature"`
	}{
		Model: chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.7,
	}

	resp, err := c.postJSON(ctx, "/chat/completions", request)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no response from API")
	}
	return result.Choices[0].Message.Content, nil
}
