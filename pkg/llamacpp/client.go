package llamacpp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/menta2k/image-verdict/pkg/oracle"
	"github.com/menta2k/image-verdict/pkg/types"
)

// DefaultTimeout bounds a single classification call.
const DefaultTimeout = 15 * time.Second

// Client classifies images through a llama.cpp server speaking the
// OpenAI-compatible chat completion API.
type Client struct {
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// OpenAI-compatible message format
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // Can be string or []ContentPart
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// OpenAI-compatible chat completion request
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Stream      bool      `json:"stream"`
}

// OpenAI-compatible chat completion response
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// NewClient creates a llama.cpp-backed classifier for the given server
// URL and model name.
func NewClient(serverURL, model string) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}

	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		model:   model,
		timeout: DefaultTimeout,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// WithTimeout overrides the default per-call timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

// Classify sends the prepared image to the vision model and parses its
// authenticity verdict.
func (c *Client) Classify(ctx context.Context, payload oracle.Payload) (*types.OracleVerdict, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	mime := payload.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	content := []ContentPart{
		{
			Type: "text",
			Text: oracle.ClassifyPrompt,
		},
		{
			Type: "image_url",
			ImageURL: &ImageURL{
				URL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(payload.Data),
			},
		},
	}

	req := ChatCompletionRequest{
		Model: c.model,
		Messages: []Message{
			{
				Role:    "user",
				Content: content,
			},
		},
		Temperature: 0.2,
		MaxTokens:   1024,
		TopP:        0.9,
		Stream:      false,
	}

	respBody, err := c.sendRequest(ctx, "/v1/chat/completions", req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %v", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	// Extract text content from the response (handle both string and array formats)
	var responseText string
	switch content := resp.Choices[0].Message.Content.(type) {
	case string:
		responseText = content
	case []interface{}:
		for _, item := range content {
			if partMap, ok := item.(map[string]interface{}); ok {
				if text, ok := partMap["text"].(string); ok && text != "" {
					responseText = text
					break
				}
			}
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("empty response from llama.cpp server")
	}

	return oracle.ParseVerdict(responseText)
}

func (c *Client) sendRequest(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

var _ oracle.VisionClassifier = (*Client)(nil)
