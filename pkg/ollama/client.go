package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/image-verdict/pkg/oracle"
	"github.com/menta2k/image-verdict/pkg/types"
)

// DefaultTimeout bounds a single classification call.
const DefaultTimeout = 15 * time.Second

// Client classifies images through a vision model served by Ollama.
type Client struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// NewClient creates an Ollama-backed classifier for the given server URL
// and model name.
func NewClient(ollamaURL, model string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	// Base URL only; the API client appends its own paths
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{
		client:  api.NewClient(baseURL, http.DefaultClient),
		model:   model,
		timeout: DefaultTimeout,
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
	// Add timeout if the context doesn't carry a deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: oracle.ClassifyPrompt,
				Images:  []api.ImageData{api.ImageData(payload.Data)},
			},
		},
		Stream: &streamFalse,
		// No Format field - the prompt pins the output shape
	}

	var responseContent string
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %v", err)
	}
	if responseContent == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}

	return oracle.ParseVerdict(responseContent)
}

var _ oracle.VisionClassifier = (*Client)(nil)
