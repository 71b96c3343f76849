package gemini

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/menta2k/image-verdict/pkg/oracle"
	"github.com/menta2k/image-verdict/pkg/types"
)

// DefaultTimeout bounds a single classification call.
const DefaultTimeout = 15 * time.Second

// DefaultModel is the vision model used when none is configured.
const DefaultModel = "gemini-3-flash-preview"

// Client classifies images through the Gemini API.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewClient creates a Gemini-backed classifier. The model name falls
// back to DefaultModel when empty.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is empty")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{client: client, model: model, timeout: DefaultTimeout}, nil
}

// WithTimeout overrides the default per-call timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

// Classify sends the prepared image to Gemini as an inline blob and
// parses its authenticity verdict.
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

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mime, Data: payload.Data}},
			{Text: oracle.ClassifyPrompt},
		},
	}}
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: 1024,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate error: %w", err)
	}
	if resp == nil || resp.Text() == "" {
		return nil, fmt.Errorf("empty response from gemini")
	}

	return oracle.ParseVerdict(resp.Text())
}

var _ oracle.VisionClassifier = (*Client)(nil)
