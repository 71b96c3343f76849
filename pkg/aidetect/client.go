package aidetect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/menta2k/image-verdict/pkg/oracle"
	"github.com/menta2k/image-verdict/pkg/types"
)

// DefaultTimeout bounds a single detection call.
const DefaultTimeout = 15 * time.Second

// Client calls a dedicated AI-generation detector service over REST. The
// detector is optional in the pipeline: callers treat any failure as "no
// opinion" rather than an error.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

type detectRequest struct {
	Image    string `json:"image"`
	MIMEType string `json:"mimeType,omitempty"`
}

type detectResponse struct {
	IsGenerated bool    `json:"isGenerated"`
	Confidence  float64 `json:"confidence"`
}

// NewClient creates a detector client for the given service URL. The API
// key is sent as an X-API-Key header when set.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("detector URL is empty")
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		timeout: DefaultTimeout,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}, nil
}

// WithTimeout overrides the default per-call timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

// Detect submits the image and returns the service's verdict.
func (c *Client) Detect(ctx context.Context, payload oracle.Payload) (*types.GenAIVerdict, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(detectRequest{
		Image:    base64.StdEncoding.EncodeToString(payload.Data),
		MIMEType: payload.MIMEType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/detect", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out detectResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to parse detector response: %v", err)
	}

	return &types.GenAIVerdict{
		IsGenerated: out.IsGenerated,
		Confidence:  oracle.ClampConfidence(int(math.Round(out.Confidence))),
	}, nil
}

var _ oracle.GenAIDetector = (*Client)(nil)
