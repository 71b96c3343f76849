// Package processing prepares image bytes for the vision oracles:
// loading from files or URLs, and shrinking oversized inputs under the
// payload budget the model endpoints accept.
package processing

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-verdict/pkg/oracle"
	"github.com/menta2k/image-verdict/pkg/types"
)

// Config controls payload preparation.
type Config struct {
	// MaxPayloadBytes is the byte budget for a single oracle payload.
	MaxPayloadBytes int
	// MaxDimension bounds the longer side of a re-encoded payload.
	MaxDimension int
	// MinDimension is the width floor for the downscale loop.
	MinDimension int
	// JPEGQuality is used when a payload has to be re-encoded.
	JPEGQuality int
}

// DefaultConfig returns the stock payload limits.
func DefaultConfig() Config {
	return Config{
		MaxPayloadBytes: 15 << 20,
		MaxDimension:    2048,
		MinDimension:    256,
		JPEGQuality:     85,
	}
}

// Processor handles image loading and payload preparation.
type Processor struct {
	config Config
}

// NewProcessor creates a processor with default limits.
func NewProcessor() *Processor {
	return NewProcessorWithConfig(DefaultConfig())
}

// NewProcessorWithConfig creates a processor with custom limits.
func NewProcessorWithConfig(config Config) *Processor {
	return &Processor{config: config}
}

// PreparePayload turns the original bytes into an oracle payload. Inputs
// already under the byte budget pass through untouched so the oracles see
// the original encoding; anything larger is re-encoded as JPEG, narrowing
// the width until the budget holds. img may be nil for formats decoded
// only for metadata, in which case an oversized input cannot be shrunk.
func (p *Processor) PreparePayload(img image.Image, stats types.ImageStats, raw []byte) (oracle.Payload, error) {
	if len(raw) == 0 {
		return oracle.Payload{}, fmt.Errorf("empty image data")
	}
	if len(raw) <= p.config.MaxPayloadBytes && stats.Format != types.FormatUnknown {
		return oracle.Payload{Data: raw, MIMEType: MIMEType(stats.Format)}, nil
	}
	if img == nil {
		return oracle.Payload{}, fmt.Errorf("cannot shrink %d byte %s payload without decoded pixels", len(raw), stats.Format)
	}

	width := img.Bounds().Dx()
	if p.config.MaxDimension > 0 && width > p.config.MaxDimension {
		width = p.config.MaxDimension
	}
	for {
		resized := img
		if width < img.Bounds().Dx() {
			resized = imaging.Resize(img, width, 0, imaging.Lanczos)
		}
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(p.config.JPEGQuality)); err != nil {
			return oracle.Payload{}, fmt.Errorf("failed to encode payload: %w", err)
		}
		if buf.Len() <= p.config.MaxPayloadBytes || width <= p.config.MinDimension {
			return oracle.Payload{Data: buf.Bytes(), MIMEType: "image/jpeg"}, nil
		}
		width = width * 3 / 4
	}
}

// MIMEType maps a detected format to the MIME type oracles expect.
func MIMEType(format types.Format) string {
	switch format {
	case types.FormatJPEG:
		return "image/jpeg"
	case types.FormatPNG:
		return "image/png"
	case types.FormatWebP:
		return "image/webp"
	case types.FormatHEIC:
		return "image/heic"
	default:
		return "application/octet-stream"
	}
}

// LoadImageFromURL downloads image bytes from a URL.
func (p *Processor) LoadImageFromURL(imageURL string) ([]byte, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequest("GET", imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", "Image-Verdict/1.0 (+https://github.com/menta2k/image-verdict)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") && !strings.HasPrefix(contentType, "application/octet-stream") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %v", err)
	}
	return imageData, nil
}

// LoadSource reads image bytes from either a file path or a URL.
func (p *Processor) LoadSource(source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(source)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}
