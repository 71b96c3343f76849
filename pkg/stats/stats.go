package stats

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-verdict/pkg/types"
)

// Provider decodes image bytes and reports container-level statistics.
type Provider struct{}

// NewProvider creates a new stats provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Decoded pairs pixel data with container statistics. Image is nil for
// formats whose pixels cannot be decoded in-process (HEIC); callers fall
// back to metadata-only analysis for those.
type Decoded struct {
	Image image.Image
	Stats types.ImageStats
}

// Decode sniffs the container format and decodes the pixel data. The
// filename is only consulted when the magic bytes are inconclusive.
func (p *Provider) Decode(data []byte, filename string) (*Decoded, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}

	format := DetectFormat(data, filename)
	if format == types.FormatHEIC {
		return &Decoded{
			Stats: types.ImageStats{
				Format:    format,
				Channels:  3,
				SizeBytes: len(data),
			},
		}, nil
	}

	img, err := decodeBytes(data)
	if err != nil {
		return nil, err
	}
	return &Decoded{Image: img, Stats: describe(img, format, len(data))}, nil
}

// DetectFormat identifies the container format from magic bytes, falling
// back to the filename extension.
func DetectFormat(data []byte, filename string) types.Format {
	switch {
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8:
		return types.FormatJPEG
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return types.FormatPNG
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return types.FormatWebP
	case isHEIC(data):
		return types.FormatHEIC
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return types.FormatJPEG
	case ".png":
		return types.FormatPNG
	case ".webp":
		return types.FormatWebP
	case ".heic", ".heif":
		return types.FormatHEIC
	}
	return types.FormatUnknown
}

func isHEIC(data []byte) bool {
	if len(data) < 12 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return false
	}
	brand := string(data[8:12])
	switch brand {
	case "heic", "heix", "hevc", "hevx", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// decodeBytes decodes an image from byte data with WebP fallback.
func decodeBytes(data []byte) (image.Image, error) {
	// Try standard image.Decode first
	reader := bytes.NewReader(data)
	if img, _, err := image.Decode(reader); err == nil {
		return img, nil
	}

	// Try WebP decode
	reader = bytes.NewReader(data)
	if img, err := webp.Decode(reader); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}

func describe(img image.Image, format types.Format, sizeBytes int) types.ImageStats {
	b := img.Bounds()
	channels := 3
	hasAlpha := false
	switch img.ColorModel() {
	case color.NRGBAModel, color.NRGBA64Model, color.RGBAModel, color.RGBA64Model:
		channels = 4
		hasAlpha = true
	case color.GrayModel, color.Gray16Model:
		channels = 1
	}
	return types.ImageStats{
		Width:     b.Dx(),
		Height:    b.Dy(),
		Format:    format,
		Channels:  channels,
		HasAlpha:  hasAlpha,
		SizeBytes: sizeBytes,
	}
}
