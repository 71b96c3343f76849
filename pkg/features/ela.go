package features

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-verdict/pkg/types"
)

// ELAScore measures error-level analysis divergence for JPEG inputs:
// regions that recompress differently from the rest of the image mark
// prior edits. Non-JPEG inputs score exactly 0, since transcoding PNG or
// WebP through JPEG would flag the format conversion rather than an edit.
func (e *Extractor) ELAScore(img image.Image, format types.Format) float64 {
	if format != types.FormatJPEG {
		return 0
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(e.config.ELAQuality)); err != nil {
		return 0
	}
	resaved, err := imaging.Decode(&buf)
	if err != nil {
		return 0
	}

	diff := meanAbsDiff(img, resaved)
	return clamp(diff/e.config.ELADivisor, 0, 1)
}

// meanAbsDiff averages the absolute per-channel difference between two
// images of identical bounds, sampling large images on a grid.
func meanAbsDiff(a, b image.Image) float64 {
	bounds := a.Bounds()
	stepX := bounds.Dx() / 512
	if stepX < 1 {
		stepX = 1
	}
	stepY := bounds.Dy() / 512
	if stepY < 1 {
		stepY = 1
	}

	offX := b.Bounds().Min.X - bounds.Min.X
	offY := b.Bounds().Min.Y - bounds.Min.Y

	var total, n float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r1, g1, b1, _ := a.At(x, y).RGBA()
			r2, g2, b2, _ := b.At(x+offX, y+offY).RGBA()
			total += absf(float64(r1>>8)-float64(r2>>8)) +
				absf(float64(g1>>8)-float64(g2>>8)) +
				absf(float64(b1>>8)-float64(b2>>8))
			n += 3
		}
	}
	if n == 0 {
		return 0
	}
	return total / n
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
