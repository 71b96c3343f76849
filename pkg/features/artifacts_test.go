package features

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"
)

// makePlane builds a luminance plane from a per-pixel generator.
func makePlane(width, height int, f func(x, y int) float64) plane {
	p := plane{w: width, h: height, pix: make([]float64, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p.pix[y*width+x] = f(x, y)
		}
	}
	return p
}

func TestDetectBlur(t *testing.T) {
	flat := makePlane(64, 64, func(x, y int) float64 { return 128 })
	if !detectBlur(flat) {
		t.Error("Expected flat plane to read as blurred")
	}

	stripes := makePlane(64, 64, func(x, y int) float64 {
		if x%2 == 0 {
			return 0
		}
		return 255
	})
	if detectBlur(stripes) {
		t.Error("Expected high-contrast stripes to read as sharp")
	}
}

func TestDetectUnnaturalSmoothing(t *testing.T) {
	flat := makePlane(64, 64, func(x, y int) float64 { return 200 })
	if !detectUnnaturalSmoothing(flat) {
		t.Error("Expected flat plane to read as unnaturally smooth")
	}

	checker := makePlane(64, 64, func(x, y int) float64 {
		return float64(((x + y) % 2) * 255)
	})
	if detectUnnaturalSmoothing(checker) {
		t.Error("Expected checkerboard to read as textured")
	}
}

func TestDetectNoisePatterns(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	uniform := makePlane(128, 128, func(x, y int) float64 {
		return float64(rng.Intn(256))
	})
	if !detectNoisePatterns(uniform) {
		t.Error("Expected uniform synthetic noise to be flagged")
	}

	// Sensor-like noise varies with content: half the frame flat, half
	// noisy gives a large tile spread.
	halfFlat := makePlane(128, 128, func(x, y int) float64 {
		if x < 64 {
			return 0
		}
		return float64(rng.Intn(256))
	})
	if detectNoisePatterns(halfFlat) {
		t.Error("Expected content-dependent noise to pass")
	}

	tiny := makePlane(32, 32, func(x, y int) float64 {
		return float64(rng.Intn(256))
	})
	if detectNoisePatterns(tiny) {
		t.Error("Expected tiny plane to be skipped")
	}
}

func TestDetectInconsistentLighting(t *testing.T) {
	split := makePlane(64, 64, func(x, y int) float64 {
		if x >= 32 && y >= 32 {
			return 200
		}
		return 0
	})
	if !detectInconsistentLighting(split) {
		t.Error("Expected divergent quadrants to be flagged")
	}

	uniform := makePlane(64, 64, func(x, y int) float64 { return 100 })
	if detectInconsistentLighting(uniform) {
		t.Error("Expected uniform lighting to pass")
	}
}

func TestDetectEdgeArtifacts(t *testing.T) {
	// Each period carries one edge with a halo: a dip to 48 before the
	// jump, an overshoot to 212 after it.
	ringing := makePlane(264, 8, func(x, y int) float64 {
		switch x % 12 {
		case 0, 1, 2, 3:
			return 60
		case 4:
			return 48
		case 5:
			return 212
		default:
			return 200
		}
	})
	if !detectEdgeArtifacts(ringing) {
		t.Error("Expected halo edges to be flagged")
	}

	steps := makePlane(256, 8, func(x, y int) float64 {
		if x%16 < 8 {
			return 60
		}
		return 200
	})
	if detectEdgeArtifacts(steps) {
		t.Error("Expected clean step edges to pass")
	}
}

func TestDetectRepetitivePatterns(t *testing.T) {
	tiled := makePlane(160, 160, func(x, y int) float64 {
		return float64((x % 16) * 15)
	})
	if !detectRepetitivePatterns(tiled) {
		t.Error("Expected repeated texture tiles to be flagged")
	}

	rng := rand.New(rand.NewSource(3))
	random := makePlane(160, 160, func(x, y int) float64 {
		return float64(rng.Intn(256))
	})
	if detectRepetitivePatterns(random) {
		t.Error("Expected random texture to pass")
	}
}

func TestDetectCompression(t *testing.T) {
	// 8-pixel blocks with a gentle in-block ramp and alternating block
	// bases leave large steps only at the grid seams.
	blocky := image.NewNRGBA(image.Rect(0, 0, 256, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 256; x++ {
			base := 40
			if ((x/8)+(y/8))%2 == 1 {
				base = 120
			}
			v := uint8(base + (x%8)*2)
			blocky.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	if !detectCompression(blocky) {
		t.Error("Expected blocky image to be flagged")
	}

	smooth := createGradientImage(256, 32)
	if detectCompression(smooth) {
		t.Error("Expected smooth ramp to pass")
	}
}

func TestDetectColorAdjustment(t *testing.T) {
	cast := createUniformImage(64, 64, color.NRGBA{200, 80, 80, 255})
	if !detectColorAdjustment(cast) {
		t.Error("Expected strong red cast to be flagged")
	}

	neutral := createUniformImage(64, 64, color.NRGBA{120, 125, 130, 255})
	if detectColorAdjustment(neutral) {
		t.Error("Expected near-neutral image to pass")
	}

	clipped := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			c := color.NRGBA{128, 128, 128, 255}
			if x < 32 {
				c = color.NRGBA{255, 255, 255, 255}
			}
			clipped.SetNRGBA(x, y, c)
		}
	}
	if !detectColorAdjustment(clipped) {
		t.Error("Expected heavy highlight clipping to be flagged")
	}
}

func TestDetectArtifactsUniform(t *testing.T) {
	extractor := New()
	img := createUniformImage(256, 256, color.NRGBA{128, 128, 128, 255})

	score, signals := extractor.ArtifactScore(img)

	if !signals.Blur {
		t.Error("Expected uniform image to read as blurred")
	}
	if !signals.UnnaturalSmoothing {
		t.Error("Expected uniform image to read as unnaturally smooth")
	}
	if signals.Compression {
		t.Error("Expected no compression artifacts on uniform image")
	}
	if signals.ColorAdjustment {
		t.Error("Expected no color adjustment on neutral gray")
	}
	if signals.NoisePatterns {
		t.Error("Expected no noise patterns on uniform image")
	}
	if signals.InconsistentLighting {
		t.Error("Expected consistent lighting on uniform image")
	}
	if signals.EdgeArtifacts {
		t.Error("Expected no edge artifacts on uniform image")
	}
	if signals.RepetitivePatterns {
		t.Error("Expected flat tiles to be excluded from repetition")
	}

	// Smoothing (2) plus blur without compression (1) out of weight 7.
	expected := 1.0 - 3.0/7.0
	if math.Abs(score-expected) > 1e-9 {
		t.Errorf("Expected artifact score %f, got %f", expected, score)
	}
}

func TestDetectArtifactsNoise(t *testing.T) {
	extractor := New()
	img := createNoiseImage(256, 256, 7)

	score, signals := extractor.ArtifactScore(img)

	if !signals.NoisePatterns {
		t.Error("Expected uniform synthetic grain to be flagged")
	}
	if signals.Blur {
		t.Error("Expected noise image to read as sharp")
	}
	if signals.UnnaturalSmoothing {
		t.Error("Expected noise image to read as textured")
	}
	if signals.RepetitivePatterns {
		t.Error("Expected no repeated tiles in random noise")
	}
	if signals.ColorAdjustment {
		t.Error("Expected no color cast in balanced noise")
	}
	if signals.Compression {
		t.Error("Expected no block seams in random noise")
	}
	if signals.InconsistentLighting {
		t.Error("Expected consistent lighting in random noise")
	}

	expected := 1.0 - 1.0/7.0
	if math.Abs(score-expected) > 1e-9 {
		t.Errorf("Expected artifact score %f, got %f", expected, score)
	}
}

func TestTileHashFlatExclusion(t *testing.T) {
	flat := makePlane(32, 32, func(x, y int) float64 { return 77 })
	if _, ok := flat.tileHash(0, 0, 16); ok {
		t.Error("Expected flat tile to be excluded")
	}

	textured := makePlane(32, 32, func(x, y int) float64 {
		return float64((x % 16) * 15)
	})
	if _, ok := textured.tileHash(0, 0, 16); !ok {
		t.Error("Expected textured tile to hash")
	}
}

func BenchmarkDetectArtifacts(b *testing.B) {
	extractor := New()
	img := createNoiseImage(512, 512, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		extractor.DetectArtifacts(img)
	}
}
