package imageverdict

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/image-verdict/pkg/oracle"
	"github.com/menta2k/image-verdict/pkg/types"
)

// stubVision returns a canned verdict or error without any model backend.
type stubVision struct {
	verdict *types.OracleVerdict
	err     error
}

var _ oracle.VisionClassifier = (*stubVision)(nil)

func (s *stubVision) Classify(ctx context.Context, payload oracle.Payload) (*types.OracleVerdict, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.verdict, nil
}

// stubDetector returns a canned generation verdict or error.
type stubDetector struct {
	verdict *types.GenAIVerdict
	err     error
}

var _ oracle.GenAIDetector = (*stubDetector)(nil)

func (s *stubDetector) Detect(ctx context.Context, payload oracle.Payload) (*types.GenAIVerdict, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.verdict, nil
}

// encodeNoisePNG returns a PNG encoding of per-pixel random noise from a
// fixed seed. The noise level sits inside the band a camera sensor produces.
func encodeNoisePNG(t testing.TB, width, height int, seed int64) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				uint8(rng.Intn(240)),
				uint8(rng.Intn(240)),
				uint8(rng.Intn(240)),
				255,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// encodeSampleJPEG returns a JPEG encoding of a small patterned image.
func encodeSampleJPEG(t testing.TB, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 100, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to encode JPEG: %v", err)
	}
	return buf.Bytes()
}

func TestNew(t *testing.T) {
	engine := New(nil, nil)
	if engine == nil {
		t.Fatal("New() returned nil")
	}

	if engine.stats == nil {
		t.Error("stats component is nil")
	}
	if engine.exif == nil {
		t.Error("exif component is nil")
	}
	if engine.features == nil {
		t.Error("features component is nil")
	}
	if engine.fusion == nil {
		t.Error("fusion component is nil")
	}
	if engine.processor == nil {
		t.Error("processor component is nil")
	}
}

func TestNewWithConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Features.ELAQuality = 75
	cfg.Payload.MaxDimension = 1024

	engine := NewWithConfig(cfg, nil, nil)
	if engine == nil {
		t.Fatal("NewWithConfig() returned nil")
	}

	if engine.features == nil {
		t.Error("features component is nil")
	}
	if engine.fusion == nil {
		t.Error("fusion component is nil")
	}
}

func TestClassifyUndecodable(t *testing.T) {
	engine := New(nil, nil)

	_, err := engine.Classify(context.Background(), []byte("definitely not an image"), "junk.bin")
	if !errors.Is(err, ErrUndecodableImage) {
		t.Errorf("Expected ErrUndecodableImage, got %v", err)
	}

	_, err = engine.Classify(context.Background(), nil, "empty.jpg")
	if !errors.Is(err, ErrUndecodableImage) {
		t.Errorf("Expected ErrUndecodableImage for empty input, got %v", err)
	}
}

func TestClassifyNilOracles(t *testing.T) {
	engine := New(nil, nil)
	data := encodeNoisePNG(t, 256, 256, 7)

	verdict, err := engine.Classify(context.Background(), data, "noise.png")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if verdict.ID == "" {
		t.Error("Expected a non-empty verdict ID")
	}
	if verdict.Stats.Width != 256 || verdict.Stats.Height != 256 {
		t.Errorf("Expected 256x256 stats, got %dx%d", verdict.Stats.Width, verdict.Stats.Height)
	}
	if verdict.Stats.Format != types.FormatPNG {
		t.Errorf("Expected format png, got %s", verdict.Stats.Format)
	}
	if verdict.Vision == nil || !verdict.Vision.Fallback {
		t.Error("Expected a fallback vision verdict")
	}
	if verdict.Detector != nil {
		t.Error("Expected no detector verdict")
	}

	// A bare fallback never carries enough confidence to clear the gate.
	if verdict.Label != types.LabelUncertain {
		t.Errorf("Expected label uncertain, got %s", verdict.Label)
	}
	if verdict.Confidence != 50 {
		t.Errorf("Expected confidence 50, got %d", verdict.Confidence)
	}
	if len(verdict.Trace) != 0 {
		t.Errorf("Expected empty trace, got %d entries", len(verdict.Trace))
	}
	if verdict.AnalyzedAt.IsZero() {
		t.Error("Expected analyzedAt to be set")
	}
}

func TestClassifyMetadataOnlyImage(t *testing.T) {
	engine := New(nil, nil)
	data := []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'h', 'e', 'i', 'c', 0, 0, 0, 0}

	verdict, err := engine.Classify(context.Background(), data, "photo.heic")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if verdict.Stats.Format != types.FormatHEIC {
		t.Errorf("Expected format heic, got %s", verdict.Stats.Format)
	}
	if verdict.Scores.Noise != 0.5 {
		t.Errorf("Expected neutral noise score 0.5, got %f", verdict.Scores.Noise)
	}
	if verdict.Scores.Artifact != 1.0 {
		t.Errorf("Expected neutral artifact score 1.0, got %f", verdict.Scores.Artifact)
	}
	if verdict.Scores.ELA != 0 {
		t.Errorf("Expected ELA score 0, got %f", verdict.Scores.ELA)
	}
	if math.Abs(verdict.Scores.Technical-0.55) > 1e-9 {
		t.Errorf("Expected technical score 0.55, got %f", verdict.Scores.Technical)
	}
	if verdict.Label != types.LabelUncertain {
		t.Errorf("Expected label uncertain, got %s", verdict.Label)
	}
	if verdict.Confidence != 50 {
		t.Errorf("Expected confidence 50, got %d", verdict.Confidence)
	}
	if verdict.Vision == nil || !verdict.Vision.Fallback {
		t.Error("Expected a fallback vision verdict")
	}
}

func TestClassifyVisionVerdictCarried(t *testing.T) {
	vision := &stubVision{verdict: &types.OracleVerdict{
		Label:       types.LabelOriginal,
		Confidence:  92,
		ContentType: types.ContentPhoto,
		Reasoning:   "natural depth of field and sensor noise",
	}}
	engine := New(vision, nil)
	data := encodeNoisePNG(t, 256, 256, 7)

	verdict, err := engine.Classify(context.Background(), data, "noise.png")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if verdict.Vision == nil {
		t.Fatal("Expected a vision verdict")
	}
	if verdict.Vision.Fallback {
		t.Error("Expected the classifier verdict, not the fallback")
	}
	if verdict.Vision.Confidence != 92 {
		t.Errorf("Expected vision confidence 92, got %d", verdict.Vision.Confidence)
	}

	// No EXIF and no detector provenance, so the gate refuses to confirm
	// the classifier's "original" and degrades to uncertain.
	if verdict.Label != types.LabelUncertain {
		t.Errorf("Expected label uncertain, got %s", verdict.Label)
	}
	if verdict.Confidence != 69 {
		t.Errorf("Expected confidence 69, got %d", verdict.Confidence)
	}
}

func TestClassifyDetectorOverride(t *testing.T) {
	vision := &stubVision{err: errors.New("model unavailable")}
	detector := &stubDetector{verdict: &types.GenAIVerdict{IsGenerated: true, Confidence: 95}}
	engine := New(vision, detector)
	data := encodeNoisePNG(t, 256, 256, 7)

	verdict, err := engine.Classify(context.Background(), data, "generated.png")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if verdict.Label != types.LabelAIGenerated {
		t.Errorf("Expected label ai_generated, got %s", verdict.Label)
	}
	if verdict.Confidence != 95 {
		t.Errorf("Expected confidence 95, got %d", verdict.Confidence)
	}
	if verdict.Vision == nil || !verdict.Vision.Fallback {
		t.Error("Expected a fallback vision verdict after classifier failure")
	}
	if verdict.Detector == nil || !verdict.Detector.IsGenerated {
		t.Error("Expected the detector verdict to be recorded")
	}
	if len(verdict.Trace) != 1 || verdict.Trace[0].Rule != "detector-alignment" {
		t.Errorf("Expected a single detector-alignment trace entry, got %+v", verdict.Trace)
	}
}

func TestClassifySource(t *testing.T) {
	engine := New(nil, nil)
	data := encodeSampleJPEG(t, 64, 48)

	path := filepath.Join(t.TempDir(), "sample.jpg")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	verdict, err := engine.ClassifySource(context.Background(), path)
	if err != nil {
		t.Fatalf("ClassifySource failed: %v", err)
	}
	if verdict.Stats.Format != types.FormatJPEG {
		t.Errorf("Expected format jpeg, got %s", verdict.Stats.Format)
	}
	if verdict.Stats.SizeBytes != len(data) {
		t.Errorf("Expected size %d, got %d", len(data), verdict.Stats.SizeBytes)
	}

	_, err = engine.ClassifySource(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	if err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestGetVersion(t *testing.T) {
	version := GetVersion()
	if version == "" {
		t.Error("Version should not be empty")
	}

	if version != Version {
		t.Errorf("GetVersion() returned %s, expected %s", version, Version)
	}
}

func BenchmarkClassify(b *testing.B) {
	engine := New(nil, nil)
	data := encodeNoisePNG(b, 256, 256, 7)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Classify(ctx, data, "noise.png")
	}
}
