// Package imageverdict decides whether an image is camera-original,
// AI-generated, or AI-modified.
//
// The engine extracts several independent forensic signals from the image
// (EXIF provenance, sensor noise statistics, pixel-level artifacts, JPEG
// error levels), consults a vision classifier and an optional generation
// detector, and fuses everything through an ordered rule pipeline followed
// by a conservative gate. The gate only emits a definitive label when the
// evidence corroborates it; anything weaker degrades to "uncertain".
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//		"os"
//
//		imageverdict "github.com/menta2k/image-verdict"
//		"github.com/menta2k/image-verdict/pkg/ollama"
//	)
//
//	func main() {
//		vision, err := ollama.NewClient("http://localhost:11434", "qwen2.5vl:7b")
//		if err != nil {
//			log.Fatal(err)
//		}
//		engine := imageverdict.New(vision, nil)
//
//		data, err := os.ReadFile("photo.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		verdict, err := engine.Classify(context.Background(), data, "photo.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Printf("%s (confidence %d)\n", verdict.Label, verdict.Confidence)
//	}
//
// The package consists of these main components:
//
// 1. Stats (pkg/stats): format sniffing and image decoding
// 2. Exif (pkg/exif): camera metadata extraction
// 3. Features (pkg/features): forensic feature scores and artifact flags
// 4. Oracle (pkg/oracle): classifier interfaces, prompt, and response parsing
// 5. Fusion (pkg/fusion): rule pipeline and conservative gate
// 6. Processing (pkg/processing): payload preparation for the oracles
//
// Backends for the vision classifier live in pkg/ollama, pkg/llamacpp and
// pkg/gemini; pkg/aidetect wraps a dedicated generation detector service.
// All oracle calls are optional: a nil classifier falls back to a verdict
// synthesized from the technical score, and a nil detector simply has no
// opinion.
package imageverdict

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/menta2k/image-verdict/pkg/exif"
	"github.com/menta2k/image-verdict/pkg/features"
	"github.com/menta2k/image-verdict/pkg/fusion"
	"github.com/menta2k/image-verdict/pkg/oracle"
	"github.com/menta2k/image-verdict/pkg/processing"
	"github.com/menta2k/image-verdict/pkg/stats"
	"github.com/menta2k/image-verdict/pkg/types"
)

// Version of the image verdict library
const Version = "1.0.0"

// ErrUndecodableImage is returned when the input bytes cannot be decoded
// as a supported image format.
var ErrUndecodableImage = errors.New("image data could not be decoded")

// Config bundles the tunables of every pipeline stage.
type Config struct {
	Features features.Config
	Fusion   fusion.Config
	Payload  processing.Config
}

// DefaultConfig returns the stock engine configuration.
func DefaultConfig() Config {
	return Config{
		Features: features.DefaultConfig(),
		Fusion:   fusion.DefaultConfig(),
		Payload:  processing.DefaultConfig(),
	}
}

// Engine runs the authenticity pipeline. Construct one with New or
// NewWithConfig and share it freely: Classify holds no mutable state
// across calls.
type Engine struct {
	stats     *stats.Provider
	exif      *exif.Reader
	features  *features.Extractor
	fusion    *fusion.Engine
	processor *processing.Processor
	vision    oracle.VisionClassifier
	detector  oracle.GenAIDetector
}

// New creates an engine with default configuration. vision may be nil,
// in which case every verdict is derived from the technical score alone;
// detector may be nil when no generation detector is available.
func New(vision oracle.VisionClassifier, detector oracle.GenAIDetector) *Engine {
	return NewWithConfig(DefaultConfig(), vision, detector)
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(cfg Config, vision oracle.VisionClassifier, detector oracle.GenAIDetector) *Engine {
	return &Engine{
		stats:     stats.NewProvider(),
		exif:      exif.NewReader(),
		features:  features.NewWithConfig(cfg.Features),
		fusion:    fusion.NewWithConfig(cfg.Fusion),
		processor: processing.NewProcessorWithConfig(cfg.Payload),
		vision:    vision,
		detector:  detector,
	}
}

// Classify analyzes raw image bytes and returns the authenticity verdict.
// The filename is only consulted as a format hint when the magic bytes
// are ambiguous. The only error condition is undecodable input; oracle
// failures degrade to fallbacks and never surface here.
func (e *Engine) Classify(ctx context.Context, data []byte, filename string) (*types.Verdict, error) {
	start := time.Now()

	decoded, err := e.stats.Decode(data, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}
	imageStats := decoded.Stats

	meta, err := e.exif.Read(data)
	if err != nil {
		log.Debug().Err(err).Msg("EXIF parse failed, treating metadata as absent")
		meta = &exif.Metadata{}
	}
	signals := meta.Signals
	if imageStats.Width == 0 && meta.Width > 0 {
		imageStats.Width = meta.Width
		imageStats.Height = meta.Height
	}

	scores, artifacts := e.extractFeatures(decoded, signals)

	visionVerdict, detectorVerdict := e.consultOracles(ctx, decoded, imageStats, data)
	if visionVerdict == nil {
		visionVerdict = oracle.FallbackVerdict(scores.Technical)
	}

	evidence := fusion.Evidence{
		Scores:    scores,
		Exif:      signals,
		Artifacts: artifacts,
		Format:    imageStats.Format,
		Vision:    visionVerdict,
		Detector:  detectorVerdict,
	}
	fused, trace := e.fusion.Fuse(evidence)
	final := e.fusion.Gate(evidence, fused)

	verdict := &types.Verdict{
		ID:         newVerdictID(),
		Label:      final.Label,
		Confidence: final.Confidence,
		Scores:     scores,
		Exif:       signals,
		Artifacts:  artifacts,
		Vision:     visionVerdict,
		Detector:   detectorVerdict,
		Stats:      imageStats,
		Trace:      trace,
		ElapsedMS:  time.Since(start).Milliseconds(),
		AnalyzedAt: time.Now().UTC(),
	}

	log.Debug().
		Str("id", verdict.ID).
		Str("label", string(verdict.Label)).
		Int("confidence", verdict.Confidence).
		Str("fused_label", string(fused.Label)).
		Int("fused_confidence", fused.Confidence).
		Float64("technical", scores.Technical).
		Int64("elapsed_ms", verdict.ElapsedMS).
		Msg("verdict issued")

	return verdict, nil
}

// ClassifySource is a convenience wrapper that loads the image from a
// file path or an http(s) URL before classifying it.
func (e *Engine) ClassifySource(ctx context.Context, source string) (*types.Verdict, error) {
	data, err := e.processor.LoadSource(source)
	if err != nil {
		return nil, err
	}
	return e.Classify(ctx, data, source)
}

// extractFeatures runs the four extractors concurrently. Each writes a
// distinct field, so no locking is needed. Inputs decoded only for
// metadata (no pixels) get neutral pixel scores.
func (e *Engine) extractFeatures(decoded *stats.Decoded, signals types.ExifSignals) (types.FeatureScores, types.ArtifactSignals) {
	img := decoded.Image

	var (
		wg        sync.WaitGroup
		scores    types.FeatureScores
		artifacts types.ArtifactSignals
	)
	wg.Add(4)
	go func() {
		defer wg.Done()
		scores.Exif = e.features.ExifScore(signals)
	}()
	go func() {
		defer wg.Done()
		if img == nil {
			scores.Noise = 0.5
			return
		}
		scores.Noise = e.features.NoiseScore(img)
	}()
	go func() {
		defer wg.Done()
		if img == nil {
			scores.Artifact = 1
			return
		}
		scores.Artifact, artifacts = e.features.ArtifactScore(img)
	}()
	go func() {
		defer wg.Done()
		if img == nil {
			return
		}
		scores.ELA = e.features.ELAScore(img, decoded.Stats.Format)
	}()
	wg.Wait()

	scores.Technical = e.features.Technical(scores)
	return scores, artifacts
}

// consultOracles prepares the payload and fans out to the configured
// oracles, awaiting both. A failed or missing classifier yields a nil
// vision verdict (the caller substitutes the fallback); a failed or
// missing detector yields a nil detector verdict.
func (e *Engine) consultOracles(ctx context.Context, decoded *stats.Decoded, imageStats types.ImageStats, data []byte) (*types.OracleVerdict, *types.GenAIVerdict) {
	if e.vision == nil && e.detector == nil {
		return nil, nil
	}

	payload, err := e.processor.PreparePayload(decoded.Image, imageStats, data)
	if err != nil {
		log.Warn().Err(err).Msg("payload preparation failed, skipping oracles")
		return nil, nil
	}

	var (
		wg              sync.WaitGroup
		visionVerdict   *types.OracleVerdict
		detectorVerdict *types.GenAIVerdict
	)
	if e.vision != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := e.vision.Classify(ctx, payload)
			if err != nil {
				log.Warn().Err(err).Msg("vision classifier failed, substituting technical fallback")
				return
			}
			visionVerdict = v
		}()
	}
	if e.detector != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := e.detector.Detect(ctx, payload)
			if err != nil {
				log.Warn().Err(err).Msg("generation detector failed, proceeding without it")
				return
			}
			detectorVerdict = v
		}()
	}
	wg.Wait()

	return visionVerdict, detectorVerdict
}

// newVerdictID returns a short random identifier for one verdict.
func newVerdictID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("v%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
