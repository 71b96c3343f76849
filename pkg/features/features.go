package features

import (
	"github.com/menta2k/image-verdict/pkg/types"
)

// Extractor computes forensic feature scores from decoded pixels and
// camera metadata. All methods are deterministic: identical input bytes
// always produce identical scores.
type Extractor struct {
	config Config
}

// Config holds the tunable weights and thresholds for feature extraction.
type Config struct {
	// Weights of the individual scores in the technical aggregate.
	ExifWeight     float64
	NoiseWeight    float64
	ArtifactWeight float64
	ELAWeight      float64

	// Natural sensor-noise band as a fraction of full scale.
	NoiseFloor    float64
	NoiseBandLow  float64
	NoiseBandHigh float64
	NoiseCeiling  float64

	// JPEG resave quality and diff divisor for error-level analysis.
	ELAQuality int
	ELADivisor float64

	// Pixel heuristics run on a bounded working copy: a resized global
	// view and a native-resolution center crop.
	MaxAnalysisWidth int
	MaxDetailSpan    int
}

// DefaultConfig returns the extraction parameters used in production.
func DefaultConfig() Config {
	return Config{
		ExifWeight:       0.35,
		NoiseWeight:      0.20,
		ArtifactWeight:   0.25,
		ELAWeight:        0.20,
		NoiseFloor:       0.05,
		NoiseBandLow:     0.10,
		NoiseBandHigh:    0.40,
		NoiseCeiling:     0.50,
		ELAQuality:       90,
		ELADivisor:       10,
		MaxAnalysisWidth: 1024,
		MaxDetailSpan:    1024,
	}
}

// New creates a new Extractor with default configuration.
func New() *Extractor {
	return &Extractor{config: DefaultConfig()}
}

// NewWithConfig creates a new Extractor with custom configuration.
func NewWithConfig(config Config) *Extractor {
	return &Extractor{config: config}
}

// Technical folds the individual scores into the technical aggregate.
// A high ELA score counts against authenticity, so it enters inverted.
func (e *Extractor) Technical(s types.FeatureScores) float64 {
	t := e.config.ExifWeight*s.Exif +
		e.config.NoiseWeight*s.Noise +
		e.config.ArtifactWeight*s.Artifact +
		e.config.ELAWeight*(1-s.ELA)
	return clamp(t, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
