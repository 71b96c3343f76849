package types

import "time"

// Label is the authenticity class assigned to an image.
type Label string

const (
	LabelOriginal    Label = "original"
	LabelAIGenerated Label = "ai_generated"
	LabelAIModified  Label = "ai_modified"
	LabelUncertain   Label = "uncertain"
)

// ContentType describes the kind of picture a classifier saw.
type ContentType string

const (
	ContentPhoto        ContentType = "photo"
	ContentIllustration ContentType = "illustration"
	ContentRender       ContentType = "render"
	ContentScreenshot   ContentType = "screenshot"
	ContentUnknown      ContentType = "unknown"
)

// Format identifies the container format of the input bytes.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatHEIC    Format = "heic"
	FormatUnknown Format = "unknown"
)

// ImageStats describes the decoded input image.
type ImageStats struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    Format `json:"format"`
	Channels  int    `json:"channels"`
	HasAlpha  bool   `json:"hasAlpha"`
	SizeBytes int    `json:"sizeBytes"`
}

// ExifSignals is the camera metadata evidence read from the image container.
// Zero values mean the corresponding tag was absent.
type ExifSignals struct {
	HasExif      bool      `json:"hasExif"`
	CameraMake   string    `json:"cameraMake,omitempty"`
	CameraModel  string    `json:"cameraModel,omitempty"`
	Software     string    `json:"software,omitempty"`
	HasDateTime  bool      `json:"hasDateTime"`
	DateTime     time.Time `json:"dateTime"`
	HasGPS       bool      `json:"hasGPS"`
	GPSLatitude  float64   `json:"gpsLatitude,omitempty"`
	GPSLongitude float64   `json:"gpsLongitude,omitempty"`
	ISO          int       `json:"iso,omitempty"`
	Aperture     float64   `json:"aperture,omitempty"`
	ShutterSpeed float64   `json:"shutterSpeed,omitempty"`
	FocalLength  float64   `json:"focalLength,omitempty"`
}

// ArtifactSignals flags pixel-level traits commonly left behind by
// generative models and heavy-handed editing.
type ArtifactSignals struct {
	Compression          bool `json:"compression"`
	Blur                 bool `json:"blur"`
	ColorAdjustment      bool `json:"colorAdjustment"`
	NoisePatterns        bool `json:"noisePatterns"`
	InconsistentLighting bool `json:"inconsistentLighting"`
	EdgeArtifacts        bool `json:"edgeArtifacts"`
	UnnaturalSmoothing   bool `json:"unnaturalSmoothing"`
	RepetitivePatterns   bool `json:"repetitivePatterns"`
}

// SuspiciousWeight sums the raised flags by how strongly each implicates
// generative tooling. Smoothing and repetition dominate; blur counts only
// when compression cannot explain it.
func (a ArtifactSignals) SuspiciousWeight() float64 {
	w := 0.0
	if a.UnnaturalSmoothing {
		w += 2
	}
	if a.RepetitivePatterns {
		w += 2
	}
	if a.NoisePatterns {
		w += 1
	}
	if a.Blur && !a.Compression {
		w += 1
	}
	if a.ColorAdjustment {
		w += 0.5
	}
	return w
}

// FeatureScores holds the normalized forensic scores, each in [0,1].
// ELA is zero for any input that is not a JPEG.
type FeatureScores struct {
	Exif      float64 `json:"exif"`
	Noise     float64 `json:"noise"`
	Artifact  float64 `json:"artifact"`
	ELA       float64 `json:"ela"`
	Technical float64 `json:"technical"`
}

// OracleVerdict is a vision classifier's opinion about an image. Fallback
// marks verdicts synthesized locally after a classifier failure.
type OracleVerdict struct {
	Label         Label       `json:"label"`
	Confidence    int         `json:"confidence"`
	ContentType   ContentType `json:"contentType"`
	NonAIEvidence bool        `json:"nonAiEvidence"`
	Reasoning     string      `json:"reasoning,omitempty"`
	Artifacts     []string    `json:"artifacts,omitempty"`
	Fallback      bool        `json:"fallback,omitempty"`
}

// GenAIVerdict is a dedicated generation detector's opinion. A nil
// *GenAIVerdict means the detector was unavailable or unconfigured.
type GenAIVerdict struct {
	IsGenerated bool `json:"isGenerated"`
	Confidence  int  `json:"confidence"`
}

// RuleTrace records one fusion rule application for auditability.
type RuleTrace struct {
	Rule           string `json:"rule"`
	FromLabel      Label  `json:"fromLabel"`
	FromConfidence int    `json:"fromConfidence"`
	ToLabel        Label  `json:"toLabel"`
	ToConfidence   int    `json:"toConfidence"`
}

// Verdict is the final authenticity decision for one image together with
// the evidence that produced it.
type Verdict struct {
	ID         string          `json:"id"`
	Label      Label           `json:"label"`
	Confidence int             `json:"confidence"`
	Scores     FeatureScores   `json:"scores"`
	Exif       ExifSignals     `json:"exif"`
	Artifacts  ArtifactSignals `json:"artifacts"`
	Vision     *OracleVerdict  `json:"vision,omitempty"`
	Detector   *GenAIVerdict   `json:"detector,omitempty"`
	Stats      ImageStats      `json:"stats"`
	Trace      []RuleTrace     `json:"trace,omitempty"`
	ElapsedMS  int64           `json:"elapsedMs"`
	AnalyzedAt time.Time       `json:"analyzedAt"`
}
