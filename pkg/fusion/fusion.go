// Package fusion combines the forensic feature scores, EXIF evidence,
// and oracle verdicts into a single authenticity decision. An ordered
// list of pure transition rules adjusts the vision verdict first, then a
// conservative gate vetoes any label that lacks corroborating evidence.
package fusion

import (
	"math"

	"github.com/menta2k/image-verdict/pkg/types"
)

// Evidence carries every signal the rules and the gate may consult.
// Vision must be non-nil; callers substitute a fallback verdict when the
// classifier fails. Detector may be nil when no detector is configured.
type Evidence struct {
	Scores    types.FeatureScores
	Exif      types.ExifSignals
	Artifacts types.ArtifactSignals
	Format    types.Format
	Vision    *types.OracleVerdict
	Detector  *types.GenAIVerdict
}

// State is the (label, confidence) pair the rules fold over.
type State struct {
	Label      types.Label
	Confidence int
}

// Rule is one pure transition in the fusion pipeline. Apply returns the
// next state and whether the rule's trigger condition held. Rules never
// mutate Evidence.
type Rule struct {
	Name  string
	Apply func(cfg Config, ev Evidence, s State) (State, bool)
}

// Config holds the fusion and gate thresholds.
type Config struct {
	// ELAOverrideMin is the error-level score above which a JPEG judged
	// original is relabeled as modified.
	ELAOverrideMin float64

	// ExifCorroborationMin is the EXIF score at which camera metadata
	// starts backing an original verdict.
	ExifCorroborationMin float64
	// ExifOriginalBonus is added to an original verdict backed by EXIF.
	ExifOriginalBonus int
	// ExifRescueMaxConf bounds the modified-verdict confidence below
	// which strong EXIF flips the label back to original.
	ExifRescueMaxConf int

	// PNGOverrideMinConf is the modified-verdict confidence a PNG without
	// EXIF must reach before the technical override is considered.
	PNGOverrideMinConf int
	// PNGOverrideTechMin, PNGOverrideArtifactMin and PNGOverrideELAMax
	// describe the clean technical profile that rescues such a PNG.
	PNGOverrideTechMin     float64
	PNGOverrideArtifactMin float64
	PNGOverrideELAMax      float64
	// PNGOverrideFloor is the minimum confidence of a rescued PNG.
	PNGOverrideFloor int

	// NoExifGeneratedBonus is added to a generated verdict on images
	// that carry no camera metadata.
	NoExifGeneratedBonus int

	// DetectorFlipMin is the generated-detector confidence above which an
	// original verdict is flipped to ai_generated outright.
	DetectorFlipMin int
	// DetectorOriginalPenalty is subtracted from an original verdict the
	// detector contradicts without clearing DetectorFlipMin.
	DetectorOriginalPenalty int
	// DetectorSupportBonus is added when the detector agrees the image
	// is not original.
	DetectorSupportBonus int
	// DetectorNotGeneratedMin is the confidence at which a not-generated
	// detector reading counts as a confident exoneration.
	DetectorNotGeneratedMin int
	// DetectorContradictPenalty is subtracted from a non-original verdict
	// the detector confidently contradicts.
	DetectorContradictPenalty int
	// DetectorAgreeBonus is added to an original verdict the detector
	// confidently confirms.
	DetectorAgreeBonus int

	// MaxConfidence caps every additive confidence adjustment.
	MaxConfidence int

	// GateGeneratedMin is the fused or detector confidence required for a
	// definitive ai_generated verdict.
	GateGeneratedMin int
	// GateModifiedMin is the fused confidence required for a definitive
	// ai_modified verdict.
	GateModifiedMin int
	// GateModifiedELAMin is the error-level score that counts as strong
	// tamper evidence for a JPEG.
	GateModifiedELAMin float64
	// GateStrongWeight is the artifact weight that counts as strong
	// evidence on its own; GateWeakWeight suffices when the technical
	// score is at most GateWeakTechMax.
	GateStrongWeight float64
	GateWeakWeight   float64
	GateWeakTechMax  float64
	// GateOriginalMin is the fused confidence required for a definitive
	// original verdict; the technical profile must also clear
	// GateOriginalTechMin, GateOriginalNoiseMin and GateOriginalArtifactMin.
	GateOriginalMin         int
	GateOriginalTechMin     float64
	GateOriginalNoiseMin    float64
	GateOriginalArtifactMin float64
	// GateUncertainFloor and GateUncertainCeil bound the confidence of an
	// uncertain verdict.
	GateUncertainFloor int
	GateUncertainCeil  int
}

// DefaultConfig returns the stock fusion thresholds.
func DefaultConfig() Config {
	return Config{
		ELAOverrideMin:       0.6,
		ExifCorroborationMin: 0.5,
		ExifOriginalBonus:    10,
		ExifRescueMaxConf:    70,

		PNGOverrideMinConf:     85,
		PNGOverrideTechMin:     0.67,
		PNGOverrideArtifactMin: 0.75,
		PNGOverrideELAMax:      0.55,
		PNGOverrideFloor:       60,

		NoExifGeneratedBonus: 5,

		DetectorFlipMin:           80,
		DetectorOriginalPenalty:   30,
		DetectorSupportBonus:      15,
		DetectorNotGeneratedMin:   90,
		DetectorContradictPenalty: 20,
		DetectorAgreeBonus:        10,

		MaxConfidence: 99,

		GateGeneratedMin:        90,
		GateModifiedMin:         90,
		GateModifiedELAMin:      0.75,
		GateStrongWeight:        2,
		GateWeakWeight:          1,
		GateWeakTechMax:         0.55,
		GateOriginalMin:         85,
		GateOriginalTechMin:     0.82,
		GateOriginalNoiseMin:    0.70,
		GateOriginalArtifactMin: 0.80,
		GateUncertainFloor:      50,
		GateUncertainCeil:       69,
	}
}

// Engine applies the rule pipeline and the conservative gate.
type Engine struct {
	config Config
	rules  []Rule
}

// New creates a fusion engine with default thresholds.
func New() *Engine {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a fusion engine with custom thresholds.
func NewWithConfig(config Config) *Engine {
	return &Engine{
		config: config,
		rules: []Rule{
			{Name: "ela-override", Apply: ruleELAOverride},
			{Name: "exif-corroboration", Apply: ruleExifCorroboration},
			{Name: "no-exif-png-override", Apply: rulePNGOverride},
			{Name: "no-exif-generated-boost", Apply: ruleNoExifGeneratedBoost},
			{Name: "detector-alignment", Apply: ruleDetectorAlignment},
		},
	}
}

// Fuse folds the rule pipeline over the vision verdict and returns the
// fused state plus a trace of every rule that changed it.
func (e *Engine) Fuse(ev Evidence) (State, []types.RuleTrace) {
	state := State{
		Label:      ev.Vision.Label,
		Confidence: ev.Vision.Confidence,
	}

	var trace []types.RuleTrace
	for _, rule := range e.rules {
		next, applied := rule.Apply(e.config, ev, state)
		if !applied || next == state {
			continue
		}
		trace = append(trace, types.RuleTrace{
			Rule:           rule.Name,
			FromLabel:      state.Label,
			FromConfidence: state.Confidence,
			ToLabel:        next.Label,
			ToConfidence:   next.Confidence,
		})
		state = next
	}
	return state, trace
}

// ruleELAOverride relabels a JPEG judged original when the resave error
// level says otherwise. Error levels this high mean localized edits.
func ruleELAOverride(cfg Config, ev Evidence, s State) (State, bool) {
	if ev.Format != types.FormatJPEG || s.Label != types.LabelOriginal {
		return s, false
	}
	if ev.Scores.ELA <= cfg.ELAOverrideMin {
		return s, false
	}
	return State{
		Label:      types.LabelAIModified,
		Confidence: int(math.Round(ev.Scores.ELA * 100)),
	}, true
}

// ruleExifCorroboration lets rich camera metadata back up an original
// verdict, or rescue a weak modified verdict.
func ruleExifCorroboration(cfg Config, ev Evidence, s State) (State, bool) {
	if ev.Scores.Exif < cfg.ExifCorroborationMin || ev.Exif.CameraMake == "" {
		return s, false
	}
	switch {
	case s.Label == types.LabelOriginal:
		return State{
			Label:      s.Label,
			Confidence: minInt(s.Confidence+cfg.ExifOriginalBonus, cfg.MaxConfidence),
		}, true
	case s.Label == types.LabelAIModified && s.Confidence < cfg.ExifRescueMaxConf:
		return State{
			Label:      types.LabelOriginal,
			Confidence: int(math.Round(ev.Scores.Exif * 100)),
		}, true
	}
	return s, false
}

// rulePNGOverride rescues a PNG judged modified with high confidence when
// every pixel-level signal disagrees. Classifiers routinely read missing
// EXIF on PNGs as evidence of tampering.
func rulePNGOverride(cfg Config, ev Evidence, s State) (State, bool) {
	if s.Label != types.LabelAIModified || s.Confidence < cfg.PNGOverrideMinConf {
		return s, false
	}
	if ev.Exif.HasExif || ev.Format != types.FormatPNG {
		return s, false
	}

	cleanProfile := ev.Scores.Technical >= cfg.PNGOverrideTechMin &&
		ev.Scores.Artifact >= cfg.PNGOverrideArtifactMin &&
		ev.Scores.ELA < cfg.PNGOverrideELAMax
	exonerated := ev.Detector != nil && !ev.Detector.IsGenerated &&
		ev.Detector.Confidence >= cfg.DetectorNotGeneratedMin
	if !cleanProfile && !exonerated {
		return s, false
	}

	return State{
		Label:      types.LabelOriginal,
		Confidence: clampInt(int(math.Round(ev.Scores.Technical*100)), cfg.PNGOverrideFloor, cfg.MaxConfidence),
	}, true
}

// ruleNoExifGeneratedBoost nudges a generated verdict up when the image
// carries no camera metadata at all.
func ruleNoExifGeneratedBoost(cfg Config, ev Evidence, s State) (State, bool) {
	if ev.Exif.HasExif || s.Label != types.LabelAIGenerated {
		return s, false
	}
	return State{
		Label:      s.Label,
		Confidence: minInt(s.Confidence+cfg.NoExifGeneratedBonus, cfg.MaxConfidence),
	}, true
}

// ruleDetectorAlignment reconciles the fused state with the dedicated
// generation detector: a confident detector can flip an original verdict
// outright, otherwise it shifts confidence toward its own reading.
func ruleDetectorAlignment(cfg Config, ev Evidence, s State) (State, bool) {
	if ev.Detector == nil {
		return s, false
	}
	det := ev.Detector

	if det.IsGenerated {
		switch {
		case s.Label == types.LabelOriginal && det.Confidence > cfg.DetectorFlipMin:
			return State{Label: types.LabelAIGenerated, Confidence: det.Confidence}, true
		case s.Label == types.LabelOriginal:
			return State{
				Label:      s.Label,
				Confidence: maxInt(s.Confidence-cfg.DetectorOriginalPenalty, 0),
			}, true
		default:
			return State{
				Label:      s.Label,
				Confidence: minInt(s.Confidence+cfg.DetectorSupportBonus, cfg.MaxConfidence),
			}, true
		}
	}

	if det.Confidence > cfg.DetectorNotGeneratedMin {
		if s.Label != types.LabelOriginal {
			return State{
				Label:      s.Label,
				Confidence: maxInt(s.Confidence-cfg.DetectorContradictPenalty, 0),
			}, true
		}
		return State{
			Label:      s.Label,
			Confidence: minInt(s.Confidence+cfg.DetectorAgreeBonus, cfg.MaxConfidence),
		}, true
	}
	return s, false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
