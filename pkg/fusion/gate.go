package fusion

import "github.com/menta2k/image-verdict/pkg/types"

// Gate applies the conservative veto to a fused state. Definitive labels
// survive only when their corroboration predicate holds; everything else
// degrades to an uncertain verdict with bounded confidence. Gate is pure:
// the same evidence and fused state always produce the same verdict.
func (e *Engine) Gate(ev Evidence, fused State) State {
	if s, ok := e.gateGenerated(ev, fused); ok {
		return s
	}
	if s, ok := e.gateModified(ev, fused); ok {
		return s
	}
	if s, ok := e.gateOriginal(ev, fused); ok {
		return s
	}
	return State{
		Label:      types.LabelUncertain,
		Confidence: clampInt(fused.Confidence, e.config.GateUncertainFloor, e.config.GateUncertainCeil),
	}
}

// gateGenerated passes when either the dedicated detector or the fused
// pipeline call the image generated with high confidence. A confident
// detector suffices on its own, even against a disagreeing classifier.
func (e *Engine) gateGenerated(ev Evidence, fused State) (State, bool) {
	cfg := e.config
	if ev.Detector != nil && ev.Detector.IsGenerated && ev.Detector.Confidence >= cfg.GateGeneratedMin {
		return State{
			Label:      types.LabelAIGenerated,
			Confidence: maxInt(fused.Confidence, ev.Detector.Confidence),
		}, true
	}
	if fused.Label == types.LabelAIGenerated && fused.Confidence >= cfg.GateGeneratedMin {
		return fused, true
	}
	return fused, false
}

// gateModified passes only when the fused verdict is backed by physical
// tamper evidence: a high JPEG error level, or enough suspicious artifact
// weight given the technical score.
func (e *Engine) gateModified(ev Evidence, fused State) (State, bool) {
	cfg := e.config
	if fused.Label != types.LabelAIModified || fused.Confidence < cfg.GateModifiedMin {
		return fused, false
	}

	weight := ev.Artifacts.SuspiciousWeight()
	strongEvidence := (ev.Format == types.FormatJPEG && ev.Scores.ELA >= cfg.GateModifiedELAMin) ||
		weight >= cfg.GateStrongWeight ||
		(weight >= cfg.GateWeakWeight && ev.Scores.Technical <= cfg.GateWeakTechMax)
	if !strongEvidence {
		return fused, false
	}
	return fused, true
}

// gateOriginal is the strictest predicate: an original verdict needs a
// clean artifact profile, a strong technical score, provenance from EXIF
// or a confident detector exoneration, and a content type a camera could
// plausibly have produced.
func (e *Engine) gateOriginal(ev Evidence, fused State) (State, bool) {
	cfg := e.config
	if fused.Label != types.LabelOriginal || fused.Confidence < cfg.GateOriginalMin {
		return fused, false
	}

	if ev.Artifacts.UnnaturalSmoothing || ev.Artifacts.RepetitivePatterns ||
		ev.Artifacts.SuspiciousWeight() >= cfg.GateStrongWeight {
		return fused, false
	}

	if ev.Scores.Technical < cfg.GateOriginalTechMin ||
		ev.Scores.Noise < cfg.GateOriginalNoiseMin ||
		ev.Scores.Artifact < cfg.GateOriginalArtifactMin {
		return fused, false
	}

	exonerated := ev.Detector != nil && !ev.Detector.IsGenerated &&
		ev.Detector.Confidence >= cfg.DetectorNotGeneratedMin
	if !ev.Exif.HasExif && !exonerated {
		return fused, false
	}

	cameraPlausible := ev.Vision.ContentType == types.ContentPhoto ||
		ev.Vision.ContentType == types.ContentUnknown
	witnessed := ev.Vision.NonAIEvidence && fused.Confidence >= cfg.GateOriginalMin
	if !cameraPlausible && !witnessed {
		return fused, false
	}

	return fused, true
}
