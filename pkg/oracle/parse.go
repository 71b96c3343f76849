package oracle

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/menta2k/image-verdict/pkg/types"
)

// verdictPayload mirrors the wire JSON with loose types so that models
// returning floats or stray casing still parse.
type verdictPayload struct {
	Label         string   `json:"label"`
	Confidence    float64  `json:"confidence"`
	ContentType   string   `json:"contentType"`
	NonAIEvidence bool     `json:"nonAiEvidence"`
	Reasoning     string   `json:"reasoning"`
	Artifacts     []string `json:"artifacts"`
}

// ParseVerdict extracts an OracleVerdict from a raw model response. The
// response is sanitized first; values outside the closed enums or the
// confidence range are coerced. A response with no usable JSON is an
// error, which callers convert into the technical fallback.
func ParseVerdict(raw string) (*types.OracleVerdict, error) {
	raw = SanitizeModelJSON(raw)
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return nil, fmt.Errorf("model returned non-JSON response")
	}

	var wire verdictPayload
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		// Try conservative brace-slice approach
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no valid JSON found in response")
		}
		if err2 := json.Unmarshal([]byte(raw[start:end+1]), &wire); err2 != nil {
			return nil, fmt.Errorf("failed to parse model response: %w", err2)
		}
	}

	if strings.TrimSpace(wire.Label) == "" {
		return nil, fmt.Errorf("model response carries no label")
	}

	return &types.OracleVerdict{
		Label:         normalizeLabel(wire.Label),
		Confidence:    ClampConfidence(int(math.Round(wire.Confidence))),
		ContentType:   normalizeContentType(wire.ContentType),
		NonAIEvidence: wire.NonAIEvidence,
		Reasoning:     strings.TrimSpace(wire.Reasoning),
		Artifacts:     normalizeArtifacts(wire.Artifacts),
	}, nil
}

// ClampConfidence bounds a confidence value to [0,100].
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// normalizeLabel coerces free-form model labels onto the closed set.
// Unrecognized labels land on ai_modified, the middle ground.
func normalizeLabel(raw string) types.Label {
	low := strings.ToLower(strings.TrimSpace(raw))
	switch types.Label(low) {
	case types.LabelOriginal, types.LabelAIGenerated, types.LabelAIModified:
		return types.Label(low)
	}
	switch {
	case strings.Contains(low, "original"), strings.Contains(low, "real"), strings.Contains(low, "authentic"):
		return types.LabelOriginal
	case strings.Contains(low, "generat"), strings.Contains(low, "synthetic"):
		return types.LabelAIGenerated
	}
	return types.LabelAIModified
}

func normalizeContentType(raw string) types.ContentType {
	low := strings.ToLower(strings.TrimSpace(raw))
	switch types.ContentType(low) {
	case types.ContentPhoto, types.ContentIllustration, types.ContentRender, types.ContentScreenshot:
		return types.ContentType(low)
	}
	return types.ContentUnknown
}

// normalizeArtifacts cleans and dedupes the named artifacts, capped at 8.
func normalizeArtifacts(artifacts []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
		if len(out) == 8 {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SanitizeModelJSON removes code fences, comments, and trailing commas
// from a model response.
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	// Remove /* ... */ block comments
	reBlock := regexp.MustCompile(`(?s)/\*.*?\*/`)
	raw = reBlock.ReplaceAllString(raw, "")

	// Remove // line/inline comments
	reLine := regexp.MustCompile(`(?m)^\s*//.*$`)
	raw = reLine.ReplaceAllString(raw, "")
	reInline := regexp.MustCompile(`(?m)//.*$`)
	raw = reInline.ReplaceAllString(raw, "")

	// Remove trailing commas before } or ]
	reTrailing := regexp.MustCompile(`,(\s*[}\]])`)
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
