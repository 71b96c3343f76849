package oracle

import (
	"math"

	"github.com/menta2k/image-verdict/pkg/types"
)

// FallbackVerdict synthesizes a classifier opinion from the technical
// score after an oracle failure. The further the score sits from the
// undecided middle, the more confident the substitute verdict.
func FallbackVerdict(technicalScore float64) *types.OracleVerdict {
	var label types.Label
	switch {
	case technicalScore > 0.6:
		label = types.LabelOriginal
	case technicalScore < 0.4:
		label = types.LabelAIGenerated
	default:
		label = types.LabelAIModified
	}
	return &types.OracleVerdict{
		Label:       label,
		Confidence:  ClampConfidence(int(math.Round(math.Abs(technicalScore-0.5) * 200))),
		ContentType: types.ContentUnknown,
		Reasoning:   "substituted from technical analysis after classifier failure",
		Fallback:    true,
	}
}
