package oracle

import (
	"context"

	"github.com/menta2k/image-verdict/pkg/types"
)

// Payload is the prepared image handed to classifier backends. Data is
// already encoded and sized under the transport budget.
type Payload struct {
	Data     []byte
	MIMEType string
}

// VisionClassifier produces an authenticity opinion from image pixels.
// Implementations return an error on transport or model failure; callers
// substitute a technical fallback and never surface the error.
type VisionClassifier interface {
	Classify(ctx context.Context, payload Payload) (*types.OracleVerdict, error)
}

// GenAIDetector is a dedicated generated-image detector. Its opinion is
// optional: callers treat a failure as "no opinion", not as an error.
type GenAIDetector interface {
	Detect(ctx context.Context, payload Payload) (*types.GenAIVerdict, error)
}
