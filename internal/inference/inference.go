package inference

import (
	"context"

	"matchvision/sports-video-app/internal/domain"
)

// Result is what an inference run produces: an overall confidence and an
// analysis-type-specific payload.
type Result struct {
	ConfidenceScore float64
	Payload         map[string]any
}

// Engine is the inference collaborator: an opaque, potentially slow,
// potentially failing capability that runs one analysis over the stored
// video bytes. The orchestrator bounds calls with a context deadline and
// never retries automatically.
type Engine interface {
	Infer(ctx context.Context, objectKey string, analysisType domain.AnalysisType, parameters map[string]any) (*Result, error)
}
