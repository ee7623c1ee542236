// Package detectors adapts provider clients to the moderation engine. Provider response shapes
// are parsed here and nowhere else.
package detectors

import (
	"context"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
)

// ObjectDetector is the primary structural detector. Its failure fails the job.
type ObjectDetector interface {
	Analyze(ctx context.Context, uri string) (moderation.ObjectAnalysis, error)
}

// NarrativeAnalyzer is optional; failures are dropped by the engine.
type NarrativeAnalyzer interface {
	Analyze(ctx context.Context, uri string) (moderation.NarrativeAnalysis, error)
}

// TextModerator is optional; failures surface as text level error.
type TextModerator interface {
	Analyze(ctx context.Context, uri string) (moderation.TextAnalysis, error)
}
