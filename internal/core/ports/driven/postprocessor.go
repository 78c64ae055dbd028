package driven

import "context"

// PostProcessor is one stage that turns document text into chunk texts.
// The first stage receives nil chunks and creates them; later stages
// rewrite the chunks they are given.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, text string, chunks []string) ([]string, error)
}

// PostProcessorPipeline runs the configured stages in order.
type PostProcessorPipeline interface {
	Process(ctx context.Context, text string) ([]string, error)
}
