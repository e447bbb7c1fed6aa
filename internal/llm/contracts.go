package llm

import "context"

// Options are the generation parameters for one completion call. They are
// fixed per call to maximize determinism of parsing, not creativity.
type Options struct {
	Temperature     float32
	TopP            float32
	TopK            int
	MaxOutputTokens int
}

// CompletionClient is a single outbound inference call to a remote
// text-completion endpoint. It knows nothing about jobs or documents.
// Failures are transport failures; callers decide whether to retry.
type CompletionClient interface {
	Complete(ctx context.Context, model, prompt string, opts Options) (string, error)
}

// Inferrer is the interface the orchestrator depends on for field inference.
type Inferrer interface {
	// Infer turns document text into a raw JSON payload. It never fails:
	// on total candidate exhaustion it returns a synthetic placeholder.
	Infer(ctx context.Context, documentText string) []byte
}
