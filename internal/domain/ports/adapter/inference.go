package adapter

import (
	"context"

	"transcript-miner/internal/domain/model"
)

// InferenceClient is the stage-aware surface the extraction pipeline
// consumes. Implementations enforce the concurrency semaphore, the
// requests-per-minute ceiling, retry with backoff, and the session cost
// ceiling, and write an audit record for every attempt.
type InferenceClient interface {
	// Call runs one structured completion. Failures are classified with
	// the domain taxonomy: ErrTransient after retries are exhausted,
	// ErrFatal for auth/config problems, ErrBudgetExceeded when the
	// session ceiling blocks the call pre-flight.
	Call(ctx context.Context, runID string, stage model.Stage, modelName string, messages []Message) (string, Usage, error)

	// CountTokens estimates prompt tokens without issuing a completion.
	CountTokens(ctx context.Context, modelName string, messages []Message) (int, error)

	// SpentMicro reports cumulative session spend in micro-dollars.
	SpentMicro() int64
}
