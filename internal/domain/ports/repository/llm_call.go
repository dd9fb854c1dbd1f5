package repository

import (
	"context"

	"transcript-miner/internal/domain/model"
)

// LLMCallRepository records every inference attempt for auditing and
// session-level budget enforcement.
type LLMCallRepository interface {
	Record(ctx context.Context, call *model.LLMCall) error
	SumCostByRun(ctx context.Context, runID string) (int64, error)
	SumTokensByRun(ctx context.Context, runID string) (prompt, completion int, err error)
}
