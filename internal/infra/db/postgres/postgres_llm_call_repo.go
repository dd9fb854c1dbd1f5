package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/domain/ports/repository"
)

var _ repository.LLMCallRepository = (*llmCallRepo)(nil)

type llmCallRepo struct {
	pool *pgxpool.Pool
}

func NewLLMCallRepo(pool *pgxpool.Pool) *llmCallRepo {
	return &llmCallRepo{pool: pool}
}

func (r *llmCallRepo) Record(ctx context.Context, call *model.LLMCall) error {
	const q = `
INSERT INTO llm_calls (id, run_id, stage, model, prompt_tokens, completion_tokens, cost_micro, duration_ms, attempt, status, error_kind, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`

	_, err := r.pool.Exec(ctx, q,
		call.ID, call.RunID, string(call.Stage), call.Model,
		call.PromptTokens, call.CompletionTokens, call.CostMicro,
		call.Duration.Milliseconds(), call.Attempt, call.Status, call.ErrorKind, call.CreatedAt)
	return err
}

func (r *llmCallRepo) SumCostByRun(ctx context.Context, runID string) (int64, error) {
	const q = `SELECT COALESCE(SUM(cost_micro), 0) FROM llm_calls WHERE run_id = $1;`

	var sum int64
	if err := r.pool.QueryRow(ctx, q, runID).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *llmCallRepo) SumTokensByRun(ctx context.Context, runID string) (int, int, error) {
	const q = `
SELECT COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0)
FROM llm_calls WHERE run_id = $1;`

	var prompt, completion int
	if err := r.pool.QueryRow(ctx, q, runID).Scan(&prompt, &completion); err != nil {
		return 0, 0, err
	}
	return prompt, completion, nil
}
