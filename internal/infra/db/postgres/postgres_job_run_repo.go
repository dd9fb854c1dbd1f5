package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"transcript-miner/internal/domain"
	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/domain/ports/repository"
)

var _ repository.JobRunRepository = (*jobRunRepo)(nil)

type jobRunRepo struct {
	pool *pgxpool.Pool
}

func NewJobRunRepo(pool *pgxpool.Pool) *jobRunRepo {
	return &jobRunRepo{pool: pool}
}

func (r *jobRunRepo) Create(ctx context.Context, tx repository.Tx, run *model.JobRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	now := time.Now()
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	run.UpdatedAt = now

	cp, err := marshalCheckpoint(run.Checkpoint)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO job_runs (id, job_id, status, checkpoint, last_error, started_at, completed_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	_, err = execSQL(ctx, r.pool, tx, q,
		run.ID, run.JobID, string(run.Status), cp, run.LastError,
		run.StartedAt, nullTime(run.CompletedAt), run.UpdatedAt)
	return err
}

func (r *jobRunRepo) FindLatestByJob(ctx context.Context, tx repository.Tx, jobID string) (*model.JobRun, error) {
	const q = `
SELECT id, job_id, status, checkpoint, last_error, started_at, completed_at, updated_at
FROM job_runs
WHERE job_id = $1
ORDER BY started_at DESC
LIMIT 1;`

	row, err := pickRow(ctx, r.pool, tx, q, jobID)
	if err != nil {
		return nil, err
	}
	return scanRun(row)
}

// SaveOptimistic is the compare-and-swap write: the row only moves forward
// when updated_at still matches what the caller read. The checkpoint rides
// in the same UPDATE, so run state and checkpoint are atomic together.
func (r *jobRunRepo) SaveOptimistic(ctx context.Context, tx repository.Tx, run *model.JobRun) error {
	cp, err := marshalCheckpoint(run.Checkpoint)
	if err != nil {
		return err
	}
	newVersion := time.Now()
	if !newVersion.After(run.UpdatedAt) {
		newVersion = run.UpdatedAt.Add(time.Microsecond)
	}

	const q = `
UPDATE job_runs SET
  status = $2,
  checkpoint = $3,
  last_error = $4,
  completed_at = $5,
  updated_at = $6
WHERE id = $1 AND updated_at = $7;`

	tag, err := execSQL(ctx, r.pool, tx, q,
		run.ID, string(run.Status), cp, run.LastError,
		nullTime(run.CompletedAt), newVersion, run.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}
	run.UpdatedAt = newVersion
	return nil
}

func scanRun(row pgx.Row) (*model.JobRun, error) {
	var run model.JobRun
	var statusStr string
	var cp []byte
	var completedAt sql.NullTime
	err := row.Scan(&run.ID, &run.JobID, &statusStr, &cp, &run.LastError,
		&run.StartedAt, &completedAt, &run.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	run.Status = model.JobRunStatus(statusStr)
	if completedAt.Valid {
		run.CompletedAt = completedAt.Time
	}
	if len(cp) > 0 {
		var checkpoint model.Checkpoint
		if err := json.Unmarshal(cp, &checkpoint); err != nil {
			return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
		}
		run.Checkpoint = &checkpoint
	}
	return &run, nil
}

func marshalCheckpoint(cp *model.Checkpoint) ([]byte, error) {
	if cp == nil {
		return nil, nil
	}
	b, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("marshal checkpoint: %w", err)
	}
	return b, nil
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
