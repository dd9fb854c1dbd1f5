package repository

import (
	"context"

	"transcript-miner/internal/domain/model"
)

type JobRepository interface {
	Save(ctx context.Context, tx Tx, job *model.Job) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Job, error)
}

// JobRunRepository persists run state. SaveOptimistic carries the
// updated_at value the caller last read; the save fails with
// ErrConcurrentModification when the stored row has moved on, which is how
// two processes racing on the same job are detected.
type JobRunRepository interface {
	Create(ctx context.Context, tx Tx, run *model.JobRun) error
	FindLatestByJob(ctx context.Context, tx Tx, jobID string) (*model.JobRun, error)

	// SaveOptimistic updates the run row (status, checkpoint, last_error,
	// timestamps) only if the stored updated_at still equals run.UpdatedAt,
	// and advances run.UpdatedAt on success. The checkpoint is written in
	// the same statement as the run row, so both succeed or neither does.
	SaveOptimistic(ctx context.Context, tx Tx, run *model.JobRun) error
}
