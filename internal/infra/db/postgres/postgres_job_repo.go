package postgres

import (
	"context"
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

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
}

func (r *jobRepo) Save(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	cfg, err := json.Marshal(job.Config)
	if err != nil {
		return fmt.Errorf("marshal job config: %w", err)
	}

	const q = `
INSERT INTO jobs (id, job_type, input_id, config, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING;`

	_, err = execSQL(ctx, r.pool, tx, q, job.ID, string(job.Type), job.InputID, cfg, job.CreatedAt)
	return err
}

func (r *jobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	const q = `
SELECT id, job_type, input_id, config, created_at
FROM jobs WHERE id = $1;`

	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	var job model.Job
	var typeStr string
	var cfg []byte
	if err := row.Scan(&job.ID, &typeStr, &job.InputID, &cfg, &job.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	job.Type = model.JobType(typeStr)
	if err := json.Unmarshal(cfg, &job.Config); err != nil {
		return nil, fmt.Errorf("unmarshal job config: %w", err)
	}
	return &job, nil
}
