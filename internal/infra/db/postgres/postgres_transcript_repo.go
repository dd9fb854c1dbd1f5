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

var _ repository.TranscriptRepository = (*transcriptRepo)(nil)

type transcriptRepo struct {
	pool *pgxpool.Pool
}

func NewTranscriptRepo(pool *pgxpool.Pool) *transcriptRepo {
	return &transcriptRepo{pool: pool}
}

func (r *transcriptRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transcript) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	segs, err := json.Marshal(t.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}

	const q = `
INSERT INTO transcripts (id, title, segments, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  segments = EXCLUDED.segments;`

	_, err = execSQL(ctx, r.pool, tx, q, t.ID, t.Title, segs, time.Now())
	return err
}

func (r *transcriptRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transcript, error) {
	const q = `SELECT id, title, segments FROM transcripts WHERE id = $1;`

	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	var t model.Transcript
	var segs []byte
	if err := row.Scan(&t.ID, &t.Title, &segs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if err := json.Unmarshal(segs, &t.Segments); err != nil {
		return nil, fmt.Errorf("unmarshal segments: %w", err)
	}
	return &t, nil
}
