package repository

import (
	"context"

	"transcript-miner/internal/domain/model"
)

// TranscriptRepository hands the engine its input: transcripts already
// segmented and timestamped by the upstream speech-to-text layer.
type TranscriptRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Transcript) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Transcript, error)
}
