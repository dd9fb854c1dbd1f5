package repository

import (
	"context"

	"transcript-miner/internal/domain/model"
)

// ClaimRepository persists the accepted claim set. SaveClaimSet must be
// all-or-nothing: a claim is never stored without its evidence spans, and
// relations are stored only alongside the claims they reference.
type ClaimRepository interface {
	SaveClaimSet(ctx context.Context, runID string, claims []model.Claim, relations []model.Relation) error
	FindByRun(ctx context.Context, tx Tx, runID string) ([]model.Claim, error)
	FindRelationsByRun(ctx context.Context, tx Tx, runID string) ([]model.Relation, error)
}
