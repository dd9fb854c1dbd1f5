package pipeline

import (
	"context"
	"fmt"

	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/domain/ports/adapter"
	"transcript-miner/internal/infra/metrics"
	"transcript-miner/internal/pipeline/schema"
)

// Miner is Stage A: per-segment extraction of candidate claims, entities
// and terminology. Deliberately unfiltered; the judge decides quality.
type Miner struct {
	ai        adapter.InferenceClient
	validator *schema.Validator

	Model         string
	Selectivity   model.Selectivity
	SchemaVersion int
}

func NewMiner(ai adapter.InferenceClient, validator *schema.Validator, modelName string, sel model.Selectivity, schemaVersion int) *Miner {
	return &Miner{
		ai:            ai,
		validator:     validator,
		Model:         modelName,
		Selectivity:   sel,
		SchemaVersion: schemaVersion,
	}
}

// MineSegment runs one mining call and returns the segment's candidates.
func (m *Miner) MineSegment(ctx context.Context, runID string, seg model.Segment) ([]model.CandidateClaim, error) {
	raw, _, err := m.ai.Call(ctx, runID, model.StageMining, m.Model, minerMessages(m.Selectivity, seg))
	if err != nil {
		return nil, fmt.Errorf("mine segment %s: %w", seg.ID, err)
	}
	resp, err := m.validator.ValidateMining(m.SchemaVersion, raw)
	if err != nil {
		return nil, fmt.Errorf("mine segment %s: %w", seg.ID, err)
	}

	out := make([]model.CandidateClaim, 0, len(resp.Claims))
	for _, c := range resp.Claims {
		out = append(out, model.CandidateClaim{
			Text:         c.Text,
			Type:         model.ClaimType(c.Type),
			SegmentID:    seg.ID,
			Sequence:     seg.Sequence,
			FirstMention: seg.StartTime,
			Quote:        c.Quote,
			Entities:     c.Entities,
			Terms:        c.Terms,
		})
	}
	metrics.IncSegmentMined()
	return out, nil
}
