package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/domain/ports/adapter"
	"transcript-miner/internal/infra/metrics"
	"transcript-miner/internal/pipeline/schema"
)

// judgeBatchSize bounds how many candidates share one judging call.
const judgeBatchSize = 8

// Judge is Stage B: scores candidates, routes uncertain ones to the
// flagship model, assigns tiers and drops the noise floor. The escalation
// threshold and the miner's selectivity are independent knobs.
type Judge struct {
	ai        adapter.InferenceClient
	validator *schema.Validator

	Model         string // light model, first pass
	FlagshipModel string // strong model for uncertain candidates
	Escalation    float64
	MinImportance float64
	SchemaVersion int
}

func NewJudge(ai adapter.InferenceClient, validator *schema.Validator, modelName, flagship string, escalation, minImportance float64, schemaVersion int) *Judge {
	return &Judge{
		ai:            ai,
		validator:     validator,
		Model:         modelName,
		FlagshipModel: flagship,
		Escalation:    escalation,
		MinImportance: minImportance,
		SchemaVersion: schemaVersion,
	}
}

// Batches splits candidates into judging units.
func (j *Judge) Batches(candidates []model.CandidateClaim) [][]model.CandidateClaim {
	var out [][]model.CandidateClaim
	for start := 0; start < len(candidates); start += judgeBatchSize {
		end := start + judgeBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		out = append(out, candidates[start:end])
	}
	return out
}

// JudgeBatch scores one batch. Candidates whose light-model confidence
// falls below the escalation threshold are re-judged by the flagship model
// (cost/quality tradeoff, not a correctness requirement: flagship failures
// fall back to the light verdict).
func (j *Judge) JudgeBatch(ctx context.Context, runID string, batch []model.CandidateClaim) ([]model.Claim, error) {
	verdicts, err := j.judgeWith(ctx, runID, j.Model, batch)
	if err != nil {
		return nil, err
	}

	var uncertain []int
	for idx, v := range verdicts {
		if v != nil && float64(v.Confidence) < j.Escalation {
			uncertain = append(uncertain, idx)
		}
	}
	if len(uncertain) > 0 && j.FlagshipModel != "" && j.FlagshipModel != j.Model {
		sub := make([]model.CandidateClaim, len(uncertain))
		for i, idx := range uncertain {
			sub[i] = batch[idx]
		}
		if strong, err := j.judgeWith(ctx, runID, j.FlagshipModel, sub); err == nil {
			for i, idx := range uncertain {
				if strong[i] != nil {
					verdicts[idx] = strong[i]
				}
			}
		}
	}

	var accepted []model.Claim
	for idx, v := range verdicts {
		if v == nil {
			// unjudged candidates are dropped, not failed
			metrics.IncClaimDropped()
			continue
		}
		scores := model.Scores{
			Importance: float64(v.Importance),
			Novelty:    float64(v.Novelty),
			Confidence: float64(v.Confidence),
		}
		if scores.Importance < j.MinImportance {
			metrics.IncClaimDropped()
			continue
		}
		cand := batch[idx]
		claim := model.Claim{
			ID:            uuid.NewString(),
			RunID:         runID,
			CanonicalText: cand.Text,
			Type:          cand.Type,
			Tier:          TierFor(scores),
			Scores:        scores,
			FirstMention:  cand.FirstMention,
			Entities:      cand.Entities,
			Terms:         cand.Terms,
		}
		if cand.Quote != "" {
			claim.Evidence = []model.EvidenceSpan{{
				ID:        uuid.NewString(),
				ClaimID:   claim.ID,
				SegmentID: cand.SegmentID,
				StartTime: cand.FirstMention,
				EndTime:   cand.FirstMention,
				Quote:     cand.Quote,
				Context:   "",
			}}
		}
		metrics.IncClaimAccepted(string(claim.Tier))
		accepted = append(accepted, claim)
	}
	return accepted, nil
}

func (j *Judge) judgeWith(ctx context.Context, runID, modelName string, batch []model.CandidateClaim) ([]*schema.Verdict, error) {
	raw, _, err := j.ai.Call(ctx, runID, model.StageEvaluating, modelName, judgeMessages(batch))
	if err != nil {
		return nil, fmt.Errorf("judge batch: %w", err)
	}
	resp, err := j.validator.ValidateJudging(j.SchemaVersion, raw, len(batch))
	if err != nil {
		return nil, fmt.Errorf("judge batch: %w", err)
	}
	verdicts := make([]*schema.Verdict, len(batch))
	for i := range resp.Verdicts {
		v := resp.Verdicts[i]
		verdicts[v.Index] = &v
	}
	return verdicts, nil
}

// TierFor maps importance to a tier band.
func TierFor(s model.Scores) model.Tier {
	switch {
	case s.Importance >= 0.75:
		return model.TierA
	case s.Importance >= 0.45:
		return model.TierB
	default:
		return model.TierC
	}
}

// SortClaims fixes the canonical output order: higher importance first,
// ties broken by earlier first mention, then by text. Out-of-order
// completion upstream never changes the final ordering.
func SortClaims(claims []model.Claim) {
	sort.SliceStable(claims, func(a, b int) bool {
		return claims[a].Less(&claims[b])
	})
}
