package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/domain/ports/adapter"
	"transcript-miner/internal/infra/metrics"
	"transcript-miner/internal/pipeline/schema"
)

// Relator is Stage C: relation detection over the accepted claim set. It
// runs only after judging closes the set, because edges may reference any
// accepted claim. Output is a plain edge list; cycles are valid data.
type Relator struct {
	ai        adapter.InferenceClient
	validator *schema.Validator

	Model         string
	BatchSize     int
	SchemaVersion int
}

func NewRelator(ai adapter.InferenceClient, validator *schema.Validator, modelName string, batchSize, schemaVersion int) *Relator {
	if batchSize <= 1 {
		batchSize = 12
	}
	return &Relator{
		ai:            ai,
		validator:     validator,
		Model:         modelName,
		BatchSize:     batchSize,
		SchemaVersion: schemaVersion,
	}
}

// Clusters groups claims into relator units. Consecutive clusters overlap
// by a quarter so relations spanning a boundary still get seen together.
func (r *Relator) Clusters(claims []model.Claim) [][]model.Claim {
	if len(claims) <= r.BatchSize {
		if len(claims) < 2 {
			return nil
		}
		return [][]model.Claim{claims}
	}
	step := r.BatchSize - r.BatchSize/4
	var out [][]model.Claim
	for start := 0; start < len(claims); start += step {
		end := start + r.BatchSize
		if end > len(claims) {
			end = len(claims)
		}
		if end-start >= 2 {
			out = append(out, claims[start:end])
		}
		if end == len(claims) {
			break
		}
	}
	return out
}

// RelateCluster runs one relating call. Claim ids are aliased to short
// stable tokens ("c1"...) in the prompt; edges referencing unknown aliases
// are discarded rather than failed.
func (r *Relator) RelateCluster(ctx context.Context, runID string, cluster []model.Claim) ([]model.Relation, error) {
	alias := make(map[string]string, len(cluster))   // claim id -> token
	byAlias := make(map[string]string, len(cluster)) // token -> claim id
	for i, c := range cluster {
		token := fmt.Sprintf("c%d", i+1)
		alias[c.ID] = token
		byAlias[token] = c.ID
	}

	raw, _, err := r.ai.Call(ctx, runID, model.StageRelating, r.Model, relatorMessages(cluster, func(id string) string { return alias[id] }))
	if err != nil {
		return nil, fmt.Errorf("relate cluster: %w", err)
	}
	resp, err := r.validator.ValidateRelating(r.SchemaVersion, raw)
	if err != nil {
		return nil, fmt.Errorf("relate cluster: %w", err)
	}

	var out []model.Relation
	for _, found := range resp.Relations {
		fromID, okFrom := byAlias[found.From]
		toID, okTo := byAlias[found.To]
		if !okFrom || !okTo {
			continue
		}
		rel := model.Relation{
			ID:          uuid.NewString(),
			RunID:       runID,
			FromClaimID: fromID,
			ToClaimID:   toID,
			Type:        model.RelationType(found.Type),
			Strength:    float64(found.Strength),
			Rationale:   found.Rationale,
		}
		metrics.IncRelation(string(rel.Type))
		out = append(out, rel)
	}
	return out, nil
}

// DedupeRelations drops duplicate edges (same endpoints and type) that
// overlapping clusters can produce, keeping the strongest.
func DedupeRelations(rels []model.Relation) []model.Relation {
	type key struct {
		from, to string
		typ      model.RelationType
	}
	best := make(map[key]int, len(rels))
	var out []model.Relation
	for _, rel := range rels {
		k := key{rel.FromClaimID, rel.ToClaimID, rel.Type}
		if idx, seen := best[k]; seen {
			if rel.Strength > out[idx].Strength {
				out[idx] = rel
			}
			continue
		}
		best[k] = len(out)
		out = append(out, rel)
	}
	return out
}
