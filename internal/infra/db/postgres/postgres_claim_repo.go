package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/domain/ports/repository"
)

var _ repository.ClaimRepository = (*claimRepo)(nil)

type claimRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewClaimRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *claimRepo {
	return &claimRepo{pool: pool, tm: tm}
}

// SaveClaimSet writes claims, their evidence spans and relations in one
// transaction. A crash mid-save leaves nothing behind: either a claim with
// all its evidence exists, or none of it does. The run's previous rows are
// cleared first, so a run replaying its storing stage overwrites rather
// than colliding on claim ids. Evidence spans go with their claims via
// the FK cascade.
func (r *claimRepo) SaveClaimSet(ctx context.Context, runID string, claims []model.Claim, relations []model.Relation) error {
	return r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		now := time.Now()
		const clearRelQ = `DELETE FROM relations WHERE run_id = $1;`
		const clearClaimQ = `DELETE FROM claims WHERE run_id = $1;`
		if _, err := execSQL(ctx, r.pool, tx, clearRelQ, runID); err != nil {
			return fmt.Errorf("clear relations for run %s: %w", runID, err)
		}
		if _, err := execSQL(ctx, r.pool, tx, clearClaimQ, runID); err != nil {
			return fmt.Errorf("clear claims for run %s: %w", runID, err)
		}
		const claimQ = `
INSERT INTO claims (id, run_id, canonical_text, claim_type, tier, importance, novelty, confidence, first_mention_ms, entities, terms, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`
		const spanQ = `
INSERT INTO evidence_spans (id, claim_id, segment_id, start_ms, end_ms, quote, context)
VALUES ($1,$2,$3,$4,$5,$6,$7);`
		const relQ = `
INSERT INTO relations (id, run_id, from_claim_id, to_claim_id, relation_type, strength, rationale, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

		for i := range claims {
			c := &claims[i]
			_, err := execSQL(ctx, r.pool, tx, claimQ,
				c.ID, runID, c.CanonicalText, string(c.Type), string(c.Tier),
				c.Scores.Importance, c.Scores.Novelty, c.Scores.Confidence,
				c.FirstMention.Milliseconds(), c.Entities, c.Terms, now)
			if err != nil {
				return fmt.Errorf("insert claim %s: %w", c.ID, err)
			}
			for _, s := range c.Evidence {
				_, err := execSQL(ctx, r.pool, tx, spanQ,
					s.ID, c.ID, s.SegmentID, s.StartTime.Milliseconds(), s.EndTime.Milliseconds(), s.Quote, s.Context)
				if err != nil {
					return fmt.Errorf("insert evidence for claim %s: %w", c.ID, err)
				}
			}
		}
		for i := range relations {
			rel := &relations[i]
			_, err := execSQL(ctx, r.pool, tx, relQ,
				rel.ID, runID, rel.FromClaimID, rel.ToClaimID, string(rel.Type), rel.Strength, rel.Rationale, now)
			if err != nil {
				return fmt.Errorf("insert relation %s: %w", rel.ID, err)
			}
		}
		return nil
	})
}

func (r *claimRepo) FindByRun(ctx context.Context, tx repository.Tx, runID string) ([]model.Claim, error) {
	const q = `
SELECT id, canonical_text, claim_type, tier, importance, novelty, confidence, first_mention_ms, entities, terms
FROM claims WHERE run_id = $1
ORDER BY importance DESC, first_mention_ms ASC, canonical_text ASC;`

	rows, err := queryRows(ctx, r.pool, tx, q, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Claim
	for rows.Next() {
		var c model.Claim
		var typeStr, tierStr string
		var mentionMs int64
		if err := rows.Scan(&c.ID, &c.CanonicalText, &typeStr, &tierStr,
			&c.Scores.Importance, &c.Scores.Novelty, &c.Scores.Confidence,
			&mentionMs, &c.Entities, &c.Terms); err != nil {
			return nil, err
		}
		c.RunID = runID
		c.Type = model.ClaimType(typeStr)
		c.Tier = model.Tier(tierStr)
		c.FirstMention = time.Duration(mentionMs) * time.Millisecond
		spans, err := r.findSpans(ctx, tx, c.ID)
		if err != nil {
			return nil, err
		}
		c.Evidence = spans
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *claimRepo) findSpans(ctx context.Context, tx repository.Tx, claimID string) ([]model.EvidenceSpan, error) {
	const q = `
SELECT id, segment_id, start_ms, end_ms, quote, context
FROM evidence_spans WHERE claim_id = $1 ORDER BY start_ms;`

	rows, err := queryRows(ctx, r.pool, tx, q, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EvidenceSpan
	for rows.Next() {
		var s model.EvidenceSpan
		var startMs, endMs int64
		if err := rows.Scan(&s.ID, &s.SegmentID, &startMs, &endMs, &s.Quote, &s.Context); err != nil {
			return nil, err
		}
		s.ClaimID = claimID
		s.StartTime = time.Duration(startMs) * time.Millisecond
		s.EndTime = time.Duration(endMs) * time.Millisecond
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *claimRepo) FindRelationsByRun(ctx context.Context, tx repository.Tx, runID string) ([]model.Relation, error) {
	const q = `
SELECT id, from_claim_id, to_claim_id, relation_type, strength, rationale
FROM relations WHERE run_id = $1;`

	rows, err := queryRows(ctx, r.pool, tx, q, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Relation
	for rows.Next() {
		var rel model.Relation
		var typeStr string
		if err := rows.Scan(&rel.ID, &rel.FromClaimID, &rel.ToClaimID, &typeStr, &rel.Strength, &rel.Rationale); err != nil {
			return nil, err
		}
		rel.RunID = runID
		rel.Type = model.RelationType(typeStr)
		out = append(out, rel)
	}
	return out, rows.Err()
}
