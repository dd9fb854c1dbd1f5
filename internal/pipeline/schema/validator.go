package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"transcript-miner/internal/domain"
	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/infra/metrics"
)

// Validator decodes structured LLM responses against their versioned
// contracts, with one bounded repair pass before giving up.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

// decode runs the repair pipeline: extract the JSON body, retry with
// trailing-comma stripping and truncation recovery, then strict-decode.
func (v *Validator) decode(kind Kind, raw string, out interface{}) error {
	body, stripped := ExtractJSON(raw)
	if body == "" {
		metrics.IncSchemaFailure(string(kind))
		return fmt.Errorf("%w: empty response body", domain.ErrSchema)
	}

	repaired := stripped
	if err := json.Unmarshal([]byte(body), out); err == nil {
		if repaired {
			metrics.IncSchemaRepair(string(kind))
		}
		return nil
	}

	if fixed, changed := StripTrailingCommas(body); changed {
		body = fixed
		repaired = true
		if err := json.Unmarshal([]byte(body), out); err == nil {
			metrics.IncSchemaRepair(string(kind))
			return nil
		}
	}
	if closed, changed := CloseTruncated(body); changed {
		repaired = true
		if err := json.Unmarshal([]byte(closed), out); err == nil {
			metrics.IncSchemaRepair(string(kind))
			return nil
		}
	}
	_ = repaired
	metrics.IncSchemaFailure(string(kind))
	return fmt.Errorf("%w: %s response not decodable after repair", domain.ErrSchema, kind)
}

// ValidateMining parses and checks a mining response.
func (v *Validator) ValidateMining(version int, raw string) (*MiningResponse, error) {
	if !Supported(KindMining, version) {
		return nil, fmt.Errorf("%w: unsupported mining schema v%d", domain.ErrSchema, version)
	}
	var resp MiningResponse
	if err := v.decode(KindMining, raw, &resp); err != nil {
		return nil, err
	}
	kept := resp.Claims[:0]
	for _, c := range resp.Claims {
		if strings.TrimSpace(c.Text) == "" {
			continue // empty claims are noise, not errors
		}
		if !model.KnownClaimType(model.ClaimType(c.Type)) {
			c.Type = string(model.ClaimTypeFactual)
		}
		kept = append(kept, c)
	}
	resp.Claims = kept
	return &resp, nil
}

// ValidateJudging parses and checks a judging response against the number
// of candidates in the request batch.
func (v *Validator) ValidateJudging(version int, raw string, batchSize int) (*JudgingResponse, error) {
	if !Supported(KindJudging, version) {
		return nil, fmt.Errorf("%w: unsupported judging schema v%d", domain.ErrSchema, version)
	}
	var resp JudgingResponse
	if err := v.decode(KindJudging, raw, &resp); err != nil {
		return nil, err
	}
	for _, verdict := range resp.Verdicts {
		if verdict.Index < 0 || verdict.Index >= batchSize {
			metrics.IncSchemaFailure(string(KindJudging))
			return nil, fmt.Errorf("%w: verdict index %d out of range [0,%d)", domain.ErrSchema, verdict.Index, batchSize)
		}
		if !bounded(verdict.Importance) || !bounded(verdict.Novelty) || !bounded(verdict.Confidence) {
			metrics.IncSchemaFailure(string(KindJudging))
			return nil, fmt.Errorf("%w: verdict scores out of [0,1]", domain.ErrSchema)
		}
	}
	return &resp, nil
}

// ValidateRelating parses and checks a relating response.
func (v *Validator) ValidateRelating(version int, raw string) (*RelatingResponse, error) {
	if !Supported(KindRelating, version) {
		return nil, fmt.Errorf("%w: unsupported relating schema v%d", domain.ErrSchema, version)
	}
	var resp RelatingResponse
	if err := v.decode(KindRelating, raw, &resp); err != nil {
		return nil, err
	}
	kept := resp.Relations[:0]
	for _, rel := range resp.Relations {
		if rel.From == "" || rel.To == "" || rel.From == rel.To {
			continue
		}
		if !model.KnownRelationType(model.RelationType(rel.Type)) {
			continue
		}
		if !bounded(rel.Strength) {
			continue
		}
		kept = append(kept, rel)
	}
	resp.Relations = kept
	return &resp, nil
}

func bounded(s Score) bool { return s >= 0 && s <= 1 }
