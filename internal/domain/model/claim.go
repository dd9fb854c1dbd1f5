package model

import "time"

type ClaimType string

const (
	ClaimTypeFactual    ClaimType = "factual"
	ClaimTypeCausal     ClaimType = "causal"
	ClaimTypeNormative  ClaimType = "normative"
	ClaimTypeForecast   ClaimType = "forecast"
	ClaimTypeDefinition ClaimType = "definition"
)

// KnownClaimType reports whether t is one of the recognized claim types.
func KnownClaimType(t ClaimType) bool {
	switch t {
	case ClaimTypeFactual, ClaimTypeCausal, ClaimTypeNormative, ClaimTypeForecast, ClaimTypeDefinition:
		return true
	}
	return false
}

type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

// CandidateClaim is an unfiltered Stage A extraction. It stays ephemeral
// until the judge accepts it as a Claim.
type CandidateClaim struct {
	Text         string    `json:"text"`
	Type         ClaimType `json:"type"`
	SegmentID    string    `json:"segment_id"`
	Sequence     int       `json:"sequence"`
	FirstMention time.Duration
	Quote        string `json:"quote,omitempty"`
	Entities     []string
	Terms        []string
}

// Scores are the judge's assessment, each bounded to [0,1].
type Scores struct {
	Importance float64 `json:"importance"`
	Novelty    float64 `json:"novelty"`
	Confidence float64 `json:"confidence"`
}

// EvidenceSpan is a verbatim quote supporting a claim.
type EvidenceSpan struct {
	ID        string        `json:"id"`
	ClaimID   string        `json:"claim_id"`
	SegmentID string        `json:"segment_id"`
	StartTime time.Duration `json:"start_ms"`
	EndTime   time.Duration `json:"end_ms"`
	Quote     string        `json:"quote"`
	Context   string        `json:"context,omitempty"`
}

// Claim is an accepted, tiered unit of knowledge. After acceptance it is
// owned by the orchestrator's single-writer merge; workers never mutate it.
type Claim struct {
	ID            string         `json:"id"`
	RunID         string         `json:"run_id"`
	CanonicalText string         `json:"canonical_text"`
	Type          ClaimType      `json:"type"`
	Tier          Tier           `json:"tier"`
	Scores        Scores         `json:"scores"`
	FirstMention  time.Duration  `json:"first_mention_ms"`
	Evidence      []EvidenceSpan `json:"evidence"`
	Entities      []string       `json:"entities,omitempty"`
	Terms         []string       `json:"terms,omitempty"`
}

// Less orders claims for deterministic final assembly: higher importance
// first, then earlier first mention, then canonical text. This is also the
// tier tie-break order.
func (c *Claim) Less(other *Claim) bool {
	if c.Scores.Importance != other.Scores.Importance {
		return c.Scores.Importance > other.Scores.Importance
	}
	if c.FirstMention != other.FirstMention {
		return c.FirstMention < other.FirstMention
	}
	return c.CanonicalText < other.CanonicalText
}
