package model

type RelationType string

const (
	RelationSupports    RelationType = "supports"
	RelationContradicts RelationType = "contradicts"
	RelationDependsOn   RelationType = "depends_on"
	RelationRefines     RelationType = "refines"
)

// KnownRelationType reports whether t is one of the recognized edge types.
func KnownRelationType(t RelationType) bool {
	switch t {
	case RelationSupports, RelationContradicts, RelationDependsOn, RelationRefines:
		return true
	}
	return false
}

// Relation is a directed edge between two accepted claims. Stored as a
// plain edge list: cycles (for example mutual support) are valid data.
type Relation struct {
	ID          string       `json:"id"`
	RunID       string       `json:"run_id"`
	FromClaimID string       `json:"from_claim_id"`
	ToClaimID   string       `json:"to_claim_id"`
	Type        RelationType `json:"type"`
	Strength    float64      `json:"strength"`
	Rationale   string       `json:"rationale,omitempty"`
}
