package model

import (
	"fmt"
	"time"
)

type JobRunStatus string

const (
	JobRunStatusPending   JobRunStatus = "pending"
	JobRunStatusRunning   JobRunStatus = "running"
	JobRunStatusCompleted JobRunStatus = "completed"
	JobRunStatusFailed    JobRunStatus = "failed"
)

// Stage markers inside a running job. Transitions are monotonic: a run
// never moves backwards through this sequence.
type Stage string

const (
	StageParsing    Stage = "parsing"
	StageMining     Stage = "mining"
	StageEvaluating Stage = "evaluating"
	StageRelating   Stage = "relating"
	StageStoring    Stage = "storing"
	StageCompleted  Stage = "completed"
)

var stageOrder = map[Stage]int{
	StageParsing:    0,
	StageMining:     1,
	StageEvaluating: 2,
	StageRelating:   3,
	StageStoring:    4,
	StageCompleted:  5,
}

// After reports whether s comes at or after other in the pipeline order.
func (s Stage) After(other Stage) bool {
	return stageOrder[s] >= stageOrder[other]
}

// Before reports whether s comes strictly before other in the pipeline
// order. A checkpoint at stage s means work for s is not finished, so a
// resume re-enters any stage that is not Before it.
func (s Stage) Before(other Stage) bool {
	return stageOrder[s] < stageOrder[other]
}

const CheckpointVersion = 1

// Checkpoint is the durable snapshot of run progress. CompletedUnitIDs is
// sufficient to reconstruct "which segments are already done" without
// re-reading the transcript; the partial-output fields carry the stage
// artifacts a resumed run needs so finished inference work is never
// repeated. FinalResult is only set once the run reaches the completed
// stage, at which point the interim fields are cleared.
type Checkpoint struct {
	Version          int        `json:"version"`
	Stage            Stage      `json:"stage"`
	TotalUnits       int        `json:"total_units"`
	CompletedUnitIDs []string   `json:"completed_unit_ids"`
	FailedUnitIDs    []string   `json:"failed_unit_ids,omitempty"`
	ProgressPercent  int        `json:"progress_percent"`
	FinalResult      *JobResult `json:"final_result,omitempty"`

	// Interim stage outputs, keyed to the stage marker above. Candidates
	// are kept per segment through mining, replaced by the accepted claim
	// set after evaluating, joined by relations after relating.
	Candidates map[string][]CandidateClaim `json:"candidates,omitempty"`
	Claims     []Claim                     `json:"claims,omitempty"`
	Relations  []Relation                  `json:"relations,omitempty"`
	Gaps       []SegmentGap                `json:"gaps,omitempty"`
}

// CompletedSet returns the completed unit ids as a set for O(1) skip checks.
func (c *Checkpoint) CompletedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.CompletedUnitIDs))
	for _, id := range c.CompletedUnitIDs {
		set[id] = struct{}{}
	}
	return set
}

// JobRun is one execution attempt of a Job. UpdatedAt doubles as the
// optimistic-concurrency token: saves compare it against the stored row and
// fail with ErrConcurrentModification on mismatch.
type JobRun struct {
	ID          string
	JobID       string
	Status      JobRunStatus
	Checkpoint  *Checkpoint
	LastError   string
	StartedAt   time.Time
	CompletedAt time.Time
	UpdatedAt   time.Time
}

// SegmentGap records a segment that produced no claims, with the reason
// (retries exhausted, schema failure, budget ceiling).
type SegmentGap struct {
	SegmentID string `json:"segment_id"`
	Reason    string `json:"reason"`
}

// JobResult is the final payload handed to the caller: the accepted claim
// set with evidence and relations, plus a coverage summary. A run that
// mined N of M segments reports that explicitly rather than presenting
// partial output as complete.
type JobResult struct {
	JobID         string       `json:"job_id"`
	RunID         string       `json:"run_id"`
	TotalSegments int          `json:"total_segments"`
	MinedSegments int          `json:"mined_segments"`
	Gaps          []SegmentGap `json:"gaps,omitempty"`
	Claims        []Claim      `json:"claims"`
	Relations     []Relation   `json:"relations"`
	// Candidates carries the raw mining output for mine-only jobs, which
	// never reach the judging stage.
	Candidates       map[string][]CandidateClaim `json:"candidates,omitempty"`
	PromptTokens     int                         `json:"prompt_tokens"`
	CompletionTokens int                         `json:"completion_tokens"`
	CostMicro        int64                       `json:"cost_micro"`
}

// Summary renders the user-visible coverage line.
func (r *JobResult) Summary() string {
	return fmt.Sprintf("completed with %d/%d segments processed", r.MinedSegments, r.TotalSegments)
}
