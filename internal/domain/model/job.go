package model

import "time"

type JobType string

const (
	JobTypeTranscribe   JobType = "transcribe"
	JobTypeMine         JobType = "mine"
	JobTypeEvaluate     JobType = "evaluate"
	JobTypeFullPipeline JobType = "full-pipeline"
)

// FinalStage is the last pipeline stage a job of this type executes.
// Mine jobs deliver raw candidates, evaluate jobs deliver judged claims
// without relations, everything else runs the full sequence.
func (t JobType) FinalStage() Stage {
	switch t {
	case JobTypeMine:
		return StageMining
	case JobTypeEvaluate:
		return StageEvaluating
	default:
		return StageRelating
	}
}

type Selectivity string

const (
	SelectivityLiberal      Selectivity = "liberal"
	SelectivityModerate     Selectivity = "moderate"
	SelectivityConservative Selectivity = "conservative"
)

// JobConfig is snapshotted at creation time and never changes afterwards.
// SchemaVersion pins the response contract for every call made on behalf
// of this job, so in-flight jobs survive prompt/schema evolution.
type JobConfig struct {
	MinerModel       string      `json:"miner_model"`
	JudgeModel       string      `json:"judge_model"`
	FlagshipModel    string      `json:"flagship_model"`
	RelatorModel     string      `json:"relator_model"`
	Selectivity      Selectivity `json:"selectivity"`
	JudgeEscalation  float64     `json:"judge_escalation"`
	SchemaVersion    int         `json:"schema_version"`
	WorkerOverride   int         `json:"worker_override,omitempty"`
	CostCeilingMicro int64       `json:"cost_ceiling_micro,omitempty"`
}

// Job is a requested unit of extraction work tied to one input transcript.
// Immutable after creation; execution state lives on its runs.
type Job struct {
	ID        string
	Type      JobType
	InputID   string
	Config    JobConfig
	CreatedAt time.Time
}
