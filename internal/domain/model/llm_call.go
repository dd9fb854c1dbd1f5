package model

import "time"

// LLMCall is the audit record of one inference attempt, success or failure.
// Written by the rate-limited adapter; read-only everywhere else.
type LLMCall struct {
	ID               string
	RunID            string
	Stage            Stage
	Model            string
	PromptTokens     int
	CompletionTokens int
	CostMicro        int64
	Duration         time.Duration
	Attempt          int
	Status           string // "ok" | "error"
	ErrorKind        string // "transient" | "schema" | "fatal" | "budget"
	CreatedAt        time.Time
}
