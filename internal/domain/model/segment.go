package model

import "time"

// Segment is an ordered, timestamped slice of the source transcript.
// Immutable once parsed from input.
type Segment struct {
	ID        string        `json:"id"`
	Sequence  int           `json:"sequence"`
	Speaker   string        `json:"speaker,omitempty"`
	StartTime time.Duration `json:"start_ms"`
	EndTime   time.Duration `json:"end_ms"`
	Text      string        `json:"text"`
}

// Transcript is the upstream collaborator's output: segments already split
// and timestamped by an external speech-to-text or document parser.
type Transcript struct {
	ID       string
	Title    string
	Segments []Segment
}
