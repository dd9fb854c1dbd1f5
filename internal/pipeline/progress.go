package pipeline

import "transcript-miner/internal/domain/model"

// ProgressEvent is emitted at unit boundaries. The engine has no opinion
// about how progress is displayed; observers drain Events.
type ProgressEvent struct {
	Stage   model.Stage
	Done    int
	Total   int
	Percent int
}

// Progress is a non-blocking publisher: a slow or absent observer never
// stalls a worker.
type Progress struct {
	ch chan ProgressEvent
}

func NewProgress(buffer int) *Progress {
	if buffer <= 0 {
		buffer = 64
	}
	return &Progress{ch: make(chan ProgressEvent, buffer)}
}

func (p *Progress) Publish(stage model.Stage, done, total int) {
	if p == nil {
		return
	}
	pct := 0
	if total > 0 {
		pct = done * 100 / total
	}
	select {
	case p.ch <- ProgressEvent{Stage: stage, Done: done, Total: total, Percent: pct}:
	default:
		// drop rather than block a worker
	}
}

func (p *Progress) Events() <-chan ProgressEvent { return p.ch }

func (p *Progress) Close() { close(p.ch) }
