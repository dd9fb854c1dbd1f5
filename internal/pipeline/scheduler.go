package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"transcript-miner/internal/domain"
	"transcript-miner/internal/infra/hardware"
)

// Unit is one independently-processable piece of stage work (a segment, a
// candidate batch, a claim cluster).
type Unit struct {
	ID    string
	Index int
}

type unitResult struct {
	unit Unit
	err  error
}

// Scheduler fans units out across a bounded worker set. Completion order
// is arbitrary; callers own reassembly into canonical order. The worker
// count is the hard in-flight ceiling; memory pressure can only shrink the
// effective concurrency below it, never raise it.
type Scheduler struct {
	log      *zerolog.Logger
	pressure func() hardware.Pressure // nil disables the probe
	pollEach time.Duration
}

func NewScheduler(log *zerolog.Logger, pressure func() hardware.Pressure) *Scheduler {
	return &Scheduler{log: log, pressure: pressure, pollEach: 100 * time.Millisecond}
}

// Run processes every unit not in skip with at most `workers` concurrent
// executions. onDone runs on a single collector goroutine after each unit,
// with the cumulative success count, so callers can checkpoint without
// locking. Per-unit failures never abort the run; a cooperative stop makes
// remaining units fail with ErrJobStopped while in-flight work finishes.
func (s *Scheduler) Run(
	ctx context.Context,
	workers int,
	units []Unit,
	skip map[string]struct{},
	stop func() bool,
	process func(ctx context.Context, u Unit) error,
	onDone func(u Unit, err error, completed int),
) error {
	if workers <= 0 {
		workers = 1
	}
	pending := make([]Unit, 0, len(units))
	for _, u := range units {
		if _, done := skip[u.ID]; done {
			continue
		}
		pending = append(pending, u)
	}
	if len(pending) == 0 {
		return ctx.Err()
	}

	unitsCh := make(chan Unit)
	results := make(chan unitResult, len(pending))
	var inflight atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range unitsCh {
				switch {
				case ctx.Err() != nil:
					results <- unitResult{u, ctx.Err()}
				case stop != nil && stop():
					results <- unitResult{u, domain.ErrJobStopped}
				default:
					inflight.Add(1)
					err := process(ctx, u)
					inflight.Add(-1)
					results <- unitResult{u, err}
				}
			}
		}()
	}

	go func() {
		defer close(unitsCh)
		for _, u := range pending {
			s.waitForHeadroom(ctx, workers, &inflight)
			unitsCh <- u
		}
	}()

	completed := 0
	for i := 0; i < len(pending); i++ {
		r := <-results
		if r.err == nil {
			completed++
		}
		if onDone != nil {
			onDone(r.unit, r.err, completed)
		}
	}
	wg.Wait()
	return ctx.Err()
}

// waitForHeadroom throttles dispatch under memory pressure: soft pressure
// halves the effective concurrency, hard pressure pauses dispatch until
// the host recovers or the context ends.
func (s *Scheduler) waitForHeadroom(ctx context.Context, workers int, inflight *atomic.Int64) {
	if s.pressure == nil {
		return
	}
	warned := false
	for ctx.Err() == nil {
		target := workers
		switch s.pressure() {
		case hardware.PressureSoft:
			if target = workers / 2; target < 1 {
				target = 1
			}
		case hardware.PressureHard:
			target = 0
		}
		if target > 0 && int(inflight.Load()) < target {
			return
		}
		if target == 0 && !warned {
			s.log.Warn().Msg("memory pressure hard threshold crossed; pausing dispatch")
			warned = true
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.pollEach):
		}
	}
}
