package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	log := zerolog.Nop()
	p := NewPool(2, &log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var ran atomic.Int64
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		last := i == 4
		err := p.Submit(func(ctx context.Context) error {
			ran.Add(1)
			if last {
				close(done)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tasks did not finish in time")
	}
	p.Stop()
	if got := ran.Load(); got < 5 {
		t.Fatalf("ran %d tasks, want 5", got)
	}
}

func TestPoolSubmitRejectsWhenSaturated(t *testing.T) {
	log := zerolog.Nop()
	p := NewPool(1, &log)
	// never started: the queue only drains into nothing, so it fills

	var err error
	for i := 0; i < 100; i++ {
		if err = p.Submit(func(ctx context.Context) error { return nil }); err != nil {
			break
		}
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("saturated submit = %v, want ErrQueueFull", err)
	}
}

func TestPoolRejectsNilTask(t *testing.T) {
	log := zerolog.Nop()
	p := NewPool(1, &log)
	if err := p.Submit(nil); err == nil {
		t.Fatal("nil task accepted")
	}
}
