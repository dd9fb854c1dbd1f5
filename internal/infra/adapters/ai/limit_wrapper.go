package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"transcript-miner/internal/domain"
	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/domain/ports/adapter"
	"transcript-miner/internal/domain/ports/repository"
	"transcript-miner/internal/infra/metrics"
)

// Compile-time check
var _ adapter.InferenceClient = (*LimitedAI)(nil)

// RateLimiter is the requests-per-minute window shared by all workers.
// Satisfied by the redis fixed-window limiter and the in-process one.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// ModelCost carries per-token micro-dollar prices.
type ModelCost struct {
	InputMicroPerTok  int64
	OutputMicroPerTok int64
}

// CostTable maps model name to its pricing. Missing entries cost zero.
type CostTable map[string]ModelCost

type LimitedOptions struct {
	MaxConcurrent    int
	RequestsPerMin   int
	CallTimeout      time.Duration
	MaxAttempts      int
	CostCeilingMicro int64 // 0 = unlimited
	Costs            CostTable
	Limiter          RateLimiter
	Calls            repository.LLMCallRepository
}

// LimitedAI wraps a backend adapter with the full call discipline: a
// concurrency semaphore sized by the hardware budget, a requests-per-minute
// window, a per-call wall-clock timeout, exponential backoff with jitter on
// transient failures, a session cost ledger with pre-flight ceiling checks,
// and one audit record per attempt.
type LimitedAI struct {
	inner adapter.AIServiceAdapter
	opts  LimitedOptions
	sem   chan struct{}
	spent atomic.Int64
	log   *zerolog.Logger

	// test seams
	sleep       func(ctx context.Context, d time.Duration) error
	backoffBase time.Duration
}

func NewLimitedAI(inner adapter.AIServiceAdapter, opts LimitedOptions, log *zerolog.Logger) *LimitedAI {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 4
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 2 * time.Minute
	}
	return &LimitedAI{
		inner:       inner,
		opts:        opts,
		sem:         make(chan struct{}, opts.MaxConcurrent),
		log:         log,
		sleep:       sleepCtx,
		backoffBase: 500 * time.Millisecond,
	}
}

// InFlightCap reports the semaphore size, for observability and tests.
func (l *LimitedAI) InFlightCap() int { return cap(l.sem) }

func (l *LimitedAI) SpentMicro() int64 { return l.spent.Load() }

func (l *LimitedAI) CountTokens(ctx context.Context, modelName string, messages []adapter.Message) (int, error) {
	return l.inner.CountTokens(ctx, modelName, messages)
}

func (l *LimitedAI) Call(ctx context.Context, runID string, stage model.Stage, modelName string, messages []adapter.Message) (string, adapter.Usage, error) {
	if err := l.precheckBudget(ctx, stage, modelName, messages); err != nil {
		return "", adapter.Usage{}, err
	}

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", adapter.Usage{}, fmt.Errorf("%w: %v", domain.ErrTransient, ctx.Err())
	}
	defer func() { <-l.sem }()

	var lastErr error
	for attempt := 1; attempt <= l.opts.MaxAttempts; attempt++ {
		if err := l.waitForRateToken(ctx, modelName); err != nil {
			return "", adapter.Usage{}, err
		}

		text, usage, err := l.attempt(ctx, runID, stage, modelName, messages, attempt)
		if err == nil {
			return text, usage, nil
		}
		lastErr = err
		if !domain.Retryable(err) {
			return "", adapter.Usage{}, err
		}
		if attempt == l.opts.MaxAttempts {
			break
		}
		metrics.IncRetry(string(stage), modelName)
		if err := l.sleep(ctx, l.backoff(attempt)); err != nil {
			return "", adapter.Usage{}, fmt.Errorf("%w: %v", domain.ErrTransient, err)
		}
	}
	return "", adapter.Usage{}, fmt.Errorf("retries exhausted: %w", lastErr)
}

// attempt runs a single bounded inference call and records its audit row.
func (l *LimitedAI) attempt(ctx context.Context, runID string, stage model.Stage, modelName string, messages []adapter.Message, attempt int) (string, adapter.Usage, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.opts.CallTimeout)
	defer cancel()

	start := time.Now()
	text, usage, err := l.inner.ChatWithUsage(callCtx, modelName, messages)
	elapsed := time.Since(start)

	if err != nil {
		err = l.classify(err, callCtx)
	}

	cost := l.costOf(modelName, usage)
	if err == nil {
		l.spent.Add(cost)
	}

	call := &model.LLMCall{
		ID:               ulid.Make().String(),
		RunID:            runID,
		Stage:            stage,
		Model:            modelName,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		CostMicro:        cost,
		Duration:         elapsed,
		Attempt:          attempt,
		Status:           "ok",
		CreatedAt:        start,
	}
	if err != nil {
		call.Status = "error"
		call.ErrorKind = errorKind(err)
	}
	if l.opts.Calls != nil {
		// Audit writes use a background context so a cancelled call is
		// still recorded.
		if recErr := l.opts.Calls.Record(context.Background(), call); recErr != nil {
			l.log.Error().Err(recErr).Str("call_id", call.ID).Msg("failed to record llm call")
		}
	}

	metrics.ObserveCallUsage(string(stage), modelName,
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens,
		cost, int(elapsed/time.Millisecond), err == nil)

	return text, usage, err
}

// precheckBudget skips the call entirely once the session ceiling is hit,
// so no money is spent on work that would be discarded.
func (l *LimitedAI) precheckBudget(ctx context.Context, stage model.Stage, modelName string, messages []adapter.Message) error {
	ceiling := l.opts.CostCeilingMicro
	if ceiling <= 0 {
		return nil
	}
	spent := l.spent.Load()
	if spent >= ceiling {
		metrics.BudgetBlocked(string(stage), modelName)
		return fmt.Errorf("%w: spent %d of %d micro", domain.ErrBudgetExceeded, spent, ceiling)
	}
	// Best-effort prompt estimate; counting failures don't block the call.
	if tokens, err := l.inner.CountTokens(ctx, modelName, messages); err == nil {
		estimate := int64(tokens) * l.costPer(modelName).InputMicroPerTok
		if spent+estimate > ceiling {
			metrics.BudgetBlocked(string(stage), modelName)
			return fmt.Errorf("%w: estimated %d micro would exceed ceiling %d", domain.ErrBudgetExceeded, spent+estimate, ceiling)
		}
	}
	return nil
}

func (l *LimitedAI) waitForRateToken(ctx context.Context, modelName string) error {
	if l.opts.Limiter == nil || l.opts.RequestsPerMin <= 0 {
		return nil
	}
	key := "rate_limit:inference:" + providerOf(modelName)
	for {
		allowed, err := l.opts.Limiter.Allow(ctx, key, l.opts.RequestsPerMin, time.Minute)
		if err != nil {
			// Fail open on limiter infrastructure errors; the provider's
			// own 429s still land in the transient retry path.
			l.log.Warn().Err(err).Msg("rate limiter unavailable")
			return nil
		}
		if allowed {
			return nil
		}
		if err := l.sleep(ctx, time.Second); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrTransient, err)
		}
	}
}

func (l *LimitedAI) backoff(attempt int) time.Duration {
	d := l.backoffBase << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(l.backoffBase)))
	return d + jitter
}

func (l *LimitedAI) costPer(modelName string) ModelCost {
	return l.opts.Costs[modelName]
}

func (l *LimitedAI) costOf(modelName string, u adapter.Usage) int64 {
	c := l.costPer(modelName)
	return int64(u.PromptTokens)*c.InputMicroPerTok + int64(u.CompletionTokens)*c.OutputMicroPerTok
}

// classify maps backend errors onto the domain taxonomy. Timeouts and
// network failures are transient; auth/config problems are fatal; anything
// unrecognized is treated as transient so the bounded retry loop decides.
func (l *LimitedAI) classify(err error, callCtx context.Context) error {
	switch {
	case errors.Is(err, domain.ErrTransient), errors.Is(err, domain.ErrFatal), errors.Is(err, domain.ErrSchema):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: call timeout: %v", domain.ErrTransient, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	if code, ok := statusCodeOf(err); ok {
		switch {
		case code == 401 || code == 403:
			return fmt.Errorf("%w: http %d: %v", domain.ErrFatal, code, err)
		case code == 404:
			return fmt.Errorf("%w: model not found: %v", domain.ErrFatal, err)
		case code == 429 || code >= 500:
			return fmt.Errorf("%w: http %d: %v", domain.ErrTransient, code, err)
		default:
			return fmt.Errorf("%w: http %d: %v", domain.ErrFatal, code, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrTransient, err)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrBudgetExceeded):
		return "budget"
	case errors.Is(err, domain.ErrSchema):
		return "schema"
	case errors.Is(err, domain.ErrFatal):
		return "fatal"
	default:
		return "transient"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
