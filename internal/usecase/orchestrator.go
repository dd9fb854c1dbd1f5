package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"transcript-miner/internal/domain"
	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/domain/ports/adapter"
	"transcript-miner/internal/domain/ports/repository"
	"transcript-miner/internal/infra/hardware"
	"transcript-miner/internal/infra/logging"
	"transcript-miner/internal/infra/metrics"
	"transcript-miner/internal/pipeline"
	"transcript-miner/internal/pipeline/schema"
)

// Defaults fill job config fields left blank at creation time. Snapshotted
// into the job row, so later config changes never affect existing jobs.
type Defaults struct {
	MinerModel        string
	JudgeModel        string
	FlagshipModel     string
	RelatorModel      string
	Selectivity       model.Selectivity
	JudgeEscalation   float64
	MinImportance     float64
	SchemaVersion     int
	CheckpointPercent int
	RelationBatch     int
	CostCeilingMicro  int64
}

// Orchestrator is the top-level state machine: it creates jobs, drives
// runs through the extraction stages, writes checkpoints at stage
// boundaries, and finalizes or fails the run. It is the single writer of
// run state; pipeline workers report back through it, never past it.
type Orchestrator struct {
	jobs        repository.JobRepository
	runs        repository.JobRunRepository
	transcripts repository.TranscriptRepository
	claims      repository.ClaimRepository
	calls       repository.LLMCallRepository
	ai          adapter.InferenceClient
	profiler    *hardware.Profiler
	validator   *schema.Validator
	defaults    Defaults
	log         *zerolog.Logger
	progress    *pipeline.Progress

	stops sync.Map // job id -> *atomic.Bool
}

func NewOrchestrator(
	jobs repository.JobRepository,
	runs repository.JobRunRepository,
	transcripts repository.TranscriptRepository,
	claims repository.ClaimRepository,
	calls repository.LLMCallRepository,
	ai adapter.InferenceClient,
	profiler *hardware.Profiler,
	defaults Defaults,
	log *zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		jobs:        jobs,
		runs:        runs,
		transcripts: transcripts,
		claims:      claims,
		calls:       calls,
		ai:          ai,
		profiler:    profiler,
		validator:   schema.NewValidator(),
		defaults:    defaults,
		log:         log,
	}
}

// SetProgress attaches an optional progress publisher.
func (o *Orchestrator) SetProgress(p *pipeline.Progress) { o.progress = p }

// CreateJob validates the request, snapshots the effective config and
// persists the job. The input transcript must already exist.
func (o *Orchestrator) CreateJob(ctx context.Context, jobType model.JobType, inputID string, cfg model.JobConfig) (*model.Job, error) {
	switch jobType {
	case model.JobTypeMine, model.JobTypeEvaluate, model.JobTypeFullPipeline:
	case model.JobTypeTranscribe:
		// transcription happens in the upstream speech-to-text service;
		// this engine starts from its output
		return nil, fmt.Errorf("%w: transcribe jobs are produced upstream; submit mine, evaluate or full-pipeline", domain.ErrInvalidArgument)
	default:
		return nil, fmt.Errorf("%w: unknown job type %q", domain.ErrInvalidArgument, jobType)
	}
	if inputID == "" {
		return nil, fmt.Errorf("%w: input id is required", domain.ErrInvalidArgument)
	}
	if _, err := o.transcripts.FindByID(ctx, nil, inputID); err != nil {
		return nil, fmt.Errorf("input transcript %s: %w", inputID, err)
	}

	o.applyDefaults(&cfg)
	for _, kind := range []schema.Kind{schema.KindMining, schema.KindJudging, schema.KindRelating} {
		if !schema.Supported(kind, cfg.SchemaVersion) {
			return nil, fmt.Errorf("%w: schema version %d not supported for %s", domain.ErrInvalidArgument, cfg.SchemaVersion, kind)
		}
	}

	job := &model.Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		InputID:   inputID,
		Config:    cfg,
		CreatedAt: time.Now(),
	}
	if err := o.jobs.Save(ctx, nil, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}
	logging.With(logging.WithJobID(ctx, job.ID), o.log).Info().
		Str("type", string(jobType)).Str("input_id", inputID).Msg("job created")
	return job, nil
}

// StopJob raises the cooperative stop flag for a running job. Workers
// check it between units; in-flight inference calls are left to finish so
// their cost is not wasted. Returns false when no run is in progress.
func (o *Orchestrator) StopJob(jobID string) bool {
	v, ok := o.stops.Load(jobID)
	if !ok {
		return false
	}
	v.(*atomic.Bool).Store(true)
	return true
}

// JobStatus returns the job and its latest run, if any.
func (o *Orchestrator) JobStatus(ctx context.Context, jobID string) (*model.Job, *model.JobRun, error) {
	job, err := o.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		return nil, nil, err
	}
	run, err := o.runs.FindLatestByJob(ctx, nil, jobID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}
	return job, run, nil
}

// ProcessJob runs (or resumes) the latest run of a job to completion.
// With resume set and a checkpoint present, in-memory state is rebuilt
// from the checkpoint first, so finished inference work is skipped. A
// completed checkpoint short-circuits to the cached result with zero new
// inference calls.
func (o *Orchestrator) ProcessJob(ctx context.Context, jobID string, resume bool) (*model.JobResult, error) {
	job, err := o.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", jobID, err)
	}
	ctx = logging.WithJobID(ctx, job.ID)

	run, err := o.claimRun(ctx, job, resume)
	if err != nil {
		return nil, err
	}
	if run.Checkpoint != nil && run.Checkpoint.Stage == model.StageCompleted && run.Checkpoint.FinalResult != nil {
		logging.With(ctx, o.log).Info().Str("run_id", run.ID).Msg("returning cached result for completed run")
		return run.Checkpoint.FinalResult, nil
	}
	ctx = logging.WithRunID(ctx, run.ID)
	log := logging.With(ctx, o.log)
	defer logging.TraceDuration(log, "Orchestrator.ProcessJob")()

	flag := &atomic.Bool{}
	o.stops.Store(job.ID, flag)
	defer o.stops.Delete(job.ID)

	result, err := o.execute(ctx, job, run, flag)
	if err != nil {
		if errors.Is(err, domain.ErrConcurrentModification) {
			// Another process owns the run row now; writing anything more
			// would fight it.
			metrics.IncJobRun("conflict")
			return nil, err
		}
		run.Status = model.JobRunStatusFailed
		run.LastError = err.Error()
		if saveErr := o.runs.SaveOptimistic(ctx, nil, run); saveErr != nil {
			log.Error().Err(saveErr).Msg("failed to persist failure checkpoint")
		}
		metrics.IncJobRun("failed")
		log.Error().Err(err).Msg("job run failed")
		return nil, err
	}

	metrics.IncJobRun("completed")
	log.Info().Str("summary", result.Summary()).Int("claims", len(result.Claims)).
		Int("relations", len(result.Relations)).Int64("cost_micro", result.CostMicro).
		Msg("job run completed")
	return result, nil
}

// claimRun loads or creates the run and immediately moves it to running
// under the optimistic check. Two processes racing on the same job both
// read the same updated_at; only one save lands, the other surfaces
// ErrConcurrentModification.
func (o *Orchestrator) claimRun(ctx context.Context, job *model.Job, resume bool) (*model.JobRun, error) {
	run, err := o.runs.FindLatestByJob(ctx, nil, job.ID)
	switch {
	case err == nil && run.Checkpoint != nil && run.Checkpoint.Stage == model.StageCompleted && run.Checkpoint.FinalResult != nil:
		// re-running a finished job always returns the cached result,
		// whatever the resume flag says; a fresh run here would re-bill
		// every inference call
		return run, nil
	case err == nil && resume && run.Checkpoint != nil:
	case err == nil && run.Status == model.JobRunStatusRunning:
		// a fresh start never piggybacks on a run that looks live
		return nil, fmt.Errorf("%w: run %s appears to be in progress", domain.ErrConcurrentModification, run.ID)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("load latest run: %w", err)
	default:
		run = nil
	}

	if run == nil {
		run = &model.JobRun{
			ID:        uuid.NewString(),
			JobID:     job.ID,
			Status:    model.JobRunStatusPending,
			StartedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := o.runs.Create(ctx, nil, run); err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
		return run, nil
	}

	run.Status = model.JobRunStatusRunning
	run.LastError = ""
	if err := o.runs.SaveOptimistic(ctx, nil, run); err != nil {
		return nil, fmt.Errorf("claim run %s: %w", run.ID, err)
	}
	return run, nil
}

// runState is the in-memory working set of one run, reconstructed from
// the checkpoint on resume.
type runState struct {
	segments   []model.Segment
	candidates map[string][]model.CandidateClaim
	claims     []model.Claim
	relations  []model.Relation
	gaps       []model.SegmentGap
	completed  map[string]struct{}
}

func (o *Orchestrator) execute(ctx context.Context, job *model.Job, run *model.JobRun, stop *atomic.Bool) (*model.JobResult, error) {
	budget := o.profiler.Budget().Clamp(job.Config.WorkerOverride)
	log := logging.With(ctx, o.log)
	log.Info().Str("tier", string(budget.Tier)).Int("miners", budget.MaxMiners).
		Int("judges", budget.MaxJudges).Msg("hardware budget resolved")

	sched := pipeline.NewScheduler(o.log, func() hardware.Pressure {
		return o.profiler.CheckPressure(budget)
	})
	stopFn := stop.Load

	state, stage, err := o.restore(ctx, job, run)
	if err != nil {
		return nil, err
	}
	final := job.Type.FinalStage()

	if stage.Before(model.StageEvaluating) {
		if err := o.saveCheckpoint(ctx, run, model.StageMining, state); err != nil {
			return nil, err
		}
		if err := o.runMining(ctx, job, run, state, budget, sched, stopFn); err != nil {
			return nil, err
		}
		stage = model.StageEvaluating
	}

	if final.After(model.StageEvaluating) && stage.Before(model.StageRelating) {
		if err := o.saveCheckpoint(ctx, run, model.StageEvaluating, state); err != nil {
			return nil, err
		}
		if err := o.runJudging(ctx, job, run, state, budget, sched, stopFn); err != nil {
			return nil, err
		}
		stage = model.StageRelating
	}

	if final.After(model.StageRelating) && stage.Before(model.StageStoring) {
		if err := o.saveCheckpoint(ctx, run, model.StageRelating, state); err != nil {
			return nil, err
		}
		if err := o.runRelating(ctx, job, run, state, budget, sched, stopFn); err != nil {
			return nil, err
		}
		stage = model.StageStoring
	}

	if err := o.saveCheckpoint(ctx, run, model.StageStoring, state); err != nil {
		return nil, err
	}
	return o.finalize(ctx, job, run, state)
}

// restore loads the transcript and rebuilds working state from the
// checkpoint. Parsing is repeatable and free, so segments always come
// from the source transcript; only billable artifacts live in the
// checkpoint.
func (o *Orchestrator) restore(ctx context.Context, job *model.Job, run *model.JobRun) (*runState, model.Stage, error) {
	transcript, err := o.transcripts.FindByID(ctx, nil, job.InputID)
	if err != nil {
		return nil, "", fmt.Errorf("transcript %s: %w", job.InputID, err)
	}
	segments, err := pipeline.PrepareSegments(transcript)
	if err != nil {
		return nil, "", err
	}

	state := &runState{
		segments:   segments,
		candidates: make(map[string][]model.CandidateClaim),
		completed:  make(map[string]struct{}),
	}
	stage := model.StageParsing

	if cp := run.Checkpoint; cp != nil {
		stage = cp.Stage
		state.completed = cp.CompletedSet()
		state.gaps = append(state.gaps, cp.Gaps...)
		if cp.Candidates != nil {
			state.candidates = cp.Candidates
		}
		state.claims = cp.Claims
		state.relations = cp.Relations
		logging.With(ctx, o.log).Info().Str("stage", string(stage)).
			Int("completed_units", len(state.completed)).Msg("resuming from checkpoint")
	}
	return state, stage, nil
}

func (o *Orchestrator) runMining(ctx context.Context, job *model.Job, run *model.JobRun, state *runState, budget model.HardwareBudget, sched *pipeline.Scheduler, stop func() bool) error {
	start := time.Now()
	miner := pipeline.NewMiner(o.ai, o.validator, job.Config.MinerModel, job.Config.Selectivity, job.Config.SchemaVersion)

	units := make([]pipeline.Unit, len(state.segments))
	segByID := make(map[string]model.Segment, len(state.segments))
	for i, seg := range state.segments {
		units[i] = pipeline.Unit{ID: seg.ID, Index: i}
		segByID[seg.ID] = seg
	}
	// Gapped segments already cost their retries; a resume does not pay
	// for them again.
	skip := make(map[string]struct{}, len(state.completed)+len(state.gaps))
	for id := range state.completed {
		skip[id] = struct{}{}
	}
	for _, g := range state.gaps {
		skip[g.SegmentID] = struct{}{}
	}

	total := len(units)
	interval := total * o.checkpointPercent() / 100
	if interval < 1 {
		interval = 1
	}

	var mu sync.Mutex
	var sinceCheckpoint int
	var fatal error
	err := sched.Run(ctx, budget.MaxMiners, units, skip, stop,
		func(ctx context.Context, u pipeline.Unit) error {
			cands, err := miner.MineSegment(ctx, run.ID, segByID[u.ID])
			if err != nil {
				return err
			}
			mu.Lock()
			state.candidates[u.ID] = cands
			mu.Unlock()
			return nil
		},
		func(u pipeline.Unit, unitErr error, completed int) {
			mu.Lock()
			defer mu.Unlock()
			switch {
			case unitErr == nil:
				state.completed[u.ID] = struct{}{}
			case errors.Is(unitErr, domain.ErrJobStopped):
				// not a gap: the segment was never attempted
			case errors.Is(unitErr, domain.ErrFatal):
				if fatal == nil {
					fatal = unitErr
				}
			default:
				reason := gapReason(unitErr)
				state.gaps = append(state.gaps, model.SegmentGap{SegmentID: u.ID, Reason: reason})
				metrics.IncSegmentGap(reason)
			}
			done := len(state.completed) + len(state.gaps)
			o.progress.Publish(model.StageMining, done, total)
			sinceCheckpoint++
			if sinceCheckpoint >= interval {
				sinceCheckpoint = 0
				if err := o.saveCheckpoint(ctx, run, model.StageMining, state); err != nil {
					logging.With(ctx, o.log).Error().Err(err).Msg("periodic mining checkpoint failed")
				}
			}
		})
	if err != nil {
		return err
	}
	if fatal != nil {
		return fatal
	}
	if stop() {
		return fmt.Errorf("mining interrupted: %w", domain.ErrJobStopped)
	}
	metrics.ObserveStageDuration(string(model.StageMining), time.Since(start).Seconds())
	return nil
}

func (o *Orchestrator) runJudging(ctx context.Context, job *model.Job, run *model.JobRun, state *runState, budget model.HardwareBudget, sched *pipeline.Scheduler, stop func() bool) error {
	start := time.Now()
	judge := pipeline.NewJudge(o.ai, o.validator,
		job.Config.JudgeModel, job.Config.FlagshipModel,
		job.Config.JudgeEscalation, o.defaults.MinImportance, job.Config.SchemaVersion)

	// Canonical candidate order: segment sequence, then extraction order
	// within the segment. Batch boundaries are then stable across resumes.
	var ordered []model.CandidateClaim
	for _, seg := range state.segments {
		ordered = append(ordered, state.candidates[seg.ID]...)
	}
	batches := judge.Batches(ordered)
	if len(batches) == 0 {
		state.claims = nil
		return nil
	}

	units := make([]pipeline.Unit, len(batches))
	for i := range batches {
		units[i] = pipeline.Unit{ID: fmt.Sprintf("batch-%04d", i), Index: i}
	}

	var mu sync.Mutex
	accepted := make([][]model.Claim, len(batches))
	var fatal error
	err := sched.Run(ctx, budget.MaxJudges, units, nil, stop,
		func(ctx context.Context, u pipeline.Unit) error {
			claims, err := judge.JudgeBatch(ctx, run.ID, batches[u.Index])
			if err != nil {
				return err
			}
			mu.Lock()
			accepted[u.Index] = claims
			mu.Unlock()
			return nil
		},
		func(u pipeline.Unit, unitErr error, completed int) {
			mu.Lock()
			defer mu.Unlock()
			if unitErr != nil && errors.Is(unitErr, domain.ErrFatal) && fatal == nil {
				fatal = unitErr
			}
			if unitErr != nil && !errors.Is(unitErr, domain.ErrJobStopped) && !errors.Is(unitErr, domain.ErrFatal) {
				logging.With(ctx, o.log).Warn().Err(unitErr).Str("unit", u.ID).
					Msg("judge batch failed; its candidates are dropped")
			}
			o.progress.Publish(model.StageEvaluating, completed, len(batches))
		})
	if err != nil {
		return err
	}
	if fatal != nil {
		return fatal
	}
	if stop() {
		return fmt.Errorf("judging interrupted: %w", domain.ErrJobStopped)
	}

	var claims []model.Claim
	for _, batch := range accepted {
		claims = append(claims, batch...)
	}
	pipeline.SortClaims(claims)
	state.claims = claims
	// candidates are judged; only the accepted set travels forward
	state.candidates = nil
	metrics.ObserveStageDuration(string(model.StageEvaluating), time.Since(start).Seconds())
	return nil
}

func (o *Orchestrator) runRelating(ctx context.Context, job *model.Job, run *model.JobRun, state *runState, budget model.HardwareBudget, sched *pipeline.Scheduler, stop func() bool) error {
	start := time.Now()
	relator := pipeline.NewRelator(o.ai, o.validator, job.Config.RelatorModel, o.defaults.RelationBatch, job.Config.SchemaVersion)

	clusters := relator.Clusters(state.claims)
	if len(clusters) == 0 {
		state.relations = nil
		return nil
	}
	units := make([]pipeline.Unit, len(clusters))
	for i := range clusters {
		units[i] = pipeline.Unit{ID: fmt.Sprintf("cluster-%04d", i), Index: i}
	}

	var mu sync.Mutex
	found := make([][]model.Relation, len(clusters))
	var fatal error
	err := sched.Run(ctx, budget.MaxJudges, units, nil, stop,
		func(ctx context.Context, u pipeline.Unit) error {
			rels, err := relator.RelateCluster(ctx, run.ID, clusters[u.Index])
			if err != nil {
				return err
			}
			mu.Lock()
			found[u.Index] = rels
			mu.Unlock()
			return nil
		},
		func(u pipeline.Unit, unitErr error, completed int) {
			mu.Lock()
			defer mu.Unlock()
			if unitErr != nil && errors.Is(unitErr, domain.ErrFatal) && fatal == nil {
				fatal = unitErr
			}
			if unitErr != nil && !errors.Is(unitErr, domain.ErrJobStopped) && !errors.Is(unitErr, domain.ErrFatal) {
				logging.With(ctx, o.log).Warn().Err(unitErr).Str("unit", u.ID).
					Msg("relating cluster failed; its edges are dropped")
			}
			o.progress.Publish(model.StageRelating, completed, len(clusters))
		})
	if err != nil {
		return err
	}
	if fatal != nil {
		return fatal
	}
	if stop() {
		return fmt.Errorf("relating interrupted: %w", domain.ErrJobStopped)
	}

	var relations []model.Relation
	for _, batch := range found {
		relations = append(relations, batch...)
	}
	relations = pipeline.DedupeRelations(relations)
	// Deterministic edge order regardless of cluster completion order.
	sort.SliceStable(relations, func(a, b int) bool {
		if relations[a].FromClaimID != relations[b].FromClaimID {
			return relations[a].FromClaimID < relations[b].FromClaimID
		}
		if relations[a].ToClaimID != relations[b].ToClaimID {
			return relations[a].ToClaimID < relations[b].ToClaimID
		}
		return relations[a].Type < relations[b].Type
	})
	state.relations = relations
	metrics.ObserveStageDuration(string(model.StageRelating), time.Since(start).Seconds())
	return nil
}

// finalize persists the claim set atomically, assembles the result and
// writes the completed checkpoint.
func (o *Orchestrator) finalize(ctx context.Context, job *model.Job, run *model.JobRun, state *runState) (*model.JobResult, error) {
	log := logging.With(ctx, o.log)
	if err := o.claims.SaveClaimSet(ctx, run.ID, state.claims, state.relations); err != nil {
		return nil, fmt.Errorf("store claim set: %w", err)
	}

	result := &model.JobResult{
		JobID:         job.ID,
		RunID:         run.ID,
		TotalSegments: len(state.segments),
		MinedSegments: len(state.completed),
		Gaps:          state.gaps,
		Claims:        state.claims,
		Relations:     state.relations,
	}
	if len(state.candidates) > 0 {
		// only mine-only jobs still hold candidates here; judging clears them
		result.Candidates = state.candidates
	}
	if cost, err := o.calls.SumCostByRun(ctx, run.ID); err != nil {
		log.Warn().Err(err).Msg("cost total unavailable, result reports zero cost")
	} else {
		result.CostMicro = cost
	}
	if prompt, completion, err := o.calls.SumTokensByRun(ctx, run.ID); err != nil {
		log.Warn().Err(err).Msg("token totals unavailable, result reports zero tokens")
	} else {
		result.PromptTokens = prompt
		result.CompletionTokens = completion
	}

	run.Status = model.JobRunStatusCompleted
	run.CompletedAt = time.Now()
	run.Checkpoint = &model.Checkpoint{
		Version:          model.CheckpointVersion,
		Stage:            model.StageCompleted,
		TotalUnits:       len(state.segments),
		CompletedUnitIDs: sortedKeys(state.completed),
		FailedUnitIDs:    gapIDs(state.gaps),
		ProgressPercent:  100,
		FinalResult:      result,
	}
	if err := o.runs.SaveOptimistic(ctx, nil, run); err != nil {
		return nil, fmt.Errorf("final checkpoint: %w", err)
	}
	metrics.IncCheckpoint(string(model.StageCompleted))
	o.progress.Publish(model.StageCompleted, len(state.segments), len(state.segments))
	return result, nil
}

// saveCheckpoint snapshots state under the given stage marker and writes
// it with the run row in one optimistic update.
func (o *Orchestrator) saveCheckpoint(ctx context.Context, run *model.JobRun, stage model.Stage, state *runState) error {
	total := len(state.segments)
	done := len(state.completed) + len(state.gaps)
	pct := 0
	if total > 0 {
		pct = done * 100 / total
	}
	if stage.After(model.StageEvaluating) {
		pct = 100
	}

	run.Status = model.JobRunStatusRunning
	run.Checkpoint = &model.Checkpoint{
		Version:          model.CheckpointVersion,
		Stage:            stage,
		TotalUnits:       total,
		CompletedUnitIDs: sortedKeys(state.completed),
		FailedUnitIDs:    gapIDs(state.gaps),
		ProgressPercent:  pct,
		Candidates:       state.candidates,
		Claims:           state.claims,
		Relations:        state.relations,
		Gaps:             state.gaps,
	}
	if err := o.runs.SaveOptimistic(ctx, nil, run); err != nil {
		return fmt.Errorf("checkpoint at %s: %w", stage, err)
	}
	metrics.IncCheckpoint(string(stage))
	return nil
}

func (o *Orchestrator) applyDefaults(cfg *model.JobConfig) {
	d := o.defaults
	if cfg.MinerModel == "" {
		cfg.MinerModel = d.MinerModel
	}
	if cfg.JudgeModel == "" {
		cfg.JudgeModel = d.JudgeModel
	}
	if cfg.FlagshipModel == "" {
		cfg.FlagshipModel = d.FlagshipModel
	}
	if cfg.RelatorModel == "" {
		cfg.RelatorModel = d.RelatorModel
	}
	if cfg.Selectivity == "" {
		cfg.Selectivity = d.Selectivity
	}
	if cfg.JudgeEscalation <= 0 {
		cfg.JudgeEscalation = d.JudgeEscalation
	}
	if cfg.SchemaVersion <= 0 {
		cfg.SchemaVersion = d.SchemaVersion
	}
	if cfg.CostCeilingMicro <= 0 {
		cfg.CostCeilingMicro = d.CostCeilingMicro
	}
}

func (o *Orchestrator) checkpointPercent() int {
	if o.defaults.CheckpointPercent > 0 {
		return o.defaults.CheckpointPercent
	}
	return 10
}

func gapReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrBudgetExceeded):
		return "budget"
	case errors.Is(err, domain.ErrSchema):
		return "schema"
	default:
		return "transient"
	}
}

func gapIDs(gaps []model.SegmentGap) []string {
	if len(gaps) == 0 {
		return nil
	}
	out := make([]string, len(gaps))
	for i, g := range gaps {
		out[i] = g.SegmentID
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
