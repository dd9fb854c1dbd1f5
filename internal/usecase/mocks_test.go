package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"transcript-miner/internal/domain"
	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/domain/ports/adapter"
	"transcript-miner/internal/domain/ports/repository"
)

// --- repositories ---

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func newMemJobRepo() *memJobRepo { return &memJobRepo{jobs: map[string]*model.Job{}} }

func (r *memJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

// memRunRepo mirrors the postgres repo's optimistic behavior: saves carry
// the previously-read updated_at and fail on mismatch. Checkpoints are
// snapshotted through JSON like the real row is.
type memRunRepo struct {
	mu         sync.Mutex
	runs       map[string]*model.JobRun
	byJob      map[string][]string
	conflict   bool // force the next SaveOptimistic to conflict
	dropWrites bool // emulate a dying process: saves fail and persist nothing
	saves      int
}

func newMemRunRepo() *memRunRepo {
	return &memRunRepo{runs: map[string]*model.JobRun{}, byJob: map[string][]string{}}
}

func (r *memRunRepo) Create(ctx context.Context, tx repository.Tx, run *model.JobRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs[run.ID] = &cp
	r.byJob[run.JobID] = append(r.byJob[run.JobID], run.ID)
	return nil
}

func (r *memRunRepo) FindLatestByJob(ctx context.Context, tx repository.Tx, jobID string) (*model.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.byJob[jobID]
	if len(ids) == 0 {
		return nil, domain.ErrNotFound
	}
	cp := *r.runs[ids[len(ids)-1]]
	return &cp, nil
}

func (r *memRunRepo) SaveOptimistic(ctx context.Context, tx repository.Tx, run *model.JobRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflict {
		r.conflict = false
		return domain.ErrConcurrentModification
	}
	if r.dropWrites {
		return fmt.Errorf("connection to database lost")
	}
	stored, ok := r.runs[run.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if !stored.UpdatedAt.Equal(run.UpdatedAt) {
		return domain.ErrConcurrentModification
	}
	now := time.Now()
	if !now.After(run.UpdatedAt) {
		now = run.UpdatedAt.Add(time.Microsecond)
	}
	cp := *run
	cp.UpdatedAt = now
	cp.Checkpoint = snapshotCheckpoint(run.Checkpoint)
	r.runs[run.ID] = &cp
	run.UpdatedAt = now
	r.saves++
	return nil
}

func (r *memRunRepo) setDropWrites(v bool) {
	r.mu.Lock()
	r.dropWrites = v
	r.mu.Unlock()
}

func snapshotCheckpoint(cp *model.Checkpoint) *model.Checkpoint {
	if cp == nil {
		return nil
	}
	b, _ := json.Marshal(cp)
	var out model.Checkpoint
	_ = json.Unmarshal(b, &out)
	return &out
}

type memTranscriptRepo struct {
	mu          sync.Mutex
	transcripts map[string]*model.Transcript
}

func newMemTranscriptRepo() *memTranscriptRepo {
	return &memTranscriptRepo{transcripts: map[string]*model.Transcript{}}
}

func (r *memTranscriptRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transcript) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcripts[t.ID] = t
	return nil
}

func (r *memTranscriptRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transcript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transcripts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

// memClaimRepo enforces the claims primary key the way the real table
// does, and mirrors the repo's delete-then-insert transaction: saving a
// run's claim set replaces that run's rows rather than appending.
type memClaimRepo struct {
	mu        sync.Mutex
	claims    map[string][]model.Claim
	relations map[string][]model.Relation
	owner     map[string]string // claim id -> run id
	saveCalls int
	onSave    func() // fires after a successful save
}

func newMemClaimRepo() *memClaimRepo {
	return &memClaimRepo{
		claims:    map[string][]model.Claim{},
		relations: map[string][]model.Relation{},
		owner:     map[string]string{},
	}
}

func (r *memClaimRepo) SaveClaimSet(ctx context.Context, runID string, claims []model.Claim, relations []model.Relation) error {
	r.mu.Lock()
	for _, c := range r.claims[runID] {
		delete(r.owner, c.ID)
	}
	for _, c := range claims {
		if _, taken := r.owner[c.ID]; taken {
			r.mu.Unlock()
			return fmt.Errorf("duplicate key value violates unique constraint %q", "claims_pkey")
		}
		r.owner[c.ID] = runID
	}
	r.claims[runID] = claims
	r.relations[runID] = relations
	r.saveCalls++
	hook := r.onSave
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (r *memClaimRepo) FindByRun(ctx context.Context, tx repository.Tx, runID string) ([]model.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claims[runID], nil
}

func (r *memClaimRepo) FindRelationsByRun(ctx context.Context, tx repository.Tx, runID string) ([]model.Relation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.relations[runID], nil
}

type memCallRepo struct {
	mu     sync.Mutex
	calls  []*model.LLMCall
	sumErr error // force the aggregate queries to fail
}

func (r *memCallRepo) Record(ctx context.Context, call *model.LLMCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return nil
}

func (r *memCallRepo) SumCostByRun(ctx context.Context, runID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sumErr != nil {
		return 0, r.sumErr
	}
	var sum int64
	for _, c := range r.calls {
		if c.RunID == runID {
			sum += c.CostMicro
		}
	}
	return sum, nil
}

func (r *memCallRepo) SumTokensByRun(ctx context.Context, runID string) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sumErr != nil {
		return 0, 0, r.sumErr
	}
	var prompt, completion int
	for _, c := range r.calls {
		if c.RunID == runID {
			prompt += c.PromptTokens
			completion += c.CompletionTokens
		}
	}
	return prompt, completion, nil
}

// --- inference client ---

// stubAI produces well-formed stage responses and counts every prompt, so
// tests can assert that no segment is ever billed twice.
type stubAI struct {
	mu            sync.Mutex
	miningPrompts map[string]int
	stageCalls    map[model.Stage]int
	failMatch     string // mining prompts containing this always fail
	failWith      error
	budgetAll     bool // every call blocked at the cost ceiling
	onMiningCall  func(n int)
}

func newStubAI() *stubAI {
	return &stubAI{
		miningPrompts: map[string]int{},
		stageCalls:    map[model.Stage]int{},
	}
}

func (s *stubAI) Call(ctx context.Context, runID string, stage model.Stage, modelName string, messages []adapter.Message) (string, adapter.Usage, error) {
	user := messages[len(messages)-1].Content

	s.mu.Lock()
	s.stageCalls[stage]++
	miningN := s.stageCalls[model.StageMining]
	hook := s.onMiningCall
	if stage == model.StageMining {
		s.miningPrompts[user]++
	}
	s.mu.Unlock()

	if s.budgetAll {
		return "", adapter.Usage{}, fmt.Errorf("%w: ceiling reached", domain.ErrBudgetExceeded)
	}

	usage := adapter.Usage{PromptTokens: 40, CompletionTokens: 20, TotalTokens: 60}
	switch stage {
	case model.StageMining:
		if s.failMatch != "" && strings.Contains(user, s.failMatch) {
			return "", adapter.Usage{}, s.failWith
		}
		if hook != nil {
			hook(miningN)
		}
		// one claim per segment, named after the segment's last line
		lines := strings.Split(strings.TrimRight(user, "\n"), "\n")
		subject := lines[len(lines)-1]
		return fmt.Sprintf(`{"claims":[{"text":"claim: %s","type":"factual","quote":"%s"}]}`, subject, subject), usage, nil

	case model.StageEvaluating:
		n := strings.Count(user, "\n") - 1 // "Candidates:" header line
		var verdicts []string
		for i := 0; i < n; i++ {
			verdicts = append(verdicts, fmt.Sprintf(`{"index":%d,"importance":0.8,"novelty":0.5,"confidence":0.9}`, i))
		}
		return fmt.Sprintf(`{"verdicts":[%s]}`, strings.Join(verdicts, ",")), usage, nil

	case model.StageRelating:
		n := strings.Count(user, "\n") - 1
		if n < 2 {
			return `{"relations":[]}`, usage, nil
		}
		return `{"relations":[{"from":"c1","to":"c2","type":"supports","strength":0.9,"rationale":"stub"}]}`, usage, nil
	}
	return "", adapter.Usage{}, fmt.Errorf("%w: unexpected stage %s", domain.ErrFatal, stage)
}

func (s *stubAI) CountTokens(ctx context.Context, modelName string, messages []adapter.Message) (int, error) {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / 4
	}
	return total, nil
}

func (s *stubAI) SpentMicro() int64 { return 0 }

func (s *stubAI) miningCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stageCalls[model.StageMining]
}

func (s *stubAI) callsFor(stage model.Stage) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stageCalls[stage]
}

func (s *stubAI) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.stageCalls {
		total += n
	}
	return total
}

func (s *stubAI) maxPromptRepeats() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for _, n := range s.miningPrompts {
		if n > max {
			max = n
		}
	}
	return max
}
