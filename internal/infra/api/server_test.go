package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"transcript-miner/internal/domain"
	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/infra/worker"
)

type stubJobService struct {
	mu        sync.Mutex
	jobs      map[string]*model.Job
	runs      map[string]*model.JobRun
	processed chan string
	stopOK    bool
}

func newStubJobService() *stubJobService {
	return &stubJobService{
		jobs:      map[string]*model.Job{},
		runs:      map[string]*model.JobRun{},
		processed: make(chan string, 8),
	}
}

func (s *stubJobService) CreateJob(ctx context.Context, jobType model.JobType, inputID string, cfg model.JobConfig) (*model.Job, error) {
	if inputID == "" {
		return nil, domain.ErrInvalidArgument
	}
	job := &model.Job{ID: "job-1", Type: jobType, InputID: inputID, Config: cfg, CreatedAt: time.Now()}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job, nil
}

func (s *stubJobService) ProcessJob(ctx context.Context, jobID string, resume bool) (*model.JobResult, error) {
	s.processed <- jobID
	return &model.JobResult{JobID: jobID}, nil
}

func (s *stubJobService) StopJob(jobID string) bool { return s.stopOK }

func (s *stubJobService) JobStatus(ctx context.Context, jobID string) (*model.Job, *model.JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	return job, s.runs[jobID], nil
}

func newTestServer(t *testing.T, svc *stubJobService) (*httptest.Server, *worker.Pool) {
	t.Helper()
	log := zerolog.Nop()
	pool := worker.NewPool(1, &log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	pool.Start(ctx)

	srv := httptest.NewServer(NewServer(svc, pool, &log).Router())
	t.Cleanup(srv.Close)
	return srv, pool
}

func TestCreateJobEndpoint(t *testing.T) {
	svc := newStubJobService()
	srv, _ := newTestServer(t, svc)

	body := `{"type":"full-pipeline","input_id":"ep1","config":{"selectivity":"liberal"}}`
	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["job_id"] != "job-1" {
		t.Fatalf("job_id = %v", out["job_id"])
	}
}

func TestCreateJobEndpointBadBody(t *testing.T) {
	svc := newStubJobService()
	srv, _ := newTestServer(t, svc)

	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestProcessJobEndpointRunsInBackground(t *testing.T) {
	svc := newStubJobService()
	svc.jobs["job-1"] = &model.Job{ID: "job-1"}
	srv, _ := newTestServer(t, svc)

	resp, err := http.Post(srv.URL+"/api/v1/jobs/job-1/process", "application/json", strings.NewReader(`{"resume":true}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	select {
	case id := <-svc.processed:
		if id != "job-1" {
			t.Fatalf("processed job %s, want job-1", id)
		}
	case <-time.After(time.Second):
		t.Fatal("background processing never ran")
	}
}

func TestProcessJobEndpointUnknownJob(t *testing.T) {
	svc := newStubJobService()
	srv, _ := newTestServer(t, svc)

	resp, err := http.Post(srv.URL+"/api/v1/jobs/nope/process", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStopJobEndpoint(t *testing.T) {
	svc := newStubJobService()
	svc.jobs["job-1"] = &model.Job{ID: "job-1"}
	srv, _ := newTestServer(t, svc)

	resp, err := http.Post(srv.URL+"/api/v1/jobs/job-1/stop", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("idle stop status = %d, want 409", resp.StatusCode)
	}

	svc.stopOK = true
	resp, err = http.Post(srv.URL+"/api/v1/jobs/job-1/stop", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d, want 200", resp.StatusCode)
	}
}

func TestGetJobEndpoint(t *testing.T) {
	svc := newStubJobService()
	svc.jobs["job-1"] = &model.Job{ID: "job-1", Type: model.JobTypeFullPipeline, InputID: "ep1"}
	svc.runs["job-1"] = &model.JobRun{
		ID:     "run-1",
		JobID:  "job-1",
		Status: model.JobRunStatusCompleted,
		Checkpoint: &model.Checkpoint{
			Version:         model.CheckpointVersion,
			Stage:           model.StageCompleted,
			ProgressPercent: 100,
			FinalResult:     &model.JobResult{JobID: "job-1", RunID: "run-1", TotalSegments: 3, MinedSegments: 3},
		},
	}
	srv, _ := newTestServer(t, svc)

	resp, err := http.Get(srv.URL + "/api/v1/jobs/job-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out struct {
		JobID string `json:"job_id"`
		Run   struct {
			RunID   string `json:"run_id"`
			Status  string `json:"status"`
			Stage   string `json:"stage"`
			Summary string `json:"summary"`
		} `json:"run"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Run.Stage != "completed" || out.Run.Summary != "completed with 3/3 segments processed" {
		t.Fatalf("run payload = %+v", out.Run)
	}
}

func TestHealthEndpoint(t *testing.T) {
	svc := newStubJobService()
	srv, _ := newTestServer(t, svc)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Trace-Id") == "" {
		t.Fatal("trace id header missing")
	}
}
