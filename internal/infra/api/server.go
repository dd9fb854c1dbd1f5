package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"transcript-miner/internal/domain"
	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/infra/logging"
	"transcript-miner/internal/infra/worker"
)

// JobService is the slice of the orchestrator the HTTP layer consumes.
type JobService interface {
	CreateJob(ctx context.Context, jobType model.JobType, inputID string, cfg model.JobConfig) (*model.Job, error)
	ProcessJob(ctx context.Context, jobID string, resume bool) (*model.JobResult, error)
	StopJob(jobID string) bool
	JobStatus(ctx context.Context, jobID string) (*model.Job, *model.JobRun, error)
}

// Server exposes job submission and control. Processing runs on the
// background pool; process requests return 202 and callers poll the job.
type Server struct {
	svc  JobService
	pool *worker.Pool
	log  *zerolog.Logger
}

func NewServer(svc JobService, pool *worker.Pool, log *zerolog.Logger) *Server {
	return &Server{svc: svc, pool: pool, log: log}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Route("/api/v1/jobs", func(r chi.Router) {
		r.Post("/", s.handleCreateJob)
		r.Get("/{id}", s.handleGetJob)
		r.Post("/{id}/process", s.handleProcessJob)
		r.Post("/{id}/stop", s.handleStopJob)
	})
	return Chain(r, TraceID(), Recover(s.log), RequestLog(s.log))
}

type createJobRequest struct {
	Type    string          `json:"type"`
	InputID string          `json:"input_id"`
	Config  model.JobConfig `json:"config"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, domain.ErrInvalidArgument)
		return
	}
	job, err := s.svc.CreateJob(r.Context(), model.JobType(req.Type), req.InputID, req.Config)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"job_id":     job.ID,
		"type":       job.Type,
		"input_id":   job.InputID,
		"created_at": job.CreatedAt,
	})
}

type processJobRequest struct {
	Resume bool `json:"resume"`
}

func (s *Server) handleProcessJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	var req processJobRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, domain.ErrInvalidArgument)
			return
		}
	}

	// Existence check up front so the async path can't 202 a bogus id.
	if _, _, err := s.svc.JobStatus(r.Context(), jobID); err != nil {
		s.writeError(w, r, err)
		return
	}

	// Detached context: the run outlives this request.
	runCtx := logging.WithJobID(context.Background(), jobID)
	err := s.pool.Submit(func(ctx context.Context) error {
		_, err := s.svc.ProcessJob(runCtx, jobID, req.Resume)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": "processing",
		"resume": req.Resume,
	})
}

func (s *Server) handleStopJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if _, _, err := s.svc.JobStatus(r.Context(), jobID); err != nil {
		s.writeError(w, r, err)
		return
	}
	stopped := s.svc.StopJob(jobID)
	if !stopped {
		s.writeJSON(w, http.StatusConflict, map[string]any{
			"job_id": jobID,
			"error":  "no run in progress",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"job_id":  jobID,
		"stopped": true,
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, run, err := s.svc.JobStatus(r.Context(), jobID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := map[string]any{
		"job_id":     job.ID,
		"type":       job.Type,
		"input_id":   job.InputID,
		"config":     job.Config,
		"created_at": job.CreatedAt,
	}
	if run != nil {
		runInfo := map[string]any{
			"run_id":     run.ID,
			"status":     run.Status,
			"started_at": run.StartedAt,
		}
		if run.LastError != "" {
			runInfo["last_error"] = run.LastError
		}
		if cp := run.Checkpoint; cp != nil {
			runInfo["stage"] = cp.Stage
			runInfo["progress_percent"] = cp.ProgressPercent
			if cp.FinalResult != nil {
				runInfo["result"] = cp.FinalResult
				runInfo["summary"] = cp.FinalResult.Summary()
			}
		}
		resp["run"] = runInfo
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConcurrentModification):
		code = http.StatusConflict
	case errors.Is(err, worker.ErrQueueFull):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("request failed")
	}
	s.writeJSON(w, code, map[string]any{"error": err.Error()})
}
