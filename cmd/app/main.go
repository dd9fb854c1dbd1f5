// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transcript-miner/internal/config"
	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/domain/ports/adapter"
	aiAdapters "transcript-miner/internal/infra/adapters/ai"
	"transcript-miner/internal/infra/api"
	pg "transcript-miner/internal/infra/db/postgres"
	"transcript-miner/internal/infra/hardware"
	"transcript-miner/internal/infra/logging"
	"transcript-miner/internal/infra/metrics"
	red "transcript-miner/internal/infra/redis"
	"transcript-miner/internal/infra/worker"
	"transcript-miner/internal/pipeline"
	"transcript-miner/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed limits)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Runtime.Dev {
		log.Printf("[DEV MODE] Enabled")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Hardware budget ----
	profiler := hardware.NewProfiler()
	budget := profiler.Budget().Clamp(cfg.Budget.WorkerOverride)
	logger.Info().
		Str("tier", string(budget.Tier)).
		Int("max_miners", budget.MaxMiners).
		Int("max_in_flight", budget.MaxInFlight).
		Msg("hardware budget")

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	jobRepo := pg.NewJobRepo(pool)
	runRepo := pg.NewJobRunRepo(pool)
	transcriptRepo := pg.NewTranscriptRepo(pool)
	claimRepo := pg.NewClaimRepo(pool, tm)
	callRepo := pg.NewLLMCallRepo(pool)

	// ---- Rate limiter (Redis shared window, in-process fallback) ----
	var limiter aiAdapters.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
		log.Printf("rate limiter: redis addr=%s", cfg.Redis.URL)
	} else {
		limiter = aiAdapters.NewLocalRateLimiter()
		log.Printf("rate limiter: in-process (redis.url not set)")
	}

	// ---- AI backends ----
	byProvider := map[string]adapter.AIServiceAdapter{}
	if cfg.AI.OpenAIKey != "" {
		openAI, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.MinerModel, cfg.AI.MaxOutputTokens)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
		byProvider["openai"] = openAI
		log.Printf("AI backend: OpenAI model=%s", cfg.AI.MinerModel)
	}
	if cfg.AI.GeminiKey != "" {
		gemini, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.MinerModel, cfg.AI.MaxOutputTokens)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
		byProvider["gemini"] = gemini
		log.Printf("AI backend: Gemini base=%s", cfg.AI.GeminiURL)
	}
	if len(byProvider) == 0 {
		log.Fatalf("no AI backend configured: set ai.openai_key or ai.gemini_key in %s", *cfgPath)
	}
	multi := aiAdapters.NewMultiAIAdapter(cfg.AI.DefaultProvider, byProvider, nil)

	limited := aiAdapters.NewLimitedAI(multi, aiAdapters.LimitedOptions{
		MaxConcurrent:    budget.MaxInFlight,
		RequestsPerMin:   cfg.AI.RequestsPerMin,
		CallTimeout:      cfg.Pipeline.CallTimeout,
		MaxAttempts:      cfg.Pipeline.MaxAttempts,
		CostCeilingMicro: cfg.Pipeline.CostCeilingMicro,
		Costs:            defaultCostTable(),
		Limiter:          limiter,
		Calls:            callRepo,
	}, logger)

	// ---- Orchestrator ----
	orch := usecase.NewOrchestrator(jobRepo, runRepo, transcriptRepo, claimRepo, callRepo, limited, profiler, usecase.Defaults{
		MinerModel:        cfg.AI.MinerModel,
		JudgeModel:        cfg.AI.JudgeModel,
		FlagshipModel:     cfg.AI.FlagshipModel,
		RelatorModel:      cfg.AI.RelatorModel,
		Selectivity:       model.Selectivity(cfg.Pipeline.Selectivity),
		JudgeEscalation:   cfg.Pipeline.JudgeEscalation,
		MinImportance:     cfg.Pipeline.MinImportance,
		SchemaVersion:     cfg.Pipeline.SchemaVersion,
		CheckpointPercent: cfg.Pipeline.CheckpointPercent,
		RelationBatch:     cfg.Pipeline.RelationBatch,
		CostCeilingMicro:  cfg.Pipeline.CostCeilingMicro,
	}, logger)

	progress := pipeline.NewProgress(0)
	orch.SetProgress(progress)
	go func() {
		for ev := range progress.Events() {
			logger.Debug().
				Str("stage", string(ev.Stage)).
				Int("done", ev.Done).
				Int("total", ev.Total).
				Int("percent", ev.Percent).
				Msg("progress")
		}
	}()

	// ---- Job worker pool ----
	jobPool := worker.NewPool(budget.MaxMiners, logger)
	jobPool.Start(ctx)
	defer jobPool.Stop()

	// ---- API server ----
	apiSrv := api.NewServer(orch, jobPool, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      apiSrv.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		log.Printf("api listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("api server error: %v", err)
		}
	}()

	// ---- Admin server (metrics + health) ----
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	admin := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Admin.Port), Handler: adminMux}
	go func() {
		log.Printf("admin listening on %s", admin.Addr)
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("admin server error: %v", err)
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	log.Println("shutdown requested")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = server.Shutdown(shutCtx)
	_ = admin.Shutdown(shutCtx)
	cancel()
}

// defaultCostTable prices the configured model families in micro-dollars
// per token, rounded up from published per-million rates. Unknown models
// cost zero; the budget ceiling then only bounds known spend.
func defaultCostTable() aiAdapters.CostTable {
	return aiAdapters.CostTable{
		"gpt-4o":           {InputMicroPerTok: 3, OutputMicroPerTok: 10},
		"gpt-4o-mini":      {InputMicroPerTok: 1, OutputMicroPerTok: 1},
		"o1":               {InputMicroPerTok: 15, OutputMicroPerTok: 60},
		"gemini-2.0-flash": {InputMicroPerTok: 1, OutputMicroPerTok: 1},
		"gemini-1.5-pro":   {InputMicroPerTok: 2, OutputMicroPerTok: 5},
	}
}
