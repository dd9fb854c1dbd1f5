// File: cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"transcript-miner/internal/config"
	"transcript-miner/internal/domain/model"
	pg "transcript-miner/internal/infra/db/postgres"
)

// ddl is idempotent; re-running the seeder against an existing database
// is a no-op apart from refreshing the demo transcript.
const ddl = `
CREATE TABLE IF NOT EXISTS transcripts (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	segments   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	job_type   TEXT NOT NULL,
	input_id   TEXT NOT NULL,
	config     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS job_runs (
	id           TEXT PRIMARY KEY,
	job_id       TEXT NOT NULL REFERENCES jobs(id),
	status       TEXT NOT NULL,
	checkpoint   JSONB,
	last_error   TEXT,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_runs_job ON job_runs (job_id, started_at DESC);

CREATE TABLE IF NOT EXISTS claims (
	id               TEXT PRIMARY KEY,
	run_id           TEXT NOT NULL REFERENCES job_runs(id),
	canonical_text   TEXT NOT NULL,
	claim_type       TEXT NOT NULL,
	tier             TEXT NOT NULL,
	importance       DOUBLE PRECISION NOT NULL,
	novelty          DOUBLE PRECISION NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL,
	first_mention_ms BIGINT NOT NULL,
	entities         TEXT[] NOT NULL DEFAULT '{}',
	terms            TEXT[] NOT NULL DEFAULT '{}',
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_claims_run ON claims (run_id);

CREATE TABLE IF NOT EXISTS evidence_spans (
	id         TEXT PRIMARY KEY,
	claim_id   TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
	segment_id TEXT NOT NULL,
	start_ms   BIGINT NOT NULL,
	end_ms     BIGINT NOT NULL,
	quote      TEXT NOT NULL,
	context    TEXT
);
CREATE INDEX IF NOT EXISTS idx_evidence_claim ON evidence_spans (claim_id);

CREATE TABLE IF NOT EXISTS relations (
	id            TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL REFERENCES job_runs(id),
	from_claim_id TEXT NOT NULL,
	to_claim_id   TEXT NOT NULL,
	relation_type TEXT NOT NULL,
	strength      DOUBLE PRECISION NOT NULL,
	rationale     TEXT,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_relations_run ON relations (run_id);

CREATE TABLE IF NOT EXISTS llm_calls (
	id                TEXT PRIMARY KEY,
	run_id            TEXT NOT NULL,
	stage             TEXT NOT NULL,
	model             TEXT NOT NULL,
	prompt_tokens     INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	cost_micro        BIGINT NOT NULL,
	duration_ms       INTEGER NOT NULL,
	attempt           INTEGER NOT NULL,
	status            TEXT NOT NULL,
	error_kind        TEXT,
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_llm_calls_run ON llm_calls (run_id);
`

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	withDemo := flag.Bool("demo", true, "also upsert a demo transcript")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, ddl); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	fmt.Println("schema applied")

	if !*withDemo {
		return
	}

	transcripts := pg.NewTranscriptRepo(pool)
	demo := demoTranscript()
	if err := transcripts.Save(ctx, nil, demo); err != nil {
		log.Fatalf("seed transcript: %v", err)
	}
	fmt.Printf("seeded transcript %q (%d segments)\n", demo.ID, len(demo.Segments))
}

func demoTranscript() *model.Transcript {
	lines := []struct {
		speaker string
		text    string
	}{
		{"host", "Welcome back. Today we are digging into battery supply chains."},
		{"guest", "Thanks for having me. The headline is that lithium refining capacity doubled since 2023."},
		{"guest", "Most of that new capacity sits in three provinces, which concentrates geopolitical risk."},
		{"host", "Does that change your price forecast?"},
		{"guest", "I expect cell prices to fall under eighty dollars per kilowatt hour by 2027."},
		{"guest", "The caveat is anode-grade graphite. Synthetic graphite is still energy hungry to produce."},
		{"host", "So cheaper cells, but a new bottleneck upstream."},
		{"guest", "Exactly. Recycling volumes will not move the needle before the early 2030s."},
	}

	t := &model.Transcript{
		ID:    "demo-battery-podcast",
		Title: "Battery Supply Chains, Episode 14",
	}
	start := time.Duration(0)
	for i, l := range lines {
		end := start + 9*time.Second
		t.Segments = append(t.Segments, model.Segment{
			ID:        fmt.Sprintf("%s-seg-%04d", t.ID, i+1),
			Sequence:  i + 1,
			Speaker:   l.speaker,
			StartTime: start,
			EndTime:   end,
			Text:      l.text,
		})
		start = end
	}
	return t
}
