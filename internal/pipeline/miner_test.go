package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"transcript-miner/internal/domain"
	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/domain/ports/adapter"
	"transcript-miner/internal/pipeline/schema"
)

var testSegment = model.Segment{
	ID:        "ep1-seg-0003",
	Sequence:  3,
	Speaker:   "host",
	StartTime: 90 * time.Second,
	EndTime:   120 * time.Second,
	Text:      "Solid state batteries will halve charging times by 2030.",
}

func TestMineSegmentProducesCandidates(t *testing.T) {
	ai := &scriptedAI{handler: func(stage model.Stage, modelName string, messages []adapter.Message) (string, error) {
		if stage != model.StageMining {
			t.Fatalf("call stage = %s, want %s", stage, model.StageMining)
		}
		if !strings.Contains(messages[1].Content, testSegment.Text) {
			t.Fatal("user message does not carry the segment text")
		}
		return `{"claims":[
			{"text":"Solid state batteries will halve charging times by 2030","type":"forecast","quote":"will halve charging times by 2030","entities":["solid state batteries"],"terms":["charging time"]},
			{"text":"Charging speed is the main adoption blocker","type":"wild-guess","quote":""}
		]}`, nil
	}}
	m := NewMiner(ai, schema.NewValidator(), "miner-model", model.SelectivityModerate, 1)

	cands, err := m.MineSegment(context.Background(), "run-1", testSegment)
	if err != nil {
		t.Fatalf("MineSegment: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}
	if cands[0].Type != model.ClaimTypeForecast {
		t.Fatalf("candidate 0 type = %s, want forecast", cands[0].Type)
	}
	// unrecognized type coerces to factual instead of failing the segment
	if cands[1].Type != model.ClaimTypeFactual {
		t.Fatalf("candidate 1 type = %s, want factual", cands[1].Type)
	}
	for _, c := range cands {
		if c.SegmentID != testSegment.ID || c.Sequence != testSegment.Sequence {
			t.Fatalf("candidate not attributed to source segment: %+v", c)
		}
		if c.FirstMention != testSegment.StartTime {
			t.Fatalf("first mention = %v, want segment start %v", c.FirstMention, testSegment.StartTime)
		}
	}
}

func TestMineSegmentSchemaFailure(t *testing.T) {
	ai := &scriptedAI{handler: func(model.Stage, string, []adapter.Message) (string, error) {
		return "I could not find any claims, sorry!", nil
	}}
	m := NewMiner(ai, schema.NewValidator(), "miner-model", model.SelectivityLiberal, 1)

	_, err := m.MineSegment(context.Background(), "run-1", testSegment)
	if !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("MineSegment = %v, want ErrSchema", err)
	}
}

func TestMineSegmentPolicyVariesWithSelectivity(t *testing.T) {
	var prompts []string
	ai := &scriptedAI{handler: func(_ model.Stage, _ string, messages []adapter.Message) (string, error) {
		prompts = append(prompts, messages[1].Content)
		return `{"claims":[]}`, nil
	}}
	for _, sel := range []model.Selectivity{model.SelectivityLiberal, model.SelectivityConservative} {
		m := NewMiner(ai, schema.NewValidator(), "miner-model", sel, 1)
		if _, err := m.MineSegment(context.Background(), "run-1", testSegment); err != nil {
			t.Fatalf("MineSegment(%s): %v", sel, err)
		}
	}
	if prompts[0] == prompts[1] {
		t.Fatal("liberal and conservative selectivity produced identical prompts")
	}
}
