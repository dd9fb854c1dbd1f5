package pipeline

import (
	"context"
	"fmt"
	"testing"

	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/domain/ports/adapter"
	"transcript-miner/internal/pipeline/schema"
)

func acceptedClaims(n int) []model.Claim {
	out := make([]model.Claim, n)
	for i := range out {
		out[i] = model.Claim{
			ID:            fmt.Sprintf("claim-%d", i),
			RunID:         "run-1",
			CanonicalText: fmt.Sprintf("accepted claim %d", i),
			Type:          model.ClaimTypeFactual,
			Tier:          model.TierB,
		}
	}
	return out
}

func TestRelateClusterMapsAliasesBack(t *testing.T) {
	ai := &scriptedAI{handler: func(stage model.Stage, modelName string, _ []adapter.Message) (string, error) {
		if stage != model.StageRelating {
			t.Fatalf("call stage = %s, want %s", stage, model.StageRelating)
		}
		return `{"relations":[
			{"from":"c1","to":"c2","type":"supports","strength":0.8,"rationale":"same mechanism"},
			{"from":"c2","to":"c1","type":"contradicts","strength":0.6,"rationale":"opposite direction"}
		]}`, nil
	}}
	r := NewRelator(ai, schema.NewValidator(), "relator-model", 12, 1)

	rels, err := r.RelateCluster(context.Background(), "run-1", acceptedClaims(3))
	if err != nil {
		t.Fatalf("RelateCluster: %v", err)
	}
	if len(rels) != 2 {
		t.Fatalf("got %d relations, want 2", len(rels))
	}
	if rels[0].FromClaimID != "claim-0" || rels[0].ToClaimID != "claim-1" {
		t.Fatalf("edge endpoints = %s -> %s, want claim-0 -> claim-1", rels[0].FromClaimID, rels[0].ToClaimID)
	}
	// mutual edges form a cycle; both survive
	if rels[1].FromClaimID != "claim-1" || rels[1].ToClaimID != "claim-0" {
		t.Fatalf("reverse edge endpoints = %s -> %s, want claim-1 -> claim-0", rels[1].FromClaimID, rels[1].ToClaimID)
	}
	if rels[1].Type != model.RelationContradicts {
		t.Fatalf("reverse edge type = %s, want contradicts", rels[1].Type)
	}
}

func TestRelateClusterDiscardsUnknownAliases(t *testing.T) {
	ai := &scriptedAI{handler: func(stage model.Stage, modelName string, _ []adapter.Message) (string, error) {
		return `{"relations":[
			{"from":"c1","to":"c99","type":"supports","strength":0.9},
			{"from":"c9000","to":"c2","type":"refines","strength":0.5},
			{"from":"c1","to":"c2","type":"depends_on","strength":0.7}
		]}`, nil
	}}
	r := NewRelator(ai, schema.NewValidator(), "relator-model", 12, 1)

	rels, err := r.RelateCluster(context.Background(), "run-1", acceptedClaims(2))
	if err != nil {
		t.Fatalf("RelateCluster: %v", err)
	}
	if len(rels) != 1 {
		t.Fatalf("got %d relations, want 1 (hallucinated ids discarded)", len(rels))
	}
	if rels[0].Type != model.RelationDependsOn {
		t.Fatalf("surviving edge type = %s, want depends_on", rels[0].Type)
	}
}

func TestRelatorClusters(t *testing.T) {
	r := NewRelator(nil, nil, "m", 8, 1)

	if got := r.Clusters(acceptedClaims(1)); got != nil {
		t.Fatalf("single claim produced %d clusters, want none", len(got))
	}
	if got := r.Clusters(acceptedClaims(5)); len(got) != 1 || len(got[0]) != 5 {
		t.Fatalf("small set should be one cluster of 5, got %v clusters", len(got))
	}

	clusters := r.Clusters(acceptedClaims(20))
	if len(clusters) < 3 {
		t.Fatalf("got %d clusters for 20 claims at batch 8, want >= 3", len(clusters))
	}
	seen := map[string]bool{}
	for _, cl := range clusters {
		if len(cl) > 8 {
			t.Fatalf("cluster size %d exceeds batch size 8", len(cl))
		}
		for _, c := range cl {
			seen[c.ID] = true
		}
	}
	if len(seen) != 20 {
		t.Fatalf("clusters cover %d distinct claims, want all 20", len(seen))
	}
	// consecutive clusters overlap so boundary pairs get judged together
	first, second := clusters[0], clusters[1]
	overlap := 0
	inFirst := map[string]bool{}
	for _, c := range first {
		inFirst[c.ID] = true
	}
	for _, c := range second {
		if inFirst[c.ID] {
			overlap++
		}
	}
	if overlap == 0 {
		t.Fatal("consecutive clusters do not overlap")
	}
}

func TestDedupeRelationsKeepsStrongest(t *testing.T) {
	rels := []model.Relation{
		{FromClaimID: "a", ToClaimID: "b", Type: model.RelationSupports, Strength: 0.5},
		{FromClaimID: "a", ToClaimID: "b", Type: model.RelationSupports, Strength: 0.9},
		{FromClaimID: "a", ToClaimID: "b", Type: model.RelationContradicts, Strength: 0.4},
		{FromClaimID: "b", ToClaimID: "a", Type: model.RelationSupports, Strength: 0.3},
	}
	out := DedupeRelations(rels)
	if len(out) != 3 {
		t.Fatalf("got %d relations after dedupe, want 3", len(out))
	}
	if out[0].Strength != 0.9 {
		t.Fatalf("kept strength = %v, want the stronger 0.9", out[0].Strength)
	}
}
