package pipeline

import (
	"errors"
	"testing"
	"time"

	"transcript-miner/internal/domain"
	"transcript-miner/internal/domain/model"
)

func TestPrepareSegmentsSortsAndFillsIDs(t *testing.T) {
	tr := &model.Transcript{
		ID: "ep42",
		Segments: []model.Segment{
			{Sequence: 2, StartTime: 60 * time.Second, EndTime: 90 * time.Second, Text: "second"},
			{Sequence: 1, StartTime: 30 * time.Second, EndTime: 60 * time.Second, Text: "first"},
			{ID: "custom", Sequence: 3, StartTime: 90 * time.Second, EndTime: 120 * time.Second, Text: "third"},
		},
	}
	segs, err := PrepareSegments(tr)
	if err != nil {
		t.Fatalf("PrepareSegments: %v", err)
	}
	if segs[0].Sequence != 1 || segs[1].Sequence != 2 || segs[2].Sequence != 3 {
		t.Fatalf("segments not in sequence order: %+v", segs)
	}
	if segs[0].ID != "ep42-seg-0001" {
		t.Fatalf("generated id = %s, want ep42-seg-0001", segs[0].ID)
	}
	if segs[2].ID != "custom" {
		t.Fatalf("existing id was overwritten: %s", segs[2].ID)
	}
	// input slice untouched
	if tr.Segments[0].Sequence != 2 {
		t.Fatal("PrepareSegments mutated the input transcript")
	}
}

func TestPrepareSegmentsRejectsBadInput(t *testing.T) {
	cases := map[string]*model.Transcript{
		"nil transcript": nil,
		"no segments":    {ID: "t"},
		"empty text": {ID: "t", Segments: []model.Segment{
			{Sequence: 1, Text: "  "},
		}},
		"ends before start": {ID: "t", Segments: []model.Segment{
			{Sequence: 1, StartTime: 10 * time.Second, EndTime: 5 * time.Second, Text: "x"},
		}},
		"duplicate sequence": {ID: "t", Segments: []model.Segment{
			{Sequence: 1, Text: "a"},
			{Sequence: 1, Text: "b"},
		}},
	}
	for name, tr := range cases {
		if _, err := PrepareSegments(tr); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("%s: err = %v, want ErrInvalidArgument", name, err)
		}
	}
}
