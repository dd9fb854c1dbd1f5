package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"transcript-miner/internal/domain"
	"transcript-miner/internal/domain/model"
)

// PrepareSegments validates and canonicalizes the upstream transcript:
// segments sorted by sequence, ids filled in, empty text rejected.
// The result is the immutable unit list the whole run operates on.
func PrepareSegments(t *model.Transcript) ([]model.Segment, error) {
	if t == nil || len(t.Segments) == 0 {
		return nil, fmt.Errorf("%w: transcript has no segments", domain.ErrInvalidArgument)
	}

	segs := make([]model.Segment, len(t.Segments))
	copy(segs, t.Segments)
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Sequence < segs[j].Sequence })

	seen := make(map[int]struct{}, len(segs))
	for i := range segs {
		s := &segs[i]
		if strings.TrimSpace(s.Text) == "" {
			return nil, fmt.Errorf("%w: segment %d has empty text", domain.ErrInvalidArgument, s.Sequence)
		}
		if s.EndTime < s.StartTime {
			return nil, fmt.Errorf("%w: segment %d ends before it starts", domain.ErrInvalidArgument, s.Sequence)
		}
		if _, dup := seen[s.Sequence]; dup {
			return nil, fmt.Errorf("%w: duplicate segment sequence %d", domain.ErrInvalidArgument, s.Sequence)
		}
		seen[s.Sequence] = struct{}{}
		if s.ID == "" {
			s.ID = fmt.Sprintf("%s-seg-%04d", t.ID, s.Sequence)
		}
	}
	return segs, nil
}
