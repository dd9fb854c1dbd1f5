package pipeline

import (
	"fmt"
	"strings"

	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/domain/ports/adapter"
)

const minerSystemPrompt = `You extract discrete claims from podcast and video transcripts.
Respond with JSON only, shaped as:
{"claims":[{"text":"...","type":"factual|causal|normative|forecast|definition","quote":"verbatim supporting quote","entities":["..."],"terms":["..."]}]}`

// Selectivity variants change what the miner is told to keep, not the
// response shape. Liberal mining relies on the judge to filter.
var minerPolicy = map[model.Selectivity]string{
	model.SelectivityLiberal:      "Extract liberally: every assertion, prediction, definition or causal statement, even minor ones. Quality filtering happens later.",
	model.SelectivityModerate:     "Extract substantive claims: assertions a listener might want to verify or remember. Skip filler and small talk.",
	model.SelectivityConservative: "Extract only the central, load-bearing claims of the conversation. When in doubt, leave it out.",
}

func minerMessages(sel model.Selectivity, seg model.Segment) []adapter.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nTranscript segment %d", minerPolicy[sel], seg.Sequence)
	if seg.Speaker != "" {
		fmt.Fprintf(&b, " (speaker: %s)", seg.Speaker)
	}
	fmt.Fprintf(&b, " [%s - %s]:\n%s", seg.StartTime, seg.EndTime, seg.Text)
	return []adapter.Message{
		{Role: "system", Content: minerSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}

const judgeSystemPrompt = `You grade candidate claims extracted from a transcript.
Score each candidate on importance, novelty and confidence, all in [0,1].
Respond with JSON only, shaped as:
{"verdicts":[{"index":0,"importance":0.0,"novelty":0.0,"confidence":0.0}]}
The index refers to the candidate's position in the input list.`

func judgeMessages(candidates []model.CandidateClaim) []adapter.Message {
	var b strings.Builder
	b.WriteString("Candidates:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i, c.Type, c.Text)
	}
	return []adapter.Message{
		{Role: "system", Content: judgeSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}

const relatorSystemPrompt = `You detect relationships between accepted claims.
Allowed types: supports, contradicts, depends_on, refines. Strength is in [0,1].
Respond with JSON only, shaped as:
{"relations":[{"from":"c1","to":"c2","type":"supports","strength":0.0,"rationale":"..."}]}
Only reference the claim ids you were given. Mutual relations are allowed.`

func relatorMessages(claims []model.Claim, alias func(claimID string) string) []adapter.Message {
	var b strings.Builder
	b.WriteString("Claims:\n")
	for _, c := range claims {
		fmt.Fprintf(&b, "%s: %s\n", alias(c.ID), c.CanonicalText)
	}
	return []adapter.Message{
		{Role: "system", Content: relatorSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}
