package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the call type a response must conform to.
type Kind string

const (
	KindMining   Kind = "mining"
	KindJudging  Kind = "judging"
	KindRelating Kind = "relating"
)

// Versions supported per kind. The version a job uses is pinned in its
// config at creation time, not inferred at call time, so prompt/response
// contracts can evolve without breaking in-flight jobs.
var supportedVersions = map[Kind][]int{
	KindMining:   {1},
	KindJudging:  {1},
	KindRelating: {1},
}

func Supported(kind Kind, version int) bool {
	for _, v := range supportedVersions[kind] {
		if v == version {
			return true
		}
	}
	return false
}

// Score tolerates numeric strings ("0.8") alongside plain numbers; models
// emit both.
type Score float64

func (s *Score) UnmarshalJSON(b []byte) error {
	trimmed := strings.TrimSpace(string(b))
	if len(trimmed) >= 2 && trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return fmt.Errorf("score %q is not numeric", str)
		}
		*s = Score(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*s = Score(f)
	return nil
}

// MiningResponse is the mining/v1 contract.
type MiningResponse struct {
	Claims []MinedClaim `json:"claims"`
}

type MinedClaim struct {
	Text     string   `json:"text"`
	Type     string   `json:"type"`
	Quote    string   `json:"quote"`
	Entities []string `json:"entities"`
	Terms    []string `json:"terms"`
}

// JudgingResponse is the judging/v1 contract. Verdicts are positional:
// index i scores candidate i of the request batch.
type JudgingResponse struct {
	Verdicts []Verdict `json:"verdicts"`
}

type Verdict struct {
	Index      int   `json:"index"`
	Importance Score `json:"importance"`
	Novelty    Score `json:"novelty"`
	Confidence Score `json:"confidence"`
}

// RelatingResponse is the relating/v1 contract.
type RelatingResponse struct {
	Relations []FoundRelation `json:"relations"`
}

type FoundRelation struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Type      string `json:"type"`
	Strength  Score  `json:"strength"`
	Rationale string `json:"rationale"`
}
