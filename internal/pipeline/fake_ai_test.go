package pipeline

import (
	"context"
	"sync"

	"transcript-miner/internal/domain/model"
	"transcript-miner/internal/domain/ports/adapter"
)

type recordedCall struct {
	Stage    model.Stage
	Model    string
	Messages []adapter.Message
}

// scriptedAI answers calls via a handler func and records every call.
type scriptedAI struct {
	mu      sync.Mutex
	calls   []recordedCall
	handler func(stage model.Stage, modelName string, messages []adapter.Message) (string, error)
}

func (f *scriptedAI) Call(ctx context.Context, runID string, stage model.Stage, modelName string, messages []adapter.Message) (string, adapter.Usage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Stage: stage, Model: modelName, Messages: messages})
	f.mu.Unlock()
	raw, err := f.handler(stage, modelName, messages)
	if err != nil {
		return "", adapter.Usage{}, err
	}
	return raw, adapter.Usage{PromptTokens: 10, CompletionTokens: len(raw) / 4, TotalTokens: 10 + len(raw)/4}, nil
}

func (f *scriptedAI) CountTokens(ctx context.Context, modelName string, messages []adapter.Message) (int, error) {
	n := 0
	for _, m := range messages {
		n += len(m.Content) / 4
	}
	return n, nil
}

func (f *scriptedAI) SpentMicro() int64 { return 0 }

func (f *scriptedAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *scriptedAI) modelsUsed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Model
	}
	return out
}
