package ai

import (
	"context"

	"transcript-miner/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAI)(nil)

// NoopAI returns canned responses. Used in dev mode and as a safe default
// when no provider is configured.
type NoopAI struct {
	Reply string
}

func NewNoopAI() *NoopAI {
	return &NoopAI{Reply: `{"claims":[]}`}
}

func (n *NoopAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop"}, nil
}

func (n *NoopAI) GetModelInfo(model string) (adapter.ModelInfo, error) {
	return adapter.ModelInfo{Name: "noop", Description: "no-op adapter"}, nil
}

func (n *NoopAI) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / 4
	}
	return total, nil
}

func (n *NoopAI) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	return n.Reply, nil
}

func (n *NoopAI) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	tokens, _ := n.CountTokens(ctx, model, messages)
	return n.Reply, adapter.Usage{PromptTokens: tokens, CompletionTokens: len(n.Reply) / 4, TotalTokens: tokens + len(n.Reply)/4}, nil
}
