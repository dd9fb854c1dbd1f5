package model

type HardwareTier string

const (
	TierBase  HardwareTier = "base"
	TierPro   HardwareTier = "pro"
	TierMax   HardwareTier = "max"
	TierUltra HardwareTier = "ultra"
)

// HardwareBudget is derived from detected host resources at run start.
// It is never persisted and never expanded mid-run; memory pressure may
// shrink the effective worker counts.
type HardwareBudget struct {
	Tier          HardwareTier
	MaxMiners     int
	MaxJudges     int
	MaxInFlight   int // system-wide concurrent inference calls
	ContextTokens int // per-request context-window ceiling
	SoftMemoryPct int // stop accepting new work above this RAM utilization
	HardMemoryPct int // pause dispatch entirely above this
}

// Clamp lowers budget figures to override where override is set and lower.
// Overrides can only shrink a budget, never raise it above its tier.
func (b HardwareBudget) Clamp(workerOverride int) HardwareBudget {
	if workerOverride > 0 && workerOverride < b.MaxMiners {
		b.MaxMiners = workerOverride
	}
	if workerOverride > 0 && workerOverride < b.MaxJudges {
		b.MaxJudges = workerOverride
	}
	if workerOverride > 0 && workerOverride < b.MaxInFlight {
		b.MaxInFlight = workerOverride
	}
	return b
}
