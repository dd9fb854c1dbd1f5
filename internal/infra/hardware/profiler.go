package hardware

import (
	"runtime"

	"transcript-miner/internal/domain/model"
)

const gib = 1 << 30

// HostSpec is the raw detected shape of the host.
type HostSpec struct {
	Cores    int
	TotalRAM uint64 // bytes
}

// Pressure classifies current memory utilization against the budget
// thresholds.
type Pressure int

const (
	PressureNone Pressure = iota
	PressureSoft          // stop accepting new work
	PressureHard          // pause dispatch entirely
)

// Profiler inspects the host once and answers budget and pressure queries.
// memProbe is swappable so tests can inject synthetic readings.
type Profiler struct {
	spec     HostSpec
	memProbe func() (total, available uint64, ok bool)
}

func NewProfiler() *Profiler {
	p := &Profiler{memProbe: readMemory}
	total, _, ok := p.memProbe()
	if !ok {
		// Conservative assumption when the platform probe is unavailable.
		total = 8 * gib
	}
	p.spec = HostSpec{Cores: runtime.NumCPU(), TotalRAM: total}
	return p
}

// NewProfilerForSpec builds a profiler around a fixed spec. Used by tests
// and by config-driven overrides.
func NewProfilerForSpec(spec HostSpec) *Profiler {
	return &Profiler{spec: spec, memProbe: readMemory}
}

func (p *Profiler) Spec() HostSpec { return p.spec }

// ComputeBudget is a pure function of the detected core count and RAM,
// using a tiered lookup. A budget is queried once per run start and is
// never expanded mid-run.
func ComputeBudget(spec HostSpec) model.HardwareBudget {
	b := model.HardwareBudget{
		SoftMemoryPct: 80,
		HardMemoryPct: 90,
	}
	switch {
	case spec.TotalRAM >= 64*gib && spec.Cores >= 24:
		b.Tier = model.TierUltra
		b.MaxMiners = 16
		b.MaxJudges = 8
		b.MaxInFlight = 24
		b.ContextTokens = 32768
	case spec.TotalRAM >= 32*gib:
		b.Tier = model.TierMax
		b.MaxMiners = 8
		b.MaxJudges = 4
		b.MaxInFlight = 12
		b.ContextTokens = 16384
	case spec.TotalRAM >= 16*gib:
		b.Tier = model.TierPro
		b.MaxMiners = 4
		b.MaxJudges = 2
		b.MaxInFlight = 6
		b.ContextTokens = 8192
	default:
		b.Tier = model.TierBase
		b.MaxMiners = 2
		b.MaxJudges = 1
		b.MaxInFlight = 2
		b.ContextTokens = 4096
	}
	if spec.Cores > 0 && b.MaxMiners > spec.Cores {
		b.MaxMiners = spec.Cores
	}
	return b
}

func (p *Profiler) Budget() model.HardwareBudget {
	return ComputeBudget(p.spec)
}

// CheckPressure reads current memory utilization and classifies it against
// the budget thresholds. Unavailable readings report no pressure; shrinking
// concurrency on a guess would starve healthy hosts.
func (p *Profiler) CheckPressure(budget model.HardwareBudget) Pressure {
	total, available, ok := p.memProbe()
	if !ok || total == 0 {
		return PressureNone
	}
	usedPct := int(100 - available*100/total)
	switch {
	case usedPct >= budget.HardMemoryPct:
		return PressureHard
	case usedPct >= budget.SoftMemoryPct:
		return PressureSoft
	default:
		return PressureNone
	}
}
