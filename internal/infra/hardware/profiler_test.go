package hardware

import (
	"testing"

	"transcript-miner/internal/domain/model"
)

func TestComputeBudgetTiers(t *testing.T) {
	cases := []struct {
		name  string
		spec  HostSpec
		tier  model.HardwareTier
		mined int
	}{
		{"ultra", HostSpec{Cores: 32, TotalRAM: 128 * gib}, model.TierUltra, 16},
		{"big ram few cores stays max", HostSpec{Cores: 8, TotalRAM: 64 * gib}, model.TierMax, 8},
		{"max", HostSpec{Cores: 16, TotalRAM: 32 * gib}, model.TierMax, 8},
		{"pro", HostSpec{Cores: 8, TotalRAM: 16 * gib}, model.TierPro, 4},
		{"base", HostSpec{Cores: 4, TotalRAM: 8 * gib}, model.TierBase, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := ComputeBudget(tc.spec)
			if b.Tier != tc.tier {
				t.Fatalf("tier = %s, want %s", b.Tier, tc.tier)
			}
			if b.MaxMiners != tc.mined {
				t.Fatalf("MaxMiners = %d, want %d", b.MaxMiners, tc.mined)
			}
			if b.SoftMemoryPct != 80 || b.HardMemoryPct != 90 {
				t.Fatalf("unexpected memory thresholds: %d/%d", b.SoftMemoryPct, b.HardMemoryPct)
			}
		})
	}
}

func TestComputeBudgetClampsMinersToCores(t *testing.T) {
	b := ComputeBudget(HostSpec{Cores: 2, TotalRAM: 64 * gib})
	if b.MaxMiners != 2 {
		t.Fatalf("MaxMiners = %d, want 2 (core-bound)", b.MaxMiners)
	}
}

func TestBudgetClampNeverExpands(t *testing.T) {
	b := ComputeBudget(HostSpec{Cores: 16, TotalRAM: 32 * gib})
	clamped := b.Clamp(100)
	if clamped.MaxMiners != b.MaxMiners || clamped.MaxInFlight != b.MaxInFlight {
		t.Fatal("override above tier must not expand the budget")
	}
	shrunk := b.Clamp(1)
	if shrunk.MaxMiners != 1 || shrunk.MaxJudges != 1 || shrunk.MaxInFlight != 1 {
		t.Fatalf("override below tier must shrink: %+v", shrunk)
	}
}

func TestCheckPressure(t *testing.T) {
	p := NewProfilerForSpec(HostSpec{Cores: 8, TotalRAM: 16 * gib})
	budget := p.Budget()

	cases := []struct {
		name      string
		available uint64
		want      Pressure
	}{
		{"plenty free", 10 * gib, PressureNone},
		{"above soft threshold", 3 * gib, PressureSoft},
		{"above hard threshold", 1 * gib, PressureHard},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p.memProbe = func() (uint64, uint64, bool) { return 16 * gib, tc.available, true }
			if got := p.CheckPressure(budget); got != tc.want {
				t.Fatalf("pressure = %d, want %d", got, tc.want)
			}
		})
	}

	t.Run("unreadable reports none", func(t *testing.T) {
		p.memProbe = func() (uint64, uint64, bool) { return 0, 0, false }
		if got := p.CheckPressure(budget); got != PressureNone {
			t.Fatalf("pressure = %d, want none", got)
		}
	})
}
