package engine

import (
	"testing"
	"time"

	"TickBrain/internal/domain/models"
)

func regimeOptions() Options {
	opts := quietOptions()
	opts.RegimeEnabled = true
	return opts
}

// feedTrend pushes ten choppy, rising ticks over five minutes: slope about
// 0.65% with volatility above the floor.
func feedTrend(e *Engine, clk *fakeClock) {
	prices := []float64{100.00, 100.45, 100.05, 100.50, 100.10, 100.55, 100.15, 100.60, 100.20, 100.65}
	for _, p := range prices {
		e.HandleTick(tickEv(inst, p, clk.ms))
		clk.advance(30 * time.Second)
	}
}

func TestRegimeDefaultsToRange(t *testing.T) {
	e, clk := newTestEngine(t, regimeOptions())
	e.HandleTick(tickEv(inst, 100, clk.ms))

	snap, _ := e.Snapshot(inst)
	if snap.Regime.Regime != models.RegimeRange {
		t.Fatalf("expected default RANGE, got %+v", snap.Regime)
	}
}

func TestRegimeBelowMinTicksStaysDefault(t *testing.T) {
	e, clk := newTestEngine(t, regimeOptions())
	for i := 0; i < 9; i++ {
		e.HandleTick(tickEv(inst, 100+float64(i), clk.ms))
		clk.advance(10 * time.Second)
	}
	snap, _ := e.Snapshot(inst)
	if snap.Regime.UpdatedAtMs != 0 {
		t.Fatalf("classifier must not run below the minimum tick count")
	}
}

func TestRegimeEngagesTrend(t *testing.T) {
	e, clk := newTestEngine(t, regimeOptions())
	feedTrend(e, clk)

	snap, _ := e.Snapshot(inst)
	if snap.Regime.Regime != models.RegimeTrend {
		t.Fatalf("expected TREND, got %+v", snap.Regime)
	}
	if snap.Regime.SlopePct < 0.25 || snap.Regime.VolatilityPct < 0.20 {
		t.Fatalf("unexpected inputs %+v", snap.Regime)
	}
}

func TestRegimeUpdateIsIdempotent(t *testing.T) {
	e, clk := newTestEngine(t, regimeOptions())
	feedTrend(e, clk)

	st := e.state(inst)
	st.mu.Lock()
	defer st.mu.Unlock()

	before := st.regime
	for i := 0; i < 5; i++ {
		e.updateRegime(st, clk.ms)
	}
	if st.regime.regime != before.regime ||
		st.regime.slopePct != before.slopePct ||
		st.regime.volPct != before.volPct {
		t.Fatalf("repeated updates changed classification: %+v -> %+v", before, st.regime)
	}
}

func TestRegimeVolatilityFloorBlocksTrend(t *testing.T) {
	opts := regimeOptions()
	opts.VolFloorPct = 5 // unreachable
	e, clk := newTestEngine(t, opts)
	feedTrend(e, clk)

	snap, _ := e.Snapshot(inst)
	if snap.Regime.Regime != models.RegimeRange {
		t.Fatalf("volatility floor must block TREND, got %+v", snap.Regime)
	}
}

func TestRegimeHysteresisHoldsTrend(t *testing.T) {
	opts := regimeOptions()
	e, clk := newTestEngine(t, opts)
	feedTrend(e, clk)

	st := e.state(inst)
	st.mu.Lock()
	defer st.mu.Unlock()

	// force a slope between trend-off (0.18) and trend-on (0.25): the
	// classifier must stay in TREND, not flap
	st.regime.regime = models.RegimeTrend
	st.ticks = newTickStore(e.opts.TickRetentionMs)
	base := clk.ms
	prices := []float64{100.00, 100.30, 100.02, 100.32, 100.04, 100.34, 100.06, 100.36, 100.08, 100.20}
	for i, p := range prices {
		st.ticks.Append(p, base+int64(i)*30_000)
	}
	now := base + 9*30_000
	e.updateRegime(st, now)

	if st.regime.regime != models.RegimeTrend {
		t.Fatalf("slope inside hysteresis band must hold TREND, got %+v", st.regime)
	}

	// but the same window starting from RANGE must stay RANGE
	st.regime.regime = models.RegimeRange
	e.updateRegime(st, now)
	if st.regime.regime != models.RegimeRange {
		t.Fatalf("slope below trend-on must not engage TREND, got %+v", st.regime)
	}
}
