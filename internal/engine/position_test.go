package engine

import (
	"testing"
	"time"

	"TickBrain/internal/domain/models"
)

func openAt(t *testing.T, e *Engine, clk *fakeClock, price float64) {
	t.Helper()
	e.HandleTick(tickEv(inst, price, clk.ms))
	if dec := e.HandleArm(armEv(inst, price)); !dec.Accepted {
		t.Fatalf("arm rejected: %s", dec.Reason)
	}
	if dec := e.HandleEnter(enterEv(inst, price)); !dec.Accepted {
		t.Fatalf("enter rejected: %s", dec.Reason)
	}
}

func TestTrailingExitFiresExactlyAtGiveback(t *testing.T) {
	opts := quietOptions()
	opts.ArmPct = 0.6
	opts.GivebackPct = 5
	e, clk := newTestEngine(t, opts)

	openAt(t, e, clk, 100)

	clk.advance(time.Second)
	dec := e.HandleTick(tickEv(inst, 110, clk.ms))
	if len(dec.Transitions) != 0 {
		t.Fatalf("no exit expected at the peak")
	}
	snap, _ := e.Snapshot(inst)
	if !snap.Position.ExitArmed || snap.Position.ExtremePrice != 110 {
		t.Fatalf("expected armed position with extreme 110, got %+v", snap.Position)
	}

	// giveback 5% from peak 110: floor is 104.5
	clk.advance(time.Second)
	dec = e.HandleTick(tickEv(inst, 104.6, clk.ms))
	if len(dec.Transitions) != 0 {
		t.Fatalf("104.6 must not exit, got %+v", dec.Transitions)
	}

	clk.advance(time.Second)
	dec = e.HandleTick(tickEv(inst, 104.5, clk.ms))
	if len(dec.Transitions) != 1 || dec.Transitions[0].Action != models.ActionExit {
		t.Fatalf("104.5 must exit, got %+v", dec.Transitions)
	}
	snap, _ = e.Snapshot(inst)
	if snap.Position.Open {
		t.Fatalf("position should be closed")
	}
}

func TestExitArmingIsMonotonic(t *testing.T) {
	opts := quietOptions()
	opts.ArmPct = 0.6
	opts.GivebackPct = 50 // park the floor far away
	e, clk := newTestEngine(t, opts)

	openAt(t, e, clk, 100)

	clk.advance(time.Second)
	e.HandleTick(tickEv(inst, 101, clk.ms)) // +1% arms

	for _, p := range []float64{100.2, 99.8, 100.0, 99.5} {
		clk.advance(time.Second)
		e.HandleTick(tickEv(inst, p, clk.ms))
		snap, _ := e.Snapshot(inst)
		if !snap.Position.Open {
			t.Fatalf("position closed unexpectedly at %v", p)
		}
		if !snap.Position.ExitArmed {
			t.Fatalf("arming must never revert, price %v", p)
		}
	}
}

func TestTrailingExitBelowArmDoesNothing(t *testing.T) {
	opts := quietOptions()
	opts.ArmPct = 0.6
	opts.GivebackPct = 0.35
	e, clk := newTestEngine(t, opts)

	openAt(t, e, clk, 100)

	// +0.5% never arms, and the later drop must not exit
	clk.advance(time.Second)
	e.HandleTick(tickEv(inst, 100.5, clk.ms))
	clk.advance(time.Second)
	dec := e.HandleTick(tickEv(inst, 99, clk.ms))
	if len(dec.Transitions) != 0 {
		t.Fatalf("unarmed position must not exit, got %+v", dec.Transitions)
	}
	snap, _ := e.Snapshot(inst)
	if !snap.Position.Open || snap.Position.ExitArmed {
		t.Fatalf("expected open, unarmed position, got %+v", snap.Position)
	}
}

func TestAdaptiveThresholdsClamped(t *testing.T) {
	opts := quietOptions()
	opts.AdaptiveExit = true
	opts.RegimeEnabled = true
	opts.ArmVolMultTrend = 2.2
	opts.GiveVolMultTrend = 1.2
	opts.MaxArmPct = 0.1
	opts.MaxGivebackPct = 0.1
	e, _ := newTestEngine(t, opts)

	st := e.state(inst)
	st.regime = regimeState{regime: models.RegimeTrend, volPct: 0.5, updatedAtMs: 1}

	arm, give := e.exitThresholds(st, e.clock.NowMs())
	if arm != 0.1 || give != 0.1 {
		t.Fatalf("expected clamped thresholds, got arm=%v give=%v", arm, give)
	}
}

func TestAdaptiveThresholdsPerRegime(t *testing.T) {
	opts := quietOptions()
	opts.AdaptiveExit = true
	opts.RegimeEnabled = true
	e, _ := newTestEngine(t, opts)

	st := e.state(inst)
	st.regime = regimeState{regime: models.RegimeTrend, volPct: 0.5, updatedAtMs: 1}
	arm, give := e.exitThresholds(st, e.clock.NowMs())
	if arm != 2.2*0.5 || give != 1.2*0.5 {
		t.Fatalf("unexpected trend thresholds arm=%v give=%v", arm, give)
	}

	st.regime.regime = models.RegimeRange
	arm, give = e.exitThresholds(st, e.clock.NowMs())
	if arm != 1.2*0.5 || give != 0.7*0.5 {
		t.Fatalf("unexpected range thresholds arm=%v give=%v", arm, give)
	}
}

func TestExplicitExitProfitFilter(t *testing.T) {
	opts := quietOptions()
	opts.MinExitProfitPct = 0.5
	e, clk := newTestEngine(t, opts)

	openAt(t, e, clk, 100)

	dec := e.HandleExit(exitEv(inst, 100.2)) // +0.2% below the floor
	if dec.Accepted || dec.Reason != ReasonProfitFilter {
		t.Fatalf("expected profit filter rejection, got %+v", dec)
	}

	// an explicit reason bypasses the filter
	ev := exitEv(inst, 100.2)
	ev.ExitReason = "manual_flatten"
	if dec := e.HandleExit(ev); !dec.Accepted {
		t.Fatalf("explicit reason should bypass filter: %s", dec.Reason)
	}
}

func TestExitWithoutPositionRejected(t *testing.T) {
	e, _ := newTestEngine(t, quietOptions())
	if dec := e.HandleExit(exitEv(inst, 100)); dec.Accepted || dec.Reason != ReasonNoPosition {
		t.Fatalf("expected no_position, got %+v", dec)
	}
}

func TestExitFallsBackToLastTickPrice(t *testing.T) {
	opts := quietOptions()
	opts.StabilizerEnabled = true
	opts.LossStreak2CooldownMs = 15 * 60_000
	e, clk := newTestEngine(t, opts)

	openAt(t, e, clk, 100)
	clk.advance(time.Second)
	e.HandleTick(tickEv(inst, 99, clk.ms))

	ev := &models.Event{Kind: models.KindExit, Instrument: inst}
	dec := e.HandleExit(ev)
	if !dec.Accepted {
		t.Fatalf("exit rejected: %s", dec.Reason)
	}
	if dec.Transitions[0].Price != 99 {
		t.Fatalf("expected last tick price on exit, got %v", dec.Transitions[0].Price)
	}
	snap, _ := e.Snapshot(inst)
	if snap.LossStreak != 1 {
		t.Fatalf("loss streak should count the fallback price, got %d", snap.LossStreak)
	}
}

func TestShortSideTrailing(t *testing.T) {
	opts := quietOptions()
	opts.ShortSide = true
	opts.ArmPct = 0.6
	opts.GivebackPct = 5
	e, clk := newTestEngine(t, opts)

	openAt(t, e, clk, 100)

	// favorable move for a short is down; trough 90 arms the exit
	clk.advance(time.Second)
	e.HandleTick(tickEv(inst, 90, clk.ms))
	snap, _ := e.Snapshot(inst)
	if !snap.Position.ExitArmed || snap.Position.ExtremePrice != 90 {
		t.Fatalf("expected armed short with trough 90, got %+v", snap.Position)
	}

	// ceiling is trough +5%: 94.5
	clk.advance(time.Second)
	dec := e.HandleTick(tickEv(inst, 94.4, clk.ms))
	if len(dec.Transitions) != 0 {
		t.Fatalf("94.4 must not exit a short, got %+v", dec.Transitions)
	}
	clk.advance(time.Second)
	dec = e.HandleTick(tickEv(inst, 94.5, clk.ms))
	if len(dec.Transitions) != 1 || dec.Transitions[0].Action != models.ActionExit {
		t.Fatalf("94.5 must exit the short, got %+v", dec.Transitions)
	}
}
