package engine

import (
	"testing"
	"time"

	"TickBrain/internal/domain/models"
	"TickBrain/pkg/logger"
)

type fakeClock struct{ ms int64 }

func (c *fakeClock) NowMs() int64 { return c.ms }

func (c *fakeClock) advance(d time.Duration) { c.ms += d.Milliseconds() }

type nopMetrics struct{}

func (nopMetrics) RecordDecision(kind, outcome string)             {}
func (nopMetrics) RecordRejection(reason string)                   {}
func (nopMetrics) RecordRegime(instrument, regime string)          {}
func (nopMetrics) RecordLastPrice(instrument string, price float64) {}
func (nopMetrics) RecordTickDepth(instrument string, n int)        {}
func (nopMetrics) RecordSinkLatency(seconds float64)               {}
func (nopMetrics) RecordLatency(op string, seconds float64)        {}
func (nopMetrics) RecordError(kind string)                         {}

func newTestEngine(t *testing.T, opts Options) (*Engine, *fakeClock) {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	clk := &fakeClock{ms: 1_700_000_000_000}
	return New(opts, clk, log, nopMetrics{}), clk
}

// quietOptions disables every timed guard so individual tests can switch
// on exactly the behavior under test.
func quietOptions() Options {
	opts := DefaultOptions()
	opts.RequireFreshHeartbeat = false
	opts.RegimeEnabled = false
	opts.CrashEnabled = false
	opts.StabilizerEnabled = false
	opts.ReentryEnabled = false
	opts.AdaptiveExit = false
	opts.PendingTTLMs = 0
	return opts
}

func tickEv(instrument string, price float64, tsMs int64) *models.Event {
	return &models.Event{
		Kind: models.KindTick, Instrument: instrument,
		Price: price, HasPrice: true, TimestampMs: tsMs,
	}
}

func armEv(instrument string, price float64) *models.Event {
	return &models.Event{
		Kind: models.KindArm, Instrument: instrument,
		Price: price, HasPrice: true,
	}
}

func enterEv(instrument string, price float64) *models.Event {
	return &models.Event{
		Kind: models.KindEnter, Instrument: instrument,
		Price: price, HasPrice: true,
	}
}

func exitEv(instrument string, price float64) *models.Event {
	return &models.Event{
		Kind: models.KindExit, Instrument: instrument,
		Price: price, HasPrice: true,
	}
}

const inst = "BINANCE:SOLUSDT"

func TestArmThenEnterApproved(t *testing.T) {
	e, clk := newTestEngine(t, quietOptions())

	e.HandleTick(tickEv(inst, 100, clk.ms))

	if dec := e.HandleArm(armEv(inst, 100)); !dec.Accepted {
		t.Fatalf("arm rejected: %s", dec.Reason)
	}
	dec := e.HandleEnter(enterEv(inst, 100))
	if !dec.Accepted {
		t.Fatalf("enter rejected: %s", dec.Reason)
	}
	if len(dec.Transitions) != 1 || dec.Transitions[0].Action != models.ActionEnter {
		t.Fatalf("expected one enter transition, got %+v", dec.Transitions)
	}

	snap, ok := e.Snapshot(inst)
	if !ok || !snap.Position.Open {
		t.Fatalf("expected open position, got %+v", snap.Position)
	}
	if snap.Activation.Active {
		t.Fatalf("activation should be consumed by entry")
	}
}

func TestDriftBreachIsHardReset(t *testing.T) {
	opts := quietOptions()
	opts.MaxDriftPct = 1.2
	e, clk := newTestEngine(t, opts)

	e.HandleTick(tickEv(inst, 100, clk.ms))
	e.HandleArm(armEv(inst, 100))

	dec := e.HandleEnter(enterEv(inst, 101.3)) // 1.3% drift
	if dec.Accepted || dec.Reason != ReasonDriftReset {
		t.Fatalf("expected drift reset, got %+v", dec)
	}

	// activation is gone: the same entry inside the bound now fails too
	dec = e.HandleEnter(enterEv(inst, 100.5))
	if dec.Accepted || dec.Reason != ReasonNotReady {
		t.Fatalf("expected not_ready after hard reset, got %+v", dec)
	}

	// re-arming restores the path
	e.HandleArm(armEv(inst, 100.5))
	if dec := e.HandleEnter(enterEv(inst, 100.5)); !dec.Accepted {
		t.Fatalf("enter after re-arm rejected: %s", dec.Reason)
	}
}

func TestEnterBoundaryDriftAllowed(t *testing.T) {
	opts := quietOptions()
	opts.MaxDriftPct = 1.2
	e, clk := newTestEngine(t, opts)

	e.HandleTick(tickEv(inst, 100, clk.ms))
	e.HandleArm(armEv(inst, 100))

	if dec := e.HandleEnter(enterEv(inst, 101.2)); !dec.Accepted {
		t.Fatalf("boundary drift should pass: %s", dec.Reason)
	}
}

func TestHeartbeatGate(t *testing.T) {
	opts := quietOptions()
	opts.RequireFreshHeartbeat = true
	opts.HeartbeatMaxAgeMs = 240_000
	e, clk := newTestEngine(t, opts)

	if dec := e.HandleArm(armEv(inst, 100)); dec.Accepted || dec.Reason != ReasonStaleHeartbeat {
		t.Fatalf("expected stale heartbeat with no ticks, got %+v", dec)
	}

	e.HandleTick(tickEv(inst, 100, clk.ms))
	if dec := e.HandleArm(armEv(inst, 100)); !dec.Accepted {
		t.Fatalf("arm after tick rejected: %s", dec.Reason)
	}

	clk.advance(241 * time.Second)
	if dec := e.HandleEnter(enterEv(inst, 100)); dec.Accepted || dec.Reason != ReasonStaleHeartbeat {
		t.Fatalf("expected stale heartbeat after silence, got %+v", dec)
	}
}

func TestActivationTTLExpiry(t *testing.T) {
	opts := quietOptions()
	opts.ActivationTTLMs = 10 * 60_000
	e, clk := newTestEngine(t, opts)

	e.HandleTick(tickEv(inst, 100, clk.ms))
	e.HandleArm(armEv(inst, 100))

	clk.advance(11 * time.Minute)
	if dec := e.HandleEnter(enterEv(inst, 100)); dec.Accepted || dec.Reason != ReasonNotReady {
		t.Fatalf("expected not_ready after ttl expiry, got %+v", dec)
	}
}

func TestAutoExpireOnDrift(t *testing.T) {
	opts := quietOptions()
	opts.AutoExpirePct = 1.0
	e, clk := newTestEngine(t, opts)

	e.HandleTick(tickEv(inst, 100, clk.ms))
	e.HandleArm(armEv(inst, 100))

	clk.advance(time.Second)
	e.HandleTick(tickEv(inst, 101.5, clk.ms)) // 1.5% away from reference

	snap, _ := e.Snapshot(inst)
	if snap.Activation.Active {
		t.Fatalf("activation should auto-expire on drift")
	}
}

func TestPendingEntryConsumedByArm(t *testing.T) {
	opts := quietOptions()
	opts.PendingTTLMs = 90_000
	opts.PendingTolerancePct = 0.3
	e, clk := newTestEngine(t, opts)

	e.HandleTick(tickEv(inst, 100, clk.ms))

	if dec := e.HandleEnter(enterEv(inst, 100)); dec.Accepted || dec.Reason != ReasonNotReady {
		t.Fatalf("expected buffered not_ready, got %+v", dec)
	}
	snap, _ := e.Snapshot(inst)
	if snap.Pending == nil {
		t.Fatalf("expected pending entry")
	}

	dec := e.HandleArm(armEv(inst, 100.1))
	if !dec.Accepted || len(dec.Transitions) != 1 {
		t.Fatalf("arm should consume buffered entry, got %+v", dec)
	}
	snap, _ = e.Snapshot(inst)
	if !snap.Position.Open || snap.Pending != nil {
		t.Fatalf("expected open position and empty buffer, got %+v", snap)
	}
}

func TestPendingEntryExpires(t *testing.T) {
	opts := quietOptions()
	opts.PendingTTLMs = 90_000
	opts.PendingTolerancePct = 0.3
	e, clk := newTestEngine(t, opts)

	e.HandleTick(tickEv(inst, 100, clk.ms))
	e.HandleEnter(enterEv(inst, 100))
	snap, _ := e.Snapshot(inst)
	if snap.Pending == nil {
		t.Fatalf("expected pending entry")
	}

	// past the TTL the buffer is discarded: a matching arm finds nothing
	clk.advance(91 * time.Second)
	dec := e.HandleArm(armEv(inst, 100))
	if !dec.Accepted || len(dec.Transitions) != 0 {
		t.Fatalf("expired buffer must not be consumed, got %+v", dec)
	}
	snap, _ = e.Snapshot(inst)
	if snap.Pending != nil {
		t.Fatalf("pending should be discarded after ttl, got %+v", snap.Pending)
	}
	if snap.Position.Open {
		t.Fatalf("no position expected")
	}
}

func TestPendingEntryToleranceMiss(t *testing.T) {
	opts := quietOptions()
	opts.PendingTTLMs = 90_000
	opts.PendingTolerancePct = 0.3
	e, clk := newTestEngine(t, opts)

	e.HandleTick(tickEv(inst, 100, clk.ms))
	e.HandleEnter(enterEv(inst, 100))

	// reference a full percent away: buffer stays, no entry
	dec := e.HandleArm(armEv(inst, 101))
	if !dec.Accepted || len(dec.Transitions) != 0 {
		t.Fatalf("arm should not consume distant buffer, got %+v", dec)
	}
	snap, _ := e.Snapshot(inst)
	if snap.Position.Open {
		t.Fatalf("no position expected")
	}
	if snap.Pending == nil {
		t.Fatalf("pending should survive a non-matching arm")
	}
}

func TestUnknownKindIsNoop(t *testing.T) {
	e, _ := newTestEngine(t, quietOptions())
	dec := e.Handle(&models.Event{Kind: "rebalance", Instrument: inst})
	if !dec.Accepted || dec.Reason != ReasonUnknownKind {
		t.Fatalf("unknown kind should ack as noop, got %+v", dec)
	}
}

func TestCrashLockBlocksEntries(t *testing.T) {
	opts := quietOptions()
	opts.CrashEnabled = true
	opts.CrashDrop1mPct = 2.0
	opts.CrashCooldownMs = 45 * 60_000
	e, clk := newTestEngine(t, opts)

	e.HandleTick(tickEv(inst, 100, clk.ms))
	e.HandleArm(armEv(inst, 100))

	clk.advance(30 * time.Second)
	e.HandleTick(tickEv(inst, 97.4, clk.ms)) // -2.6% inside a minute

	snap, _ := e.Snapshot(inst)
	if snap.CrashLockUntilMs <= clk.ms {
		t.Fatalf("expected crash lock, got %+v", snap)
	}
	if snap.Activation.Active {
		t.Fatalf("crash lock should clear activation")
	}

	if dec := e.HandleEnter(enterEv(inst, 97.4)); dec.Accepted || dec.Reason != ReasonCrashLock {
		t.Fatalf("expected crash lock rejection, got %+v", dec)
	}
	if dec := e.HandleArm(armEv(inst, 97.4)); dec.Accepted || dec.Reason != ReasonCrashLock {
		t.Fatalf("expected crash lock arm rejection, got %+v", dec)
	}

	clk.advance(46 * time.Minute)
	e.HandleTick(tickEv(inst, 97.4, clk.ms))
	if dec := e.HandleArm(armEv(inst, 97.4)); !dec.Accepted {
		t.Fatalf("arm after crash cooldown rejected: %s", dec.Reason)
	}
}

func TestInstrumentsAreIndependent(t *testing.T) {
	e, clk := newTestEngine(t, quietOptions())
	other := "BINANCE:ETHUSDT"

	e.HandleTick(tickEv(inst, 100, clk.ms))
	e.HandleTick(tickEv(other, 2000, clk.ms))
	e.HandleArm(armEv(inst, 100))
	e.HandleEnter(enterEv(inst, 100))

	if dec := e.HandleEnter(enterEv(other, 2000)); dec.Accepted || dec.Reason != ReasonNotReady {
		t.Fatalf("second instrument should be unaffected, got %+v", dec)
	}
	snap, _ := e.Snapshot(other)
	if snap.Position.Open {
		t.Fatalf("no position expected on %s", other)
	}
}

func TestEndToEndTrendEntryAndCrash(t *testing.T) {
	opts := DefaultOptions()
	opts.RequireFreshHeartbeat = false
	opts.MaxDriftPctTrend = 1.5
	opts.StabilizerEnabled = false
	opts.ReentryEnabled = false
	opts.ExitEnabled = false
	e, clk := newTestEngine(t, opts)

	// ten ticks over five minutes: rising with enough chop for the
	// volatility floor
	prices := []float64{100.00, 100.45, 100.05, 100.50, 100.10, 100.55, 100.15, 100.60, 100.20, 100.65}
	for _, p := range prices {
		e.HandleTick(tickEv(inst, p, clk.ms))
		clk.advance(30 * time.Second)
	}

	snap, _ := e.Snapshot(inst)
	if snap.Regime.Regime != models.RegimeTrend {
		t.Fatalf("expected TREND, got %+v", snap.Regime)
	}

	e.HandleArm(armEv(inst, 100.65))
	dec := e.HandleEnter(enterEv(inst, 101.7)) // ~1.04% drift, within trend bound
	if !dec.Accepted {
		t.Fatalf("trend entry rejected: %s", dec.Reason)
	}

	e.HandleExit(exitEv(inst, 101.7))

	// fast dump: -2.5% within a minute triggers the crash lock
	e.HandleTick(tickEv(inst, 101.7, clk.ms))
	clk.advance(time.Minute)
	e.HandleTick(tickEv(inst, 99.1, clk.ms))

	snap, _ = e.Snapshot(inst)
	if snap.CrashLockUntilMs <= clk.ms {
		t.Fatalf("expected crash lock after dump, got %+v", snap)
	}
	if dec := e.HandleArm(armEv(inst, 99.1)); dec.Accepted || dec.Reason != ReasonCrashLock {
		t.Fatalf("expected arm blocked by crash lock, got %+v", dec)
	}
}
