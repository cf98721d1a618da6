package engine

import (
	"testing"
	"time"
)

func reentryOptions() Options {
	opts := quietOptions()
	opts.ReentryEnabled = true
	opts.ReentryWindowMs = 20 * 60_000
	opts.ReentryMaxTries = 1
	opts.ReentryMaxFallPct = 1.0
	opts.ReentryMaxRisePct = 1.5
	opts.ReentrySkipPnLPct = -5.0
	opts.ExitEnabled = false
	return opts
}

func TestReentryAdmitsWithoutArm(t *testing.T) {
	e, clk := newTestEngine(t, reentryOptions())

	openAt(t, e, clk, 100)
	e.HandleExit(exitEv(inst, 100.5))

	snap, _ := e.Snapshot(inst)
	if !snap.Reentry.Active || snap.Reentry.ReferencePrice != 100.5 {
		t.Fatalf("expected reentry window at 100.5, got %+v", snap.Reentry)
	}

	dec := e.HandleEnter(enterEv(inst, 100.6))
	if !dec.Accepted {
		t.Fatalf("reentry rejected: %s", dec.Reason)
	}
	snap, _ = e.Snapshot(inst)
	if !snap.Position.Open || !snap.Position.FromReentry {
		t.Fatalf("expected reentry-origin position, got %+v", snap.Position)
	}
	if snap.Reentry.Active {
		t.Fatalf("single-try window should be consumed")
	}
}

func TestReentryLoopPrevention(t *testing.T) {
	e, clk := newTestEngine(t, reentryOptions())

	openAt(t, e, clk, 100)
	e.HandleExit(exitEv(inst, 100.5))
	if dec := e.HandleEnter(enterEv(inst, 100.6)); !dec.Accepted {
		t.Fatalf("first reentry rejected: %s", dec.Reason)
	}

	// closing a reentry-origin position must not open a third window
	e.HandleExit(exitEv(inst, 101))
	snap, _ := e.Snapshot(inst)
	if snap.Reentry.Active {
		t.Fatalf("loop prevention failed: %+v", snap.Reentry)
	}
	if dec := e.HandleEnter(enterEv(inst, 101)); dec.Accepted || dec.Reason != ReasonNotReady {
		t.Fatalf("expected not_ready after loop prevention, got %+v", dec)
	}
}

func TestReentryFallAndRiseBounds(t *testing.T) {
	e, clk := newTestEngine(t, reentryOptions())

	openAt(t, e, clk, 100)
	e.HandleExit(exitEv(inst, 100))

	// adverse move beyond the fall bound
	dec := e.HandleEnter(enterEv(inst, 98.9)) // -1.1%
	if dec.Accepted || dec.Reason != ReasonReentryFall {
		t.Fatalf("expected fall breach, got %+v", dec)
	}

	// chasing beyond the rise bound
	dec = e.HandleEnter(enterEv(inst, 101.6)) // +1.6%
	if dec.Accepted || dec.Reason != ReasonReentryRise {
		t.Fatalf("expected rise breach, got %+v", dec)
	}

	// inside both bounds
	if dec := e.HandleEnter(enterEv(inst, 100.5)); !dec.Accepted {
		t.Fatalf("in-band reentry rejected: %s", dec.Reason)
	}
}

func TestReentrySkipsDeepLoss(t *testing.T) {
	e, clk := newTestEngine(t, reentryOptions())

	openAt(t, e, clk, 100)
	e.HandleExit(exitEv(inst, 94)) // -6%, below the skip floor

	snap, _ := e.Snapshot(inst)
	if snap.Reentry.Active {
		t.Fatalf("deep loss must not open a window, got %+v", snap.Reentry)
	}
}

func TestReentryRefreshKeepsExpiry(t *testing.T) {
	e, clk := newTestEngine(t, reentryOptions())

	st := e.state(inst)
	st.mu.Lock()
	defer st.mu.Unlock()

	e.noteReentryClose(st, 0.5, 100.5, false, clk.ms)
	firstExpiry := st.reentry.expiresAtMs

	// a later qualifying close refreshes the reference, not the clock
	clk.advance(5 * time.Minute)
	e.noteReentryClose(st, 0.4, 101, false, clk.ms)

	if !st.reentry.active || st.reentry.refPrice != 101 {
		t.Fatalf("expected refreshed window at 101, got %+v", st.reentry)
	}
	if st.reentry.expiresAtMs != firstExpiry {
		t.Fatalf("refresh must not extend expiry: got %d want %d", st.reentry.expiresAtMs, firstExpiry)
	}
	if st.reentry.triesUsed != 0 {
		t.Fatalf("refresh must not touch tries, got %d", st.reentry.triesUsed)
	}
}

func TestExitCooldownBlocksEntryButNotReentry(t *testing.T) {
	opts := reentryOptions()
	opts.ExitCooldownMs = 10 * 60_000
	e, clk := newTestEngine(t, opts)

	openAt(t, e, clk, 100)
	e.HandleExit(exitEv(inst, 100.5))

	// the open window bypasses the post-exit cooldown
	if dec := e.HandleEnter(enterEv(inst, 100.6)); !dec.Accepted {
		t.Fatalf("reentry should bypass cooldown: %s", dec.Reason)
	}

	// closing the reentry position leaves no window; the cooldown now binds
	e.HandleExit(exitEv(inst, 101))
	dec := e.HandleEnter(enterEv(inst, 101))
	if dec.Accepted || dec.Reason != ReasonCooldown {
		t.Fatalf("expected cooldown rejection, got %+v", dec)
	}

	// cooldown elapsed: back to the ordinary not-armed path
	clk.advance(11 * time.Minute)
	dec = e.HandleEnter(enterEv(inst, 101))
	if dec.Accepted || dec.Reason != ReasonNotReady {
		t.Fatalf("expected not_ready after cooldown, got %+v", dec)
	}
}

func TestReentryWindowExpires(t *testing.T) {
	e, clk := newTestEngine(t, reentryOptions())

	openAt(t, e, clk, 100)
	e.HandleExit(exitEv(inst, 100.5))

	clk.advance(21 * time.Minute)
	if dec := e.HandleEnter(enterEv(inst, 100.5)); dec.Accepted || dec.Reason != ReasonNotReady {
		t.Fatalf("expected expired window, got %+v", dec)
	}
}

func TestArmSupersedesReentryWindow(t *testing.T) {
	e, clk := newTestEngine(t, reentryOptions())

	openAt(t, e, clk, 100)
	e.HandleExit(exitEv(inst, 100.5))

	e.HandleArm(armEv(inst, 100.5))
	snap, _ := e.Snapshot(inst)
	if snap.Reentry.Active {
		t.Fatalf("arm must consume the reentry window, got %+v", snap.Reentry)
	}
	if !snap.Activation.Active {
		t.Fatalf("expected live activation")
	}
}

func TestReentryRequireTrend(t *testing.T) {
	opts := reentryOptions()
	opts.ReentryRequireTrend = true
	e, clk := newTestEngine(t, opts)

	openAt(t, e, clk, 100)
	e.HandleExit(exitEv(inst, 100.5))

	dec := e.HandleEnter(enterEv(inst, 100.5))
	if dec.Accepted || dec.Reason != ReasonReentryRange {
		t.Fatalf("expected trend requirement rejection, got %+v", dec)
	}
}
