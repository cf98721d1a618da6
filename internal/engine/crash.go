package engine

import "TickBrain/pkg/logger"

const (
	crashHorizon1mMs = 60_000
	crashHorizon5mMs = 300_000
)

// checkCrash detects a short-horizon collapse against the 1m and 5m
// horizons. Triggering opens or extends the crash lock and clears the
// activation and re-entry contexts. Missing history is not triggered.
func (e *Engine) checkCrash(st *instrumentState, nowMs int64) bool {
	if !e.opts.CrashEnabled {
		return false
	}
	pNow, ok := st.ticks.PriceAtOrBefore(nowMs)
	if !ok {
		return false
	}

	if drop, ok := e.horizonDropPct(st, pNow, nowMs, crashHorizon1mMs); ok && drop <= -e.opts.CrashDrop1mPct {
		e.triggerCrashLock(st, "1m", drop, nowMs)
		return true
	}
	if drop, ok := e.horizonDropPct(st, pNow, nowMs, crashHorizon5mMs); ok && drop <= -e.opts.CrashDrop5mPct {
		e.triggerCrashLock(st, "5m", drop, nowMs)
		return true
	}
	return false
}

func (e *Engine) horizonDropPct(st *instrumentState, pNow float64, nowMs, horizonMs int64) (float64, bool) {
	pPast, ok := st.ticks.PriceAtOrBefore(nowMs - horizonMs)
	if !ok {
		return 0, false
	}
	return pctMove(pPast, pNow)
}

func (e *Engine) triggerCrashLock(st *instrumentState, horizon string, dropPct float64, nowMs int64) {
	if e.opts.CrashCooldownMs > 0 {
		st.crashLockUntilMs = max(st.crashLockUntilMs, nowMs+e.opts.CrashCooldownMs)
	}
	e.clearActivation(st, "crash_lock_"+horizon)
	st.reentry = reentryWindow{}
	st.lastAction = "crash_lock_" + horizon

	e.log.Warn("crash lock triggered",
		logger.String("instrument", st.instrument),
		logger.String("horizon", horizon),
		logger.Any("drop_pct", dropPct),
		logger.Int64("until_ms", st.crashLockUntilMs))
	e.metrics.RecordError("crash_lock")
}
