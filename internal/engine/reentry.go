package engine

import "TickBrain/pkg/logger"

// noteReentryClose opens or refreshes the post-exit re-entry window.
// A close that itself came from a re-entry never opens another window,
// and a loss below the skip floor does not qualify.
func (e *Engine) noteReentryClose(st *instrumentState, pnlPct, exitPrice float64, fromReentry bool, nowMs int64) {
	if !e.opts.ReentryEnabled || e.opts.ReentryMaxTries <= 0 {
		return
	}
	if fromReentry {
		return
	}
	if pnlPct < e.opts.ReentrySkipPnLPct {
		return
	}

	if st.reentry.active {
		// refresh in place: reference price moves, expiry and tries do not
		st.reentry.refPrice = exitPrice
		st.reentry.regimeAtExit = e.regimeOf(st)
		return
	}

	st.reentry = reentryWindow{
		active:       true,
		refPrice:     exitPrice,
		regimeAtExit: e.regimeOf(st),
		expiresAtMs:  nowMs + e.opts.ReentryWindowMs,
	}
	e.log.Info("reentry window opened",
		logger.String("instrument", st.instrument),
		logger.Any("reference_price", exitPrice),
		logger.Int64("expires_at_ms", st.reentry.expiresAtMs))
}

// reentryEligible reports whether the re-entry path could admit an entry
// right now. Only reachable when no activation is live.
func (e *Engine) reentryEligible(st *instrumentState, nowMs int64) bool {
	if !e.opts.ReentryEnabled || st.activation.active {
		return false
	}
	return st.reentry.active &&
		nowMs < st.reentry.expiresAtMs &&
		st.reentry.triesUsed < e.opts.ReentryMaxTries
}
