package engine

import (
	"TickBrain/internal/domain/models"
	"TickBrain/pkg/logger"
)

// HandleEnter runs the ordered admission gates for an enter intent.
func (e *Engine) HandleEnter(ev *models.Event) Decision {
	if ev.Instrument == "" {
		return reject(ReasonMissingInstrument)
	}
	if !ev.HasPrice {
		return reject(ReasonMissingPrice)
	}

	st := e.state(ev.Instrument)
	st.mu.Lock()
	defer st.mu.Unlock()

	now := e.clock.NowMs()
	e.expireTimers(st, now)

	return e.decide(models.KindEnter, e.admitEntry(st, ev.Price, now, ev.Meta))
}

// admitEntry evaluates the admission gates in order, short-circuiting on
// the first failure: crash lock, in-position, cooldown (bypassed by a
// qualifying re-entry), heartbeat, conservative regime requirement. Also
// reached from HandleArm when a buffered intent is consumed. Caller holds
// the instrument lock.
func (e *Engine) admitEntry(st *instrumentState, price float64, nowMs int64, meta models.EventMeta) Decision {
	reentryOK := e.reentryEligible(st, nowMs)

	if windowActive(st.crashLockUntilMs, nowMs) {
		st.lastAction = "enter_blocked_crash_lock"
		return reject(ReasonCrashLock)
	}
	if st.position.open {
		st.lastAction = "enter_blocked_in_position"
		return reject(ReasonInPosition)
	}
	if windowActive(st.cooldownUntilMs, nowMs) && !reentryOK {
		st.lastAction = "enter_blocked_cooldown"
		return reject(ReasonCooldown)
	}
	if !st.heartbeatFresh(&e.opts, nowMs) {
		st.lastAction = "enter_blocked_stale_heartbeat"
		return reject(ReasonStaleHeartbeat)
	}
	if windowActive(st.conservativeUntilMs, nowMs) && e.regimeOf(st) != models.RegimeTrend {
		st.lastAction = "enter_blocked_conservative"
		return reject(ReasonConservativeRange)
	}

	if st.activation.active {
		return e.admitViaActivation(st, price, nowMs, meta)
	}
	if reentryOK {
		return e.admitViaReentry(st, price, nowMs, meta)
	}

	// Not armed and no window open: buffer the intent so a prompt arm at a
	// matching price can still consume it.
	if e.opts.PendingTTLMs > 0 {
		st.pending = &pendingEntry{
			price:       price,
			expiresAtMs: nowMs + e.opts.PendingTTLMs,
			meta:        meta,
		}
		e.log.Info("entry buffered pending activation",
			logger.String("instrument", st.instrument),
			logger.Any("price", price))
	}
	st.lastAction = "enter_blocked_not_ready"
	return reject(ReasonNotReady)
}

func (e *Engine) admitViaActivation(st *instrumentState, price float64, nowMs int64, meta models.EventMeta) Decision {
	if !st.activation.hasRef {
		st.lastAction = "enter_blocked_missing_reference"
		return reject(ReasonMissingPrice)
	}
	drift, ok := pctDiff(st.activation.refPrice, price)
	if !ok {
		st.lastAction = "enter_blocked_bad_price"
		return reject(ReasonMissingPrice)
	}

	bound := e.opts.driftBoundPct(e.regimeOf(st))
	if drift > bound {
		// hard reset: a drift breach invalidates the whole activation
		e.log.Warn("entry drift breach, clearing activation",
			logger.String("instrument", st.instrument),
			logger.Any("drift_pct", drift),
			logger.Any("bound_pct", bound))
		e.clearActivation(st, "hard_reset_price_drift")
		st.lastAction = "enter_blocked_drift_reset"
		return reject(ReasonDriftReset)
	}

	tr := e.openPosition(st, price, false, nowMs, mergeMeta(st.activation.meta, meta))
	e.log.Info("entry approved",
		logger.String("instrument", st.instrument),
		logger.Any("price", price),
		logger.Any("drift_pct", drift),
		logger.String("regime", e.regimeOf(st)))
	return Decision{Accepted: true, Transitions: []models.Transition{tr}}
}

func (e *Engine) admitViaReentry(st *instrumentState, price float64, nowMs int64, meta models.EventMeta) Decision {
	if e.opts.ReentryRequireTrend && e.regimeOf(st) != models.RegimeTrend {
		st.lastAction = "reentry_blocked_regime"
		return reject(ReasonReentryRange)
	}

	move, ok := pctMove(st.reentry.refPrice, price)
	if !ok {
		st.lastAction = "reentry_blocked_bad_price"
		return reject(ReasonMissingPrice)
	}
	if e.opts.ShortSide {
		move = -move
	}
	// adverse move beyond the fall bound, or chasing beyond the rise bound
	if -move > e.opts.ReentryMaxFallPct {
		st.lastAction = "reentry_blocked_fall"
		return reject(ReasonReentryFall)
	}
	if move > e.opts.ReentryMaxRisePct {
		st.lastAction = "reentry_blocked_rise"
		return reject(ReasonReentryRise)
	}

	st.reentry.triesUsed++
	tries := st.reentry.triesUsed
	if tries >= e.opts.ReentryMaxTries {
		st.reentry = reentryWindow{}
	}

	tr := e.openPosition(st, price, true, nowMs, meta)
	e.log.Info("re-entry approved",
		logger.String("instrument", st.instrument),
		logger.Any("price", price),
		logger.Any("move_pct", move),
		logger.Int("tries_used", tries))
	return Decision{Accepted: true, Transitions: []models.Transition{tr}}
}

func mergeMeta(primary, fallback models.EventMeta) models.EventMeta {
	if primary.TVExchange == "" {
		primary.TVExchange = fallback.TVExchange
	}
	if primary.TVInstrument == "" {
		primary.TVInstrument = fallback.TVInstrument
	}
	if primary.Timestamp == "" {
		primary.Timestamp = fallback.Timestamp
	}
	return primary
}
