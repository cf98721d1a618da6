package engine

import (
	"TickBrain/internal/domain/models"
	"TickBrain/pkg/logger"
)

// HandleArm establishes (or replaces) the armed reference-price context.
// Arming consumes any outstanding re-entry window and may immediately
// consume a buffered enter intent whose price matches the new reference.
func (e *Engine) HandleArm(ev *models.Event) Decision {
	if ev.Instrument == "" {
		return reject(ReasonMissingInstrument)
	}

	st := e.state(ev.Instrument)
	st.mu.Lock()
	defer st.mu.Unlock()

	now := e.clock.NowMs()
	e.expireTimers(st, now)

	if windowActive(st.crashLockUntilMs, now) {
		st.lastAction = "arm_ignored_crash_lock"
		return e.decide(models.KindArm, reject(ReasonCrashLock))
	}
	if windowActive(st.cooldownUntilMs, now) {
		st.lastAction = "arm_ignored_cooldown"
		return e.decide(models.KindArm, reject(ReasonCooldown))
	}
	if !st.heartbeatFresh(&e.opts, now) {
		st.lastAction = "arm_ignored_stale_heartbeat"
		return e.decide(models.KindArm, reject(ReasonStaleHeartbeat))
	}
	if st.position.open {
		st.lastAction = "arm_ignored_in_position"
		return e.decide(models.KindArm, reject(ReasonInPosition))
	}

	st.activation = activationContext{
		active:    true,
		refPrice:  ev.Price,
		hasRef:    ev.HasPrice,
		timeframe: ev.Timeframe,
		armedAtMs: now,
		meta:      ev.Meta,
	}
	// a fresh arm supersedes any outstanding re-entry window
	st.reentry = reentryWindow{}
	st.lastAction = "armed"

	e.log.Info("activation armed",
		logger.String("instrument", st.instrument),
		logger.Any("reference_price", ev.Price),
		logger.String("timeframe", ev.Timeframe),
		logger.String("regime", e.regimeOf(st)))

	var trs []models.Transition
	if p := st.pending; p != nil && st.activation.hasRef {
		if d, ok := pctDiff(st.activation.refPrice, p.price); ok && d <= e.opts.PendingTolerancePct {
			st.pending = nil
			e.log.Info("consuming buffered entry",
				logger.String("instrument", st.instrument),
				logger.Any("price", p.price))
			if dec := e.admitEntry(st, p.price, now, p.meta); dec.Accepted {
				trs = append(trs, dec.Transitions...)
			}
		}
	}

	return e.decide(models.KindArm, Decision{Accepted: true, Transitions: trs})
}

// checkAutoExpire clears a live activation once the price has drifted past
// the auto-expire bound. Skipped while a position is open.
func (e *Engine) checkAutoExpire(st *instrumentState, price float64) {
	if !e.opts.AutoExpireEnabled || !st.activation.active || st.position.open || !st.activation.hasRef {
		return
	}
	d, ok := pctDiff(st.activation.refPrice, price)
	if !ok {
		return
	}
	if d > e.opts.autoExpireBoundPct() {
		e.log.Info("activation drift auto-expire",
			logger.String("instrument", st.instrument),
			logger.Any("drift_pct", d),
			logger.Any("bound_pct", e.opts.autoExpireBoundPct()))
		e.clearActivation(st, "auto_expire_drift")
		st.lastAction = "activation_auto_expired"
	}
}

func (e *Engine) clearActivation(st *instrumentState, reason string) {
	if !st.activation.active {
		return
	}
	st.activation = activationContext{}
	e.log.Debug("activation cleared",
		logger.String("instrument", st.instrument),
		logger.String("reason", reason))
}
