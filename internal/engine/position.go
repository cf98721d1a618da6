package engine

import (
	"TickBrain/internal/domain/models"
	"TickBrain/pkg/logger"
)

// openPosition commits the entry and returns the enter transition.
// Opening consumes the activation and any pending buffer. Caller holds the
// instrument lock.
func (e *Engine) openPosition(st *instrumentState, price float64, fromReentry bool, nowMs int64, meta models.EventMeta) models.Transition {
	st.position = positionContext{
		open:         true,
		entryPrice:   price,
		extremePrice: price,
		openedAtMs:   nowMs,
		fromReentry:  fromReentry,
		meta:         meta,
	}
	st.activation = activationContext{}
	st.pending = nil
	st.lastAction = "enter"

	return models.Transition{
		Action:      models.ActionEnter,
		Instrument:  st.instrument,
		Price:       price,
		TimestampMs: nowMs,
		Reason:      "entry_admitted",
		Meta:        meta,
	}
}

// HandleExit processes an explicit exit intent. Below the configured
// profit floor the intent is ignored unless the producer supplied an
// explicit exit reason.
func (e *Engine) HandleExit(ev *models.Event) Decision {
	if ev.Instrument == "" {
		return reject(ReasonMissingInstrument)
	}

	st := e.state(ev.Instrument)
	st.mu.Lock()
	defer st.mu.Unlock()

	now := e.clock.NowMs()
	e.expireTimers(st, now)

	if !st.position.open {
		st.lastAction = "exit_no_position"
		return e.decide(models.KindExit, reject(ReasonNoPosition))
	}

	price, has := ev.Price, ev.HasPrice
	if !has && st.lastTickPrice != 0 {
		price, has = st.lastTickPrice, true
	}

	if e.opts.MinExitProfitPct > 0 && ev.ExitReason == "" && has {
		if p, ok := e.favorableExcursionPct(st, price); ok && p < e.opts.MinExitProfitPct {
			st.lastAction = "exit_blocked_profit_filter"
			e.log.Info("exit ignored by profit filter",
				logger.String("instrument", st.instrument),
				logger.Any("profit_pct", p),
				logger.Any("floor_pct", e.opts.MinExitProfitPct))
			return e.decide(models.KindExit, reject(ReasonProfitFilter))
		}
	}

	reason := "exit_intent"
	if ev.ExitReason != "" {
		reason = ev.ExitReason
	}
	tr := e.closePosition(st, price, has, reason, now, mergeMeta(st.position.meta, ev.Meta))
	return e.decide(models.KindExit, Decision{Accepted: true, Transitions: []models.Transition{tr}})
}

// evalTrailingExit runs on every tick while a position is open: track the
// favorable extreme, arm once the excursion reaches the arm threshold, and
// exit once the retracement from the extreme reaches the giveback.
func (e *Engine) evalTrailingExit(st *instrumentState, price float64, nowMs int64) *models.Transition {
	if !e.opts.ExitEnabled || !st.position.open {
		return nil
	}

	if e.opts.ShortSide {
		if price < st.position.extremePrice {
			st.position.extremePrice = price
		}
	} else if price > st.position.extremePrice {
		st.position.extremePrice = price
	}

	profit, ok := e.favorableExcursionPct(st, price)
	if !ok {
		return nil
	}

	armPct, givebackPct := e.exitThresholds(st, nowMs)

	if !st.position.exitArmed && profit >= armPct {
		// monotonic: once armed, never un-arms
		st.position.exitArmed = true
		e.log.Info("trailing exit armed",
			logger.String("instrument", st.instrument),
			logger.Any("profit_pct", profit),
			logger.Any("arm_pct", armPct))
	}
	if !st.position.exitArmed {
		return nil
	}

	retr, ok := e.retracementPct(st, price)
	if !ok || retr < givebackPct {
		return nil
	}

	e.log.Info("trailing exit fired",
		logger.String("instrument", st.instrument),
		logger.Any("price", price),
		logger.Any("extreme", st.position.extremePrice),
		logger.Any("giveback_pct", givebackPct))

	tr := e.closePosition(st, price, true, "profit_lock_exit", nowMs, st.position.meta)
	return &tr
}

// favorableExcursionPct is the signed profit from entry at price, with the
// sign flipped for short-side deployments.
func (e *Engine) favorableExcursionPct(st *instrumentState, price float64) (float64, bool) {
	p, ok := pctMove(st.position.entryPrice, price)
	if !ok {
		return 0, false
	}
	if e.opts.ShortSide {
		p = -p
	}
	return p, true
}

// retracementPct is the giveback from the favorable extreme at price.
func (e *Engine) retracementPct(st *instrumentState, price float64) (float64, bool) {
	p, ok := pctMove(st.position.extremePrice, price)
	if !ok {
		return 0, false
	}
	if !e.opts.ShortSide {
		p = -p
	}
	return p, true
}

// exitThresholds computes the effective arm/giveback pair: fixed values,
// or volatility-scaled per regime when adaptive mode is on, then clamped.
func (e *Engine) exitThresholds(st *instrumentState, nowMs int64) (armPct, givebackPct float64) {
	armPct, givebackPct = e.opts.ArmPct, e.opts.GivebackPct

	if e.opts.AdaptiveExit {
		if vol, ok := e.currentVolPct(st, nowMs); ok {
			armMult, giveMult := e.opts.ArmVolMultTrend, e.opts.GiveVolMultTrend
			if e.opts.RegimeEnabled && e.regimeOf(st) == models.RegimeRange {
				armMult, giveMult = e.opts.ArmVolMultRange, e.opts.GiveVolMultRange
			}
			armPct = armMult * vol
			givebackPct = giveMult * vol
		}
	}

	if e.opts.MinArmPct > 0 && armPct < e.opts.MinArmPct {
		armPct = e.opts.MinArmPct
	}
	if e.opts.MinGivebackPct > 0 && givebackPct < e.opts.MinGivebackPct {
		givebackPct = e.opts.MinGivebackPct
	}
	if e.opts.MaxArmPct > 0 && armPct > e.opts.MaxArmPct {
		armPct = e.opts.MaxArmPct
	}
	if e.opts.MaxGivebackPct > 0 && givebackPct > e.opts.MaxGivebackPct {
		givebackPct = e.opts.MaxGivebackPct
	}
	return armPct, givebackPct
}

func (e *Engine) currentVolPct(st *instrumentState, nowMs int64) (float64, bool) {
	if e.opts.RegimeEnabled && st.regime.updatedAtMs > 0 && st.regime.volPct > 0 {
		return st.regime.volPct, true
	}
	return st.ticks.VolatilityPct(nowMs, e.opts.VolWindowMs)
}

// closePosition commits the close, feeds the equity stabilizer and the
// re-entry manager, and returns the exit transition. State is fully
// committed before the caller ever talks to the sink.
func (e *Engine) closePosition(st *instrumentState, exitPrice float64, hasPrice bool, reason string, nowMs int64, meta models.EventMeta) models.Transition {
	fromReentry := st.position.fromReentry

	if hasPrice {
		if pnl, ok := e.favorableExcursionPct(st, exitPrice); ok {
			e.noteEquityOutcome(st, pnl, nowMs)
			e.noteReentryClose(st, pnl, exitPrice, fromReentry, nowMs)
		}
	}

	e.clearActivation(st, reason)
	st.position = positionContext{}
	e.startCooldown(st, reason, e.opts.ExitCooldownMs, nowMs)
	st.lastAction = reason

	price := 0.0
	if hasPrice {
		price = exitPrice
	}
	return models.Transition{
		Action:      models.ActionExit,
		Instrument:  st.instrument,
		Price:       price,
		TimestampMs: nowMs,
		Reason:      reason,
		Meta:        meta,
	}
}

func (e *Engine) startCooldown(st *instrumentState, reason string, durMs, nowMs int64) {
	if durMs <= 0 {
		return
	}
	st.cooldownUntilMs = max(st.cooldownUntilMs, nowMs+durMs)
	e.log.Info("cooldown started",
		logger.String("instrument", st.instrument),
		logger.String("reason", reason),
		logger.Int64("until_ms", st.cooldownUntilMs))
}
