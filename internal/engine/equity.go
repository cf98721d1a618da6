package engine

import "TickBrain/pkg/logger"

// noteEquityOutcome tracks the loss streak and escalates protection:
// two straight losses start the moderate cooldown, three activate
// conservative mode on top of the long cooldown. Windows only grow.
func (e *Engine) noteEquityOutcome(st *instrumentState, pnlPct float64, nowMs int64) {
	if !e.opts.StabilizerEnabled {
		return
	}

	if pnlPct < 0 {
		st.lossStreak++
	} else {
		st.lossStreak = 0
	}

	e.log.Info("position closed",
		logger.String("instrument", st.instrument),
		logger.Any("pnl_pct", pnlPct),
		logger.Int("loss_streak", st.lossStreak))

	switch {
	case st.lossStreak >= 3:
		if e.opts.ConservativeMs > 0 {
			st.conservativeUntilMs = max(st.conservativeUntilMs, nowMs+e.opts.ConservativeMs)
		}
		e.startCooldown(st, "loss_streak_3", e.opts.LossStreak3CooldownMs, nowMs)
		e.log.Warn("conservative mode on",
			logger.String("instrument", st.instrument),
			logger.Int64("until_ms", st.conservativeUntilMs))
	case st.lossStreak >= 2:
		e.startCooldown(st, "loss_streak_2", e.opts.LossStreak2CooldownMs, nowMs)
	}
}
