package engine

import (
	"TickBrain/internal/domain/models"
	"TickBrain/pkg/logger"
)

// updateRegime reclassifies after a tick. The primary hysteresis rule runs
// first, then two absolute overrides. The override order is load-bearing:
// it keeps the classifier from oscillating around the trend thresholds
// while still allowing a fast re-engage after a volatility spike.
func (e *Engine) updateRegime(st *instrumentState, nowMs int64) {
	if !e.opts.RegimeEnabled {
		return
	}
	if st.ticks.Len() < e.opts.RegimeMinTicks {
		return
	}
	slope, ok := st.ticks.SlopePct(nowMs, e.opts.SlopeWindowMs)
	if !ok {
		return
	}
	vol, ok := st.ticks.VolatilityPct(nowMs, e.opts.VolWindowMs)
	if !ok {
		return
	}

	prev := st.regime.regime
	abs := slope
	if abs < 0 {
		abs = -abs
	}

	next := prev
	if prev == models.RegimeRange {
		if abs >= e.opts.TrendSlopeOnPct && vol >= e.opts.VolFloorPct {
			next = models.RegimeTrend
		}
	} else if abs <= e.opts.TrendSlopeOffPct {
		next = models.RegimeRange
	}

	if abs <= e.opts.RangeSlopeOnPct {
		next = models.RegimeRange
	}
	if abs >= e.opts.RangeSlopeOffPct && abs >= e.opts.TrendSlopeOnPct && vol >= e.opts.VolFloorPct {
		next = models.RegimeTrend
	}

	st.regime = regimeState{regime: next, slopePct: slope, volPct: vol, updatedAtMs: nowMs}

	if prev != next {
		e.log.Info("regime switch",
			logger.String("instrument", st.instrument),
			logger.String("from", prev),
			logger.String("to", next),
			logger.Any("slope_pct", slope),
			logger.Any("vol_pct", vol))
		e.metrics.RecordRegime(st.instrument, next)
	}
}

func (e *Engine) regimeOf(st *instrumentState) string {
	if st.regime.regime == "" {
		return models.RegimeRange
	}
	return st.regime.regime
}
