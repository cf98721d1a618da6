package engine

type tickSample struct {
	t int64
	p float64
}

// tickStore is a bounded, time-ordered price window for one instrument.
// Not safe for concurrent use; callers hold the instrument lock.
type tickStore struct {
	retentionMs int64
	samples     []tickSample
}

func newTickStore(retentionMs int64) *tickStore {
	return &tickStore{retentionMs: retentionMs}
}

// Append adds a sample and evicts everything older than retention.
// Non-finite prices and backwards timestamps are dropped silently.
func (s *tickStore) Append(price float64, tMs int64) bool {
	if !isFinite(price) {
		return false
	}
	if n := len(s.samples); n > 0 && tMs < s.samples[n-1].t {
		return false
	}
	s.samples = append(s.samples, tickSample{t: tMs, p: price})

	cutoff := tMs - s.retentionMs
	i := 0
	for i < len(s.samples) && s.samples[i].t < cutoff {
		i++
	}
	if i > 0 {
		s.samples = append(s.samples[:0], s.samples[i:]...)
	}
	return true
}

// PriceAtOrBefore returns the latest sample at or before tMs, falling back
// to the earliest sample when tMs predates the window.
func (s *tickStore) PriceAtOrBefore(tMs int64) (float64, bool) {
	if len(s.samples) == 0 {
		return 0, false
	}
	for i := len(s.samples) - 1; i >= 0; i-- {
		if s.samples[i].t <= tMs {
			return s.samples[i].p, true
		}
	}
	return s.samples[0].p, true
}

func (s *tickStore) Len() int { return len(s.samples) }

func (s *tickStore) Last() (tickSample, bool) {
	if len(s.samples) == 0 {
		return tickSample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// SlopePct is the signed percentage move over the trailing window.
func (s *tickStore) SlopePct(nowMs, windowMs int64) (float64, bool) {
	pNow, ok := s.PriceAtOrBefore(nowMs)
	if !ok {
		return 0, false
	}
	pPast, ok := s.PriceAtOrBefore(nowMs - windowMs)
	if !ok {
		return 0, false
	}
	return pctMove(pPast, pNow)
}

// VolatilityPct is the mean absolute tick-to-tick move inside the trailing
// window, normalized by the window's latest price. Needs three samples.
func (s *tickStore) VolatilityPct(nowMs, windowMs int64) (float64, bool) {
	cutoff := nowMs - windowMs
	start := 0
	for start < len(s.samples) && s.samples[start].t < cutoff {
		start++
	}
	sub := s.samples[start:]
	if len(sub) < 3 {
		return 0, false
	}

	var sum float64
	for i := 1; i < len(sub); i++ {
		d := sub[i].p - sub[i-1].p
		if d < 0 {
			d = -d
		}
		sum += d
	}
	last := sub[len(sub)-1].p
	if last == 0 {
		return 0, false
	}
	mean := sum / float64(len(sub)-1)
	return mean / last * 100.0, true
}
