package engine

import (
	"math"
	"testing"
)

func TestTickStoreAppendAndEvict(t *testing.T) {
	s := newTickStore(10_000)
	s.Append(100, 1_000)
	s.Append(101, 5_000)
	s.Append(102, 12_000) // evicts the 1s sample (cutoff 2s)

	if s.Len() != 2 {
		t.Fatalf("expected 2 samples after eviction, got %d", s.Len())
	}
	if p, ok := s.PriceAtOrBefore(5_000); !ok || p != 101 {
		t.Fatalf("unexpected price %v ok=%v", p, ok)
	}
}

func TestTickStoreRejectsBadSamples(t *testing.T) {
	s := newTickStore(10_000)
	if s.Append(math.NaN(), 1_000) {
		t.Fatalf("NaN must be dropped")
	}
	if s.Append(math.Inf(1), 1_000) {
		t.Fatalf("Inf must be dropped")
	}
	s.Append(100, 5_000)
	if s.Append(101, 4_000) {
		t.Fatalf("backwards timestamp must be dropped")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 sample, got %d", s.Len())
	}

	// equal timestamps are allowed (non-decreasing invariant)
	if !s.Append(101, 5_000) {
		t.Fatalf("equal timestamp should append")
	}
}

func TestPriceAtOrBeforeNeverNewer(t *testing.T) {
	s := newTickStore(1_000_000)
	for i := int64(0); i < 50; i++ {
		s.Append(100+float64(i), i*1_000)
	}

	for q := int64(0); q < 55_000; q += 777 {
		p, ok := s.PriceAtOrBefore(q)
		if !ok {
			t.Fatalf("window not empty, query %d", q)
		}
		// the sample's own timestamp is recoverable from the price ramp
		ts := int64(p-100) * 1_000
		if ts > q {
			t.Fatalf("returned sample at %d is newer than query %d", ts, q)
		}
	}
}

func TestPriceAtOrBeforeFallsBackToEarliest(t *testing.T) {
	s := newTickStore(1_000_000)
	s.Append(100, 10_000)
	s.Append(101, 20_000)

	if p, ok := s.PriceAtOrBefore(5_000); !ok || p != 100 {
		t.Fatalf("expected earliest fallback, got %v ok=%v", p, ok)
	}
}

func TestPriceAtOrBeforeEmpty(t *testing.T) {
	s := newTickStore(1_000_000)
	if _, ok := s.PriceAtOrBefore(10); ok {
		t.Fatalf("empty window must return none")
	}
}

func TestSlopePct(t *testing.T) {
	s := newTickStore(1_000_000)
	s.Append(100, 0)
	s.Append(102, 300_000)

	slope, ok := s.SlopePct(300_000, 300_000)
	if !ok || slope != 2 {
		t.Fatalf("unexpected slope %v ok=%v", slope, ok)
	}
}

func TestVolatilityPct(t *testing.T) {
	s := newTickStore(1_000_000)
	s.Append(100, 0)
	s.Append(101, 1_000)
	s.Append(100, 2_000)
	s.Append(101, 3_000)

	// mean |delta| is 1, latest price 101
	vol, ok := s.VolatilityPct(3_000, 10_000)
	if !ok {
		t.Fatalf("expected volatility")
	}
	want := 1.0 / 101 * 100
	if math.Abs(vol-want) > 1e-12 {
		t.Fatalf("unexpected volatility %v want %v", vol, want)
	}
}

func TestVolatilityNeedsThreeSamples(t *testing.T) {
	s := newTickStore(1_000_000)
	s.Append(100, 0)
	s.Append(101, 1_000)
	if _, ok := s.VolatilityPct(1_000, 10_000); ok {
		t.Fatalf("two samples must not produce volatility")
	}
}
