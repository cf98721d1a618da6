package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"TickBrain/internal/domain/models"
)

type fakeStream struct {
	mu         sync.Mutex
	reads      int
	reconnects int
	tickCh     chan *models.Tick
	errCh      chan error
}

func (s *fakeStream) Connect(ctx context.Context) error   { return nil }
func (s *fakeStream) Subscribe(ctx context.Context) error { return nil }
func (s *fakeStream) Close() error                        { return nil }
func (s *fakeStream) IsConnected() bool                   { return true }

func (s *fakeStream) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	return nil
}

func (s *fakeStream) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	s.tickCh = make(chan *models.Tick, 16)
	s.errCh = make(chan error, 1)
	return s.tickCh, s.errCh
}

func (s *fakeStream) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *fakeStream) current() (chan *models.Tick, chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickCh, s.errCh
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestCollectorResubscribesAfterStreamError(t *testing.T) {
	g, _, _ := newTestGatekeeper(t)
	stream := &fakeStream{}
	c := NewTickCollector(stream, g, nopMetrics{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	// fail the first read pair the way the venue client does: one error,
	// then both channels closed
	tickCh, errCh := stream.current()
	errCh <- fmt.Errorf("venue read: connection reset")
	close(tickCh)
	close(errCh)

	waitFor(t, func() bool { return stream.readCount() == 2 })

	// ticks from the fresh pair must still reach the gate
	tickCh2, _ := stream.current()
	tickCh2 <- &models.Tick{Instrument: "BINANCE:SOLUSDT", Price: 42, TimestampMs: 1_700_000_000_000}

	waitFor(t, func() bool {
		snap, ok := g.State("BINANCE:SOLUSDT")
		return ok && snap.LastTickPrice == 42
	})
}
