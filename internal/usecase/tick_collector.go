package usecase

import (
	"context"

	"TickBrain/internal/domain/models"
	drepo "TickBrain/internal/domain/repository"
	mid "TickBrain/internal/middleware"
)

// TickCollector consumes the venue market stream and feeds ticks into the
// gate, optionally through the realtime pipeline for throttling and
// buffering.
type TickCollector struct {
	stream  drepo.MarketStream
	gate    *Gatekeeper
	metrics drepo.Metrics
	pipe    *mid.RealtimePipeline
}

// NewTickCollector creates a new TickCollector instance.
func NewTickCollector(stream drepo.MarketStream, gate *Gatekeeper, metrics drepo.Metrics, pipe *mid.RealtimePipeline) *TickCollector {
	return &TickCollector{stream: stream, gate: gate, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the market stream is connected.
func (c *TickCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *TickCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	tickCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, tickCh, errCh)
	return nil
}

func (c *TickCollector) consume(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				// read loop gone without a reported error; wait for shutdown
				errCh = nil
				continue
			}
			if err != nil {
				c.metrics.RecordError("stream")
				// the stream closes its channels on error, so a successful
				// reconnect needs a fresh Read pair
				for {
					if rerr := c.stream.Reconnect(ctx); rerr == nil {
						break
					}
					c.metrics.RecordError("stream_reconnect")
					select {
					case <-ctx.Done():
						return
					default:
					}
				}
				tickCh, errCh = c.stream.Read(ctx)
			}
		case t, ok := <-tickCh:
			if !ok {
				tickCh = nil
				continue
			}
			if t == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.ProcessTick(ctx, t)
			} else {
				_ = c.gate.ProcessTick(ctx, t)
			}
		}
	}
}

func (c *TickCollector) Stop() error { return c.stream.Close() }

// Shutdown stops pipeline and closes stream.
func (c *TickCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
