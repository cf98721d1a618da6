package repository

import (
	"context"

	"TickBrain/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Sink delivers an approved transition to the execution boundary.
// The result is best-effort: a failed delivery never rolls back engine state.
type Sink interface {
	Deliver(ctx context.Context, tr *models.Transition) models.SinkResult
}

// TransitionPublisher fans emitted transitions out to a broker topic.
type TransitionPublisher interface {
	Publish(ctx context.Context, tr *models.Transition) error
	Close() error
}

// Journal appends decisions and transitions for audit and reconciliation.
type Journal interface {
	Init(ctx context.Context) error // ensure tables, health checks
	AppendDecision(ctx context.Context, rec *models.DecisionRecord) error
	AppendTransition(ctx context.Context, tr *models.Transition, sink models.SinkResult) error
	Health(ctx context.Context) error // ping
	Close() error
}

// Deduper remembers recently seen event IDs.
type Deduper interface {
	Seen(ctx context.Context, eventID string) bool
}

type Metrics interface {
	RecordDecision(kind, outcome string)
	RecordRejection(reason string)
	RecordRegime(instrument, regime string)
	RecordLastPrice(instrument string, price float64)
	RecordTickDepth(instrument string, n int)
	RecordSinkLatency(seconds float64)
	RecordLatency(op string, seconds float64)
	RecordError(kind string)
}
