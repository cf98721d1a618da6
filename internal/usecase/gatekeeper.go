package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"TickBrain/internal/domain/models"
	drepo "TickBrain/internal/domain/repository"
	"TickBrain/internal/engine"
	"TickBrain/pkg/logger"
)

// ErrUnauthorized is returned when the webhook secret does not match.
var ErrUnauthorized = errors.New("invalid webhook secret")

const ReasonDuplicate = "duplicate_event"

// Gatekeeper is the ingress orchestrator: it authenticates and deduplicates
// inbound webhooks, normalizes them into engine events, journals every
// decision and fans approved transitions out to the sink, the broker and the
// journal. Engine state is committed before any delivery starts, so a sink
// outage can never roll back a decision.
type Gatekeeper struct {
	eng     *engine.Engine
	sink    drepo.Sink
	pub     drepo.TransitionPublisher
	journal drepo.Journal
	dedup   drepo.Deduper
	metrics drepo.Metrics
	log     *logger.Logger

	secret      []byte
	sinkTimeout time.Duration
}

// NewGatekeeper creates a new Gatekeeper. pub, journal and dedup may be nil
// when the corresponding backend is disabled.
func NewGatekeeper(
	eng *engine.Engine,
	sink drepo.Sink,
	pub drepo.TransitionPublisher,
	journal drepo.Journal,
	dedup drepo.Deduper,
	metrics drepo.Metrics,
	log *logger.Logger,
	secret string,
	sinkTimeout time.Duration,
) *Gatekeeper {
	if sinkTimeout <= 0 {
		sinkTimeout = 5 * time.Second
	}
	return &Gatekeeper{
		eng:         eng,
		sink:        sink,
		pub:         pub,
		journal:     journal,
		dedup:       dedup,
		metrics:     metrics,
		log:         log,
		secret:      []byte(secret),
		sinkTimeout: sinkTimeout,
	}
}

// HandleWebhook processes one inbound webhook payload end to end and returns
// the synchronous acknowledgment. ErrUnauthorized maps to 401 upstream.
func (g *Gatekeeper) HandleWebhook(ctx context.Context, req *models.WebhookRequest) (*models.Ack, error) {
	start := time.Now()

	if subtle.ConstantTimeCompare([]byte(req.ResolveSecret()), g.secret) != 1 {
		g.metrics.RecordError("auth")
		return nil, ErrUnauthorized
	}

	ev := g.buildEvent(req)
	if req.EventID != "" && g.dedup != nil && g.dedup.Seen(ctx, req.EventID) {
		g.log.Debug("duplicate event suppressed",
			logger.String("event_id", req.EventID),
			logger.String("instrument", ev.Instrument))
		g.metrics.RecordDecision(ev.Kind, "duplicate")
		return &models.Ack{Accepted: true, Reason: ReasonDuplicate}, nil
	}

	dec := g.eng.Handle(ev)
	g.journalDecision(ctx, ev, dec)

	ack := &models.Ack{Accepted: dec.Accepted, Reason: dec.Reason}
	for i := range dec.Transitions {
		tr := &dec.Transitions[i]
		res := g.deliver(ctx, tr)
		ack.Actions = append(ack.Actions, tr.Action)
		ack.Sink = append(ack.Sink, res)
	}

	g.metrics.RecordLatency("webhook", time.Since(start).Seconds())
	return ack, nil
}

// ProcessTick feeds one stream-sourced tick into the engine. Transitions
// emitted by the trailing exit are delivered the same way webhook-driven
// ones are.
func (g *Gatekeeper) ProcessTick(ctx context.Context, t *models.Tick) error {
	if t == nil || t.Instrument == "" {
		return errors.New("invalid tick")
	}

	dec := g.eng.HandleTick(&models.Event{
		Kind:        models.KindTick,
		Instrument:  t.Instrument,
		Price:       t.Price,
		HasPrice:    true,
		TimestampMs: t.TimestampMs,
	})
	for i := range dec.Transitions {
		g.deliver(ctx, &dec.Transitions[i])
	}
	return nil
}

// State returns the introspection snapshot for one instrument.
func (g *Gatekeeper) State(instrument string) (models.InstrumentState, bool) {
	return g.eng.Snapshot(instrument)
}

// Instruments lists every instrument the engine tracks.
func (g *Gatekeeper) Instruments() []string {
	return g.eng.Instruments()
}

// buildEvent normalizes the raw payload using the kind-specific price chain.
func (g *Gatekeeper) buildEvent(req *models.WebhookRequest) *models.Event {
	kind := req.ResolveKind()

	var price float64
	var ok bool
	switch kind {
	case models.KindArm:
		price, ok = req.ResolveArmPrice()
	case models.KindTick:
		price, ok = req.ResolveTickPrice()
	default:
		price, ok = req.ResolveIntentPrice()
	}

	return &models.Event{
		Kind:        kind,
		Instrument:  req.ResolveInstrument(),
		Price:       price,
		HasPrice:    ok,
		TimestampMs: req.ResolveTimestampMs(time.Now().UnixMilli()),
		Timeframe:   req.TF,
		EventID:     req.EventID,
		ExitReason:  req.ExitReason,
		Meta:        req.ResolveMeta(),
	}
}

// deliver pushes one committed transition to the sink, the broker and the
// journal. Failures are logged and counted; none of them affect the decision.
func (g *Gatekeeper) deliver(ctx context.Context, tr *models.Transition) models.SinkResult {
	sctx, cancel := context.WithTimeout(ctx, g.sinkTimeout)
	defer cancel()

	start := time.Now()
	res := g.sink.Deliver(sctx, tr)
	g.metrics.RecordSinkLatency(time.Since(start).Seconds())

	if !res.Accepted && !res.Skipped {
		g.metrics.RecordError("sink_delivery")
		g.log.Warn("sink delivery failed",
			logger.String("instrument", tr.Instrument),
			logger.String("action", tr.Action),
			logger.Int("status", res.Status),
			logger.String("detail", res.Detail))
	}

	if g.pub != nil {
		if err := g.pub.Publish(ctx, tr); err != nil {
			g.metrics.RecordError("transition_publish")
			g.log.Warn("transition publish failed", logger.Error(err))
		}
	}
	if g.journal != nil {
		if err := g.journal.AppendTransition(ctx, tr, res); err != nil {
			g.metrics.RecordError("journal_transition")
			g.log.Warn("transition journal failed", logger.Error(err))
		}
	}
	return res
}

func (g *Gatekeeper) journalDecision(ctx context.Context, ev *models.Event, dec engine.Decision) {
	if g.journal == nil {
		return
	}
	regime := ""
	if snap, ok := g.eng.Snapshot(ev.Instrument); ok {
		regime = snap.Regime.Regime
	}
	rec := &models.DecisionRecord{
		TimestampMs: ev.TimestampMs,
		Instrument:  ev.Instrument,
		Kind:        ev.Kind,
		Accepted:    dec.Accepted,
		Reason:      dec.Reason,
		Price:       ev.Price,
		Regime:      regime,
	}
	if err := g.journal.AppendDecision(ctx, rec); err != nil {
		g.metrics.RecordError("journal_decision")
		g.log.Warn("decision journal failed", logger.Error(err))
	}
}
