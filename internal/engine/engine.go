package engine

import (
	"sync"

	"TickBrain/internal/domain/models"
	drepo "TickBrain/internal/domain/repository"
	"TickBrain/pkg/logger"
)

// Machine-readable decision reasons. Gate rejections are normal outcomes,
// not errors; the reason travels back in the acknowledgment.
const (
	ReasonCrashLock          = "crash_lock_active"
	ReasonCooldown           = "cooldown_active"
	ReasonStaleHeartbeat     = "stale_heartbeat"
	ReasonInPosition         = "already_in_position"
	ReasonNotReady           = "not_ready"
	ReasonConservativeRange  = "conservative_blocks_range"
	ReasonDriftReset         = "price_drift_reset"
	ReasonMissingPrice       = "missing_price"
	ReasonMissingInstrument  = "missing_instrument"
	ReasonInstrumentMismatch = "instrument_mismatch"
	ReasonReentryFall        = "reentry_fall_breach"
	ReasonReentryRise        = "reentry_rise_breach"
	ReasonReentryRange       = "reentry_requires_trend"
	ReasonProfitFilter       = "profit_filter"
	ReasonNoPosition         = "no_position"
	ReasonUnknownKind        = "unknown_kind"
)

// Decision is the engine's verdict for one inbound event. Transitions are
// emitted with state already committed; delivery happens outside the engine.
type Decision struct {
	Accepted    bool
	Reason      string
	Transitions []models.Transition
}

func reject(reason string) Decision {
	return Decision{Accepted: false, Reason: reason}
}

// decide records the outcome before handing the decision back.
func (e *Engine) decide(kind string, dec Decision) Decision {
	if dec.Accepted {
		e.metrics.RecordDecision(kind, "accepted")
	} else {
		e.metrics.RecordDecision(kind, "rejected")
		e.metrics.RecordRejection(dec.Reason)
	}
	return dec
}

type activationContext struct {
	active    bool
	refPrice  float64
	hasRef    bool
	timeframe string
	armedAtMs int64
	meta      models.EventMeta
}

type positionContext struct {
	open         bool
	entryPrice   float64
	extremePrice float64
	exitArmed    bool
	openedAtMs   int64
	fromReentry  bool
	meta         models.EventMeta
}

type reentryWindow struct {
	active       bool
	refPrice     float64
	regimeAtExit string
	triesUsed    int
	expiresAtMs  int64
}

type pendingEntry struct {
	price       float64
	expiresAtMs int64
	meta        models.EventMeta
}

type regimeState struct {
	regime      string
	slopePct    float64
	volPct      float64
	updatedAtMs int64
}

// instrumentState is the single mutable region for one instrument. Every
// event handler locks it for the full read-decide-mutate span.
type instrumentState struct {
	mu sync.Mutex

	instrument string
	ticks      *tickStore
	regime     regimeState
	activation activationContext
	position   positionContext
	reentry    reentryWindow
	pending    *pendingEntry

	cooldownUntilMs     int64
	crashLockUntilMs    int64
	conservativeUntilMs int64
	lossStreak          int

	lastTickMs    int64
	lastTickPrice float64
	lastAction    string
}

func windowActive(untilMs, nowMs int64) bool {
	return untilMs > 0 && nowMs < untilMs
}

func (st *instrumentState) heartbeatFresh(opts *Options, nowMs int64) bool {
	if !opts.RequireFreshHeartbeat {
		return true
	}
	if st.lastTickMs == 0 {
		return false
	}
	return nowMs-st.lastTickMs <= opts.HeartbeatMaxAgeMs
}

// Engine is the signal gate. It owns all per-instrument state and decides
// every tick and trade intent; events for distinct instruments run in
// parallel, events for one instrument are serialized on its lock.
type Engine struct {
	opts    Options
	clock   Clock
	log     *logger.Logger
	metrics drepo.Metrics

	mu          sync.RWMutex
	instruments map[string]*instrumentState
}

func New(opts Options, clock Clock, log *logger.Logger, metrics drepo.Metrics) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	return &Engine{
		opts:        opts,
		clock:       clock,
		log:         log,
		metrics:     metrics,
		instruments: make(map[string]*instrumentState),
	}
}

// Handle dispatches an event by kind. Unknown kinds are acknowledged as
// no-ops so forward-compatible producers never see a hard error.
func (e *Engine) Handle(ev *models.Event) Decision {
	switch ev.Kind {
	case models.KindTick:
		return e.HandleTick(ev)
	case models.KindArm:
		return e.HandleArm(ev)
	case models.KindEnter:
		return e.HandleEnter(ev)
	case models.KindExit:
		return e.HandleExit(ev)
	default:
		e.metrics.RecordDecision(ev.Kind, "noop")
		return Decision{Accepted: true, Reason: ReasonUnknownKind}
	}
}

// HandleTick updates the tick window, recomputes regime and crash state,
// checks activation drift expiry and evaluates the trailing exit.
func (e *Engine) HandleTick(ev *models.Event) Decision {
	if ev.Instrument == "" {
		return reject(ReasonMissingInstrument)
	}
	if !ev.HasPrice {
		return reject(ReasonMissingPrice)
	}

	st := e.state(ev.Instrument)
	st.mu.Lock()
	defer st.mu.Unlock()

	now := e.clock.NowMs()
	e.expireTimers(st, now)

	st.lastTickMs = ev.TimestampMs
	st.lastTickPrice = ev.Price
	st.ticks.Append(ev.Price, ev.TimestampMs)

	e.updateRegime(st, now)
	e.checkCrash(st, now)
	e.checkAutoExpire(st, ev.Price)

	var trs []models.Transition
	if tr := e.evalTrailingExit(st, ev.Price, now); tr != nil {
		trs = append(trs, *tr)
	}

	st.lastAction = "tick"
	e.metrics.RecordLastPrice(st.instrument, ev.Price)
	e.metrics.RecordTickDepth(st.instrument, st.ticks.Len())
	e.metrics.RecordDecision(models.KindTick, "accepted")
	return Decision{Accepted: true, Transitions: trs}
}

// expireTimers clears every elapsed window. Runs at the top of each event
// under the instrument lock, replacing wall-clock polling.
func (e *Engine) expireTimers(st *instrumentState, nowMs int64) {
	if st.activation.active && e.opts.ActivationTTLMs > 0 &&
		nowMs-st.activation.armedAtMs > e.opts.ActivationTTLMs {
		e.clearActivation(st, "ttl_expired")
	}
	if st.reentry.active && nowMs >= st.reentry.expiresAtMs {
		st.reentry = reentryWindow{}
		e.log.Debug("reentry window expired", logger.String("instrument", st.instrument))
	}
	if st.pending != nil && nowMs >= st.pending.expiresAtMs {
		st.pending = nil
		e.log.Debug("pending entry expired", logger.String("instrument", st.instrument))
	}
}

func (e *Engine) state(instrument string) *instrumentState {
	e.mu.RLock()
	st, ok := e.instruments[instrument]
	e.mu.RUnlock()
	if ok {
		return st
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok = e.instruments[instrument]; ok {
		return st
	}
	st = &instrumentState{
		instrument: instrument,
		ticks:      newTickStore(e.opts.TickRetentionMs),
		regime:     regimeState{regime: models.RegimeRange},
	}
	e.instruments[instrument] = st
	return st
}

// Instruments lists every instrument the engine has seen.
func (e *Engine) Instruments() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.instruments))
	for k := range e.instruments {
		out = append(out, k)
	}
	return out
}

// Snapshot returns a read-only copy of one instrument's state.
func (e *Engine) Snapshot(instrument string) (models.InstrumentState, bool) {
	e.mu.RLock()
	st, ok := e.instruments[instrument]
	e.mu.RUnlock()
	if !ok {
		return models.InstrumentState{}, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	out := models.InstrumentState{
		Instrument: st.instrument,
		Regime: models.RegimeSnapshot{
			Regime:        st.regime.regime,
			SlopePct:      st.regime.slopePct,
			VolatilityPct: st.regime.volPct,
			UpdatedAtMs:   st.regime.updatedAtMs,
		},
		Activation: models.ActivationSnapshot{
			Active:         st.activation.active,
			ReferencePrice: st.activation.refPrice,
			Timeframe:      st.activation.timeframe,
			ArmedAtMs:      st.activation.armedAtMs,
		},
		Position: models.PositionSnapshot{
			Open:         st.position.open,
			EntryPrice:   st.position.entryPrice,
			ExtremePrice: st.position.extremePrice,
			ExitArmed:    st.position.exitArmed,
			OpenedAtMs:   st.position.openedAtMs,
			FromReentry:  st.position.fromReentry,
		},
		Reentry: models.ReentrySnapshot{
			Active:         st.reentry.active,
			ReferencePrice: st.reentry.refPrice,
			RegimeAtExit:   st.reentry.regimeAtExit,
			TriesUsed:      st.reentry.triesUsed,
			TriesMax:       e.opts.ReentryMaxTries,
			ExpiresAtMs:    st.reentry.expiresAtMs,
		},
		CooldownUntilMs:     st.cooldownUntilMs,
		CrashLockUntilMs:    st.crashLockUntilMs,
		ConservativeUntilMs: st.conservativeUntilMs,
		LossStreak:          st.lossStreak,
		LastTickMs:          st.lastTickMs,
		LastTickPrice:       st.lastTickPrice,
		TickCount:           st.ticks.Len(),
		LastAction:          st.lastAction,
	}
	if st.pending != nil {
		out.Pending = &models.PendingSnapshot{
			Price:       st.pending.price,
			ExpiresAtMs: st.pending.expiresAtMs,
		}
	}
	return out, true
}
