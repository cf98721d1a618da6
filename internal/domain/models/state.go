package models

// Regime labels.
const (
	RegimeTrend = "TREND"
	RegimeRange = "RANGE"
)

// RegimeSnapshot is the classifier output for one instrument.
type RegimeSnapshot struct {
	Regime        string  `json:"regime"`
	SlopePct      float64 `json:"slope_pct"`
	VolatilityPct float64 `json:"volatility_pct"`
	UpdatedAtMs   int64   `json:"updated_at_ms"`
}

// ActivationSnapshot mirrors the armed reference-price context.
type ActivationSnapshot struct {
	Active         bool    `json:"active"`
	ReferencePrice float64 `json:"reference_price,omitempty"`
	Timeframe      string  `json:"timeframe,omitempty"`
	ArmedAtMs      int64   `json:"armed_at_ms,omitempty"`
}

// PositionSnapshot mirrors the open position and its trailing-exit state.
type PositionSnapshot struct {
	Open         bool    `json:"open"`
	EntryPrice   float64 `json:"entry_price,omitempty"`
	ExtremePrice float64 `json:"extreme_price,omitempty"`
	ExitArmed    bool    `json:"exit_armed"`
	OpenedAtMs   int64   `json:"opened_at_ms,omitempty"`
	FromReentry  bool    `json:"from_reentry"`
}

// ReentrySnapshot mirrors the bounded post-exit re-entry window.
type ReentrySnapshot struct {
	Active         bool    `json:"active"`
	ReferencePrice float64 `json:"reference_price,omitempty"`
	RegimeAtExit   string  `json:"regime_at_exit,omitempty"`
	TriesUsed      int     `json:"tries_used"`
	TriesMax       int     `json:"tries_max"`
	ExpiresAtMs    int64   `json:"expires_at_ms,omitempty"`
}

// PendingSnapshot mirrors a buffered enter intent awaiting activation.
type PendingSnapshot struct {
	Price       float64 `json:"price"`
	ExpiresAtMs int64   `json:"expires_at_ms"`
}

// InstrumentState is the read-only introspection view of one instrument.
type InstrumentState struct {
	Instrument          string             `json:"instrument"`
	Regime              RegimeSnapshot     `json:"regime"`
	Activation          ActivationSnapshot `json:"activation"`
	Position            PositionSnapshot   `json:"position"`
	Reentry             ReentrySnapshot    `json:"reentry"`
	Pending             *PendingSnapshot   `json:"pending,omitempty"`
	CooldownUntilMs     int64              `json:"cooldown_until_ms"`
	CrashLockUntilMs    int64              `json:"crash_lock_until_ms"`
	ConservativeUntilMs int64              `json:"conservative_until_ms"`
	LossStreak          int                `json:"loss_streak"`
	LastTickMs          int64              `json:"last_tick_ms"`
	LastTickPrice       float64            `json:"last_tick_price"`
	TickCount           int                `json:"tick_count"`
	LastAction          string             `json:"last_action"`
}
