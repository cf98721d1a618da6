package engine

// Options carries every engine threshold. All durations are milliseconds;
// zero generally disables the corresponding window or clamp.
type Options struct {
	// Activation and entry gating
	MaxDriftPct       float64
	MaxDriftPctTrend  float64 // 0 = use MaxDriftPct
	MaxDriftPctRange  float64 // 0 = use MaxDriftPct
	AutoExpireEnabled bool
	AutoExpirePct     float64 // 0 = use MaxDriftPct
	ActivationTTLMs   int64   // 0 disables
	ExitCooldownMs    int64   // 0 disables

	// Heartbeat freshness
	RequireFreshHeartbeat bool
	HeartbeatMaxAgeMs     int64

	// Regime classification
	RegimeEnabled    bool
	SlopeWindowMs    int64
	VolWindowMs      int64
	TickRetentionMs  int64
	RegimeMinTicks   int
	TrendSlopeOnPct  float64
	TrendSlopeOffPct float64
	RangeSlopeOnPct  float64
	RangeSlopeOffPct float64
	VolFloorPct      float64

	// Crash protection
	CrashEnabled    bool
	CrashDrop1mPct  float64
	CrashDrop5mPct  float64
	CrashCooldownMs int64

	// Trailing exit
	ExitEnabled      bool
	AdaptiveExit     bool
	ArmPct           float64 // fixed fallback
	GivebackPct      float64 // fixed fallback
	ArmVolMultTrend  float64
	GiveVolMultTrend float64
	ArmVolMultRange  float64
	GiveVolMultRange float64
	MinArmPct        float64
	MinGivebackPct   float64
	MaxArmPct        float64
	MaxGivebackPct   float64
	MinExitProfitPct float64
	ShortSide        bool

	// Equity stabilizer
	StabilizerEnabled     bool
	LossStreak2CooldownMs int64
	LossStreak3CooldownMs int64
	ConservativeMs        int64

	// Re-entry window
	ReentryEnabled      bool
	ReentryWindowMs     int64
	ReentryMaxTries     int
	ReentryMaxFallPct   float64
	ReentryMaxRisePct   float64
	ReentrySkipPnLPct   float64
	ReentryRequireTrend bool

	// Pending entry buffer
	PendingTTLMs        int64
	PendingTolerancePct float64
}

// DefaultOptions mirrors the thresholds of the original deployment.
func DefaultOptions() Options {
	return Options{
		MaxDriftPct:       1.2,
		AutoExpireEnabled: true,
		AutoExpirePct:     0,

		RequireFreshHeartbeat: true,
		HeartbeatMaxAgeMs:     240_000,

		RegimeEnabled:    true,
		SlopeWindowMs:    300_000,
		VolWindowMs:      300_000,
		TickRetentionMs:  1_800_000,
		RegimeMinTicks:   10,
		TrendSlopeOnPct:  0.25,
		TrendSlopeOffPct: 0.18,
		RangeSlopeOnPct:  0.12,
		RangeSlopeOffPct: 0.16,
		VolFloorPct:      0.20,

		CrashEnabled:    true,
		CrashDrop1mPct:  2.0,
		CrashDrop5mPct:  4.0,
		CrashCooldownMs: 45 * 60_000,

		ExitEnabled:      true,
		AdaptiveExit:     true,
		ArmPct:           0.6,
		GivebackPct:      0.35,
		ArmVolMultTrend:  2.2,
		GiveVolMultTrend: 1.2,
		ArmVolMultRange:  1.2,
		GiveVolMultRange: 0.7,

		StabilizerEnabled:     true,
		LossStreak2CooldownMs: 15 * 60_000,
		LossStreak3CooldownMs: 45 * 60_000,
		ConservativeMs:        45 * 60_000,

		ReentryEnabled:    true,
		ReentryWindowMs:   20 * 60_000,
		ReentryMaxTries:   1,
		ReentryMaxFallPct: 1.0,
		ReentryMaxRisePct: 1.5,
		ReentrySkipPnLPct: -5.0,

		PendingTTLMs:        90_000,
		PendingTolerancePct: 0.3,
	}
}

// driftBoundPct returns the regime-adjusted maximum entry drift.
func (o *Options) driftBoundPct(regime string) float64 {
	if o.RegimeEnabled {
		if regime == "TREND" && o.MaxDriftPctTrend > 0 {
			return o.MaxDriftPctTrend
		}
		if regime == "RANGE" && o.MaxDriftPctRange > 0 {
			return o.MaxDriftPctRange
		}
	}
	return o.MaxDriftPct
}

// autoExpireBoundPct falls back to the entry drift bound.
func (o *Options) autoExpireBoundPct() float64 {
	if o.AutoExpirePct > 0 {
		return o.AutoExpirePct
	}
	return o.MaxDriftPct
}
