package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Webhook struct {
		SharedSecret string  `yaml:"shared_secret"`
		RateLimit    float64 `yaml:"rate_limit"` // events/sec, 0 disables
		RateBurst    int     `yaml:"rate_burst"`
	} `yaml:"webhook"`
	Engine struct {
		// Activation / entry gating
		MaxDriftPct       float64       `yaml:"max_drift_pct"`
		MaxDriftPctTrend  float64       `yaml:"max_drift_pct_trend"` // 0 = use max_drift_pct
		MaxDriftPctRange  float64       `yaml:"max_drift_pct_range"`
		AutoExpirePct     float64       `yaml:"auto_expire_pct"` // 0 = use max_drift_pct
		AutoExpireEnabled bool          `yaml:"auto_expire_enabled"`
		ActivationTTL     time.Duration `yaml:"activation_ttl"` // 0 disables
		ExitCooldown      time.Duration `yaml:"exit_cooldown"`  // 0 disables

		// Heartbeat freshness
		RequireFreshHeartbeat bool          `yaml:"require_fresh_heartbeat"`
		HeartbeatMaxAge       time.Duration `yaml:"heartbeat_max_age"`

		// Regime classification
		RegimeEnabled     bool          `yaml:"regime_enabled"`
		SlopeWindow       time.Duration `yaml:"slope_window"`
		VolWindow         time.Duration `yaml:"vol_window"`
		TickRetention     time.Duration `yaml:"tick_retention"`
		RegimeMinTicks    int           `yaml:"regime_min_ticks"`
		TrendSlopeOnPct   float64       `yaml:"trend_slope_on_pct"`
		TrendSlopeOffPct  float64       `yaml:"trend_slope_off_pct"`
		RangeSlopeOnPct   float64       `yaml:"range_slope_on_pct"`
		RangeSlopeOffPct  float64       `yaml:"range_slope_off_pct"`
		VolFloorPct       float64       `yaml:"vol_floor_pct"`

		// Crash protection
		CrashEnabled  bool          `yaml:"crash_enabled"`
		CrashDrop1m   float64       `yaml:"crash_drop_1m_pct"`
		CrashDrop5m   float64       `yaml:"crash_drop_5m_pct"`
		CrashCooldown time.Duration `yaml:"crash_cooldown"`

		// Adaptive trailing exit
		ExitEnabled        bool    `yaml:"exit_enabled"`
		AdaptiveExit       bool    `yaml:"adaptive_exit"`
		ArmPct             float64 `yaml:"arm_pct"`      // fixed fallback
		GivebackPct        float64 `yaml:"giveback_pct"` // fixed fallback
		ArmVolMultTrend    float64 `yaml:"arm_vol_mult_trend"`
		GiveVolMultTrend   float64 `yaml:"give_vol_mult_trend"`
		ArmVolMultRange    float64 `yaml:"arm_vol_mult_range"`
		GiveVolMultRange   float64 `yaml:"give_vol_mult_range"`
		MinArmPct          float64 `yaml:"min_arm_pct"`  // clamps, 0 disables
		MinGivebackPct     float64 `yaml:"min_giveback_pct"`
		MaxArmPct          float64 `yaml:"max_arm_pct"`
		MaxGivebackPct     float64 `yaml:"max_giveback_pct"`
		MinExitProfitPct   float64 `yaml:"min_exit_profit_pct"` // explicit-exit filter, 0 disables
		ShortSide          bool    `yaml:"short_side"`

		// Equity stabilizer
		StabilizerEnabled    bool          `yaml:"stabilizer_enabled"`
		LossStreak2Cooldown  time.Duration `yaml:"loss_streak_2_cooldown"`
		LossStreak3Cooldown  time.Duration `yaml:"loss_streak_3_cooldown"`
		ConservativeDuration time.Duration `yaml:"conservative_duration"`

		// Re-entry window
		ReentryEnabled      bool          `yaml:"reentry_enabled"`
		ReentryWindow       time.Duration `yaml:"reentry_window"`
		ReentryMaxTries     int           `yaml:"reentry_max_tries"`
		ReentryMaxFallPct   float64       `yaml:"reentry_max_fall_pct"`
		ReentryMaxRisePct   float64       `yaml:"reentry_max_rise_pct"`
		ReentrySkipPnLPct   float64       `yaml:"reentry_skip_pnl_pct"`
		ReentryRequireTrend bool          `yaml:"reentry_require_trend"`

		// Pending entry buffer
		PendingTTL          time.Duration `yaml:"pending_ttl"`
		PendingTolerancePct float64       `yaml:"pending_tolerance_pct"`
	} `yaml:"engine"`
	Sink struct {
		URL          string        `yaml:"url"`
		BotUUID      string        `yaml:"bot_uuid"`
		Secret       string        `yaml:"secret"`
		MaxLag       string        `yaml:"max_lag"`
		Timeout      time.Duration `yaml:"timeout"`
		TVExchange   string        `yaml:"tv_exchange"`   // fallback when payload omits it
		TVInstrument string        `yaml:"tv_instrument"` // fallback when payload omits it
	} `yaml:"sink"`
	Kafka struct {
		Enabled          bool     `yaml:"enabled"`
		Brokers          []string `yaml:"brokers"`
		TicksTopic       string   `yaml:"ticks_topic"`
		TransitionsTopic string   `yaml:"transitions_topic"`
		RequiredAcks     int      `yaml:"required_acks"`
		Compression      string   `yaml:"compression"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Venue struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"venue"`
	Dedup struct {
		TTL   time.Duration `yaml:"ttl"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"dedup"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		c.Webhook.SharedSecret = v
	}
	if v := os.Getenv("SINK_URL"); v != "" {
		c.Sink.URL = v
	}
	if v := os.Getenv("SINK_BOT_UUID"); v != "" {
		c.Sink.BotUUID = v
	}
	if v := os.Getenv("SINK_SECRET"); v != "" {
		c.Sink.Secret = v
	}
	if v := os.Getenv("VENUE_API_KEY"); v != "" {
		c.Venue.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Venue.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TICKS_TOPIC"); v != "" {
		c.Kafka.TicksTopic = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Engine.MaxDriftPct <= 0 {
		return fmt.Errorf("engine.max_drift_pct must be positive")
	}
	if c.Engine.RegimeMinTicks < 2 {
		return fmt.Errorf("engine.regime_min_ticks must be at least 2")
	}
	if c.Engine.TrendSlopeOffPct > c.Engine.TrendSlopeOnPct {
		return fmt.Errorf("engine.trend_slope_off_pct must not exceed trend_slope_on_pct")
	}
	if c.Engine.TickRetention <= 0 {
		return fmt.Errorf("engine.tick_retention must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Venue.Enabled && c.Venue.APIKey == "" {
		return fmt.Errorf("venue.api_key is required when venue stream is enabled")
	}
	return nil
}
