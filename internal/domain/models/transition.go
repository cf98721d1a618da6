package models

// Outbound transition actions.
const (
	ActionEnter = "enter"
	ActionExit  = "exit"
)

// Transition is an approved state change emitted to the execution sink.
type Transition struct {
	Action      string    `json:"action"`
	Instrument  string    `json:"instrument"`
	Price       float64   `json:"price"`
	TimestampMs int64     `json:"ts_ms"`
	Reason      string    `json:"reason"`
	Meta        EventMeta `json:"-"`
}

// SinkResult is the sink adapter's verdict for one delivered transition.
// Skipped means the sink is not configured; that is not a failure.
type SinkResult struct {
	Accepted bool   `json:"accepted"`
	Skipped  bool   `json:"skipped,omitempty"`
	Status   int    `json:"status,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// DecisionRecord is one journaled gate decision.
type DecisionRecord struct {
	TimestampMs int64
	Instrument  string
	Kind        string
	Accepted    bool
	Reason      string
	Price       float64
	Regime      string
}

// Ack is the synchronous acknowledgment returned for every inbound event.
// Rejections carry a machine-readable reason; sink outcomes are attached
// per emitted transition and never affect Accepted.
type Ack struct {
	Accepted bool         `json:"accepted"`
	Reason   string       `json:"reason,omitempty"`
	Actions  []string     `json:"actions,omitempty"`
	Sink     []SinkResult `json:"sink,omitempty"`
}
