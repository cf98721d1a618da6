package models

// Canonical event kinds after intent normalization.
const (
	KindTick  = "tick"
	KindArm   = "arm"
	KindEnter = "enter"
	KindExit  = "exit"
)

// Event is a normalized inbound event: a price tick or a trade intent.
// All alias/precedence handling happens in the resolvers; by the time an
// Event reaches the engine the fields below are authoritative.
type Event struct {
	Kind        string
	Instrument  string
	Price       float64
	HasPrice    bool
	TimestampMs int64
	Timeframe   string
	EventID     string
	ExitReason  string
	Meta        EventMeta
}

// EventMeta carries producer routing hints forwarded to the execution sink.
type EventMeta struct {
	TVExchange   string
	TVInstrument string
	Timestamp    string
}

// Tick is a single price observation for an instrument.
type Tick struct {
	Instrument  string  `json:"instrument"`
	Price       float64 `json:"price"`
	TimestampMs int64   `json:"ts_ms"`
}
