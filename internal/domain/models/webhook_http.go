package models

import "encoding/json"

// Requests for HTTP endpoints. Defined in domain for consistency and reuse.

// WebhookRequest is the raw inbound payload. Producers disagree on field
// names, so every known alias is bound here and resolved explicitly in
// resolve.go. Numbers may arrive as JSON numbers or strings.
type WebhookRequest struct {
	Secret     string `json:"secret"`
	TVSecret   string `json:"tv_secret"`
	Token      string `json:"token"`
	Passphrase string `json:"passphrase"`

	Action string `json:"action"`
	Intent string `json:"intent"`
	Src    string `json:"src"`
	Side   string `json:"side"`

	Symbol       string `json:"symbol"`
	Exchange     string `json:"exchange"`
	Ticker       string `json:"ticker"`
	TVExchange   string `json:"tv_exchange"`
	TVInstrument string `json:"tv_instrument"`

	Price        json.Number `json:"price"`
	Close        json.Number `json:"close"`
	TriggerPrice json.Number `json:"trigger_price"`

	Timestamp string `json:"timestamp"`
	Time      string `json:"time"`
	TF        string `json:"tf"`

	EventID    string `json:"eventId"`
	ExitReason string `json:"exit_reason"`
}

type StateRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required"`
}
