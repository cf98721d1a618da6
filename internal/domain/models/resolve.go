package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"TickBrain/pkg/util"
)

// Explicit field resolution for WebhookRequest. Producers use several
// overlapping schemas; each resolver documents its precedence order so the
// chains stay testable in isolation.

// ResolveKind normalizes action/intent/src/side aliases to a canonical kind.
// Unrecognized intents are returned as-is and acknowledged upstream as no-ops.
func (r *WebhookRequest) ResolveKind() string {
	intent := strings.ToLower(strings.TrimSpace(r.Action))
	if intent == "" {
		intent = strings.ToLower(strings.TrimSpace(r.Intent))
	}
	src := strings.ToLower(strings.TrimSpace(r.Src))
	if intent == "" && src != "" && src != "ray" {
		intent = src
	}

	switch intent {
	case "tick", "heartbeat":
		return KindTick
	case "arm", "ready", "ready_long", "ready_short":
		return KindArm
	case "enter", "enter_long", "enter_short":
		return KindEnter
	case "exit", "exit_long", "exit_short":
		return KindExit
	}

	// Legacy ray producer: {src:"ray", side:"BUY"|"SELL"}.
	if src == "ray" {
		switch strings.ToUpper(strings.TrimSpace(r.Side)) {
		case "BUY":
			return KindEnter
		case "SELL":
			return KindExit
		}
	}

	return intent
}

// ResolveSecret returns the first non-empty secret alias:
// secret, tv_secret, token, passphrase.
func (r *WebhookRequest) ResolveSecret() string {
	for _, s := range []string{r.Secret, r.TVSecret, r.Token, r.Passphrase} {
		if s != "" {
			return s
		}
	}
	return ""
}

// ResolveInstrument builds the venue:symbol identity. Precedence: symbol,
// tv_exchange:tv_instrument, exchange:ticker, tv_instrument, ticker.
func (r *WebhookRequest) ResolveInstrument() string {
	if r.Symbol != "" {
		return r.Symbol
	}
	if r.TVExchange != "" && r.TVInstrument != "" {
		return r.TVExchange + ":" + r.TVInstrument
	}
	if r.Exchange != "" && r.Ticker != "" {
		return r.Exchange + ":" + r.Ticker
	}
	if r.TVInstrument != "" {
		return r.TVInstrument
	}
	return r.Ticker
}

// ResolveArmPrice: trigger_price, price, close. Arm events come from alert
// conditions where trigger_price is the authoritative reference.
func (r *WebhookRequest) ResolveArmPrice() (float64, bool) {
	return firstPrice(r.TriggerPrice, r.Price, r.Close)
}

// ResolveIntentPrice: price, close, trigger_price. Enter/exit intents carry
// the producer's fill estimate in price.
func (r *WebhookRequest) ResolveIntentPrice() (float64, bool) {
	return firstPrice(r.Price, r.Close, r.TriggerPrice)
}

// ResolveTickPrice: price, close. Ticks never carry trigger_price.
func (r *WebhookRequest) ResolveTickPrice() (float64, bool) {
	return firstPrice(r.Price, r.Close)
}

// ResolveTimestampMs parses timestamp then time, falling back to nowMs.
func (r *WebhookRequest) ResolveTimestampMs(nowMs int64) int64 {
	for _, s := range []string{r.Timestamp, r.Time} {
		if t, ok := util.ParseTime(s); ok {
			return t.UnixMilli()
		}
	}
	return nowMs
}

// ResolveMeta collects the routing hints the sink forwards downstream.
func (r *WebhookRequest) ResolveMeta() EventMeta {
	m := EventMeta{TVExchange: r.TVExchange, TVInstrument: r.TVInstrument}
	if m.TVExchange == "" {
		m.TVExchange = r.Exchange
	}
	if m.TVInstrument == "" {
		m.TVInstrument = r.Ticker
	}
	if m.Timestamp = r.Timestamp; m.Timestamp == "" {
		m.Timestamp = r.Time
	}
	return m
}

func firstPrice(nums ...json.Number) (float64, bool) {
	for _, n := range nums {
		if v, ok := parsePrice(n); ok {
			return v, true
		}
	}
	return 0, false
}

func parsePrice(n json.Number) (float64, bool) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
