package models

import "testing"

func TestResolveKindCanonical(t *testing.T) {
	r := WebhookRequest{Action: "ENTER_LONG"}
	if got := r.ResolveKind(); got != KindEnter {
		t.Fatalf("unexpected kind %q", got)
	}
}

func TestResolveKindLegacyReady(t *testing.T) {
	r := WebhookRequest{Action: "ready"}
	if got := r.ResolveKind(); got != KindArm {
		t.Fatalf("unexpected kind %q", got)
	}
}

func TestResolveKindRaySides(t *testing.T) {
	buy := WebhookRequest{Src: "ray", Side: "BUY"}
	if got := buy.ResolveKind(); got != KindEnter {
		t.Fatalf("unexpected kind %q", got)
	}
	sell := WebhookRequest{Src: "ray", Side: "sell"}
	if got := sell.ResolveKind(); got != KindExit {
		t.Fatalf("unexpected kind %q", got)
	}
	unknown := WebhookRequest{Src: "ray", Side: "HOLD"}
	if got := unknown.ResolveKind(); got != "" {
		t.Fatalf("unexpected kind %q", got)
	}
}

func TestResolveKindSrcPassthrough(t *testing.T) {
	r := WebhookRequest{Src: "heartbeat"}
	if got := r.ResolveKind(); got != KindTick {
		t.Fatalf("unexpected kind %q", got)
	}
}

func TestResolveSecretAliases(t *testing.T) {
	r := WebhookRequest{Token: "tok", Passphrase: "pass"}
	if got := r.ResolveSecret(); got != "tok" {
		t.Fatalf("unexpected secret %q", got)
	}
}

func TestResolveInstrumentPrecedence(t *testing.T) {
	r := WebhookRequest{Symbol: "BINANCE:SOLUSDT", Exchange: "OKX", Ticker: "SOLUSDT"}
	if got := r.ResolveInstrument(); got != "BINANCE:SOLUSDT" {
		t.Fatalf("unexpected instrument %q", got)
	}
	r = WebhookRequest{TVExchange: "BINANCE", TVInstrument: "SOLUSDT"}
	if got := r.ResolveInstrument(); got != "BINANCE:SOLUSDT" {
		t.Fatalf("unexpected instrument %q", got)
	}
	r = WebhookRequest{Ticker: "SOLUSDT"}
	if got := r.ResolveInstrument(); got != "SOLUSDT" {
		t.Fatalf("unexpected instrument %q", got)
	}
}

func TestResolveArmPricePrefersTrigger(t *testing.T) {
	r := WebhookRequest{TriggerPrice: "101.5", Price: "100", Close: "99"}
	v, ok := r.ResolveArmPrice()
	if !ok || v != 101.5 {
		t.Fatalf("unexpected price %v ok=%v", v, ok)
	}
}

func TestResolveIntentPricePrefersPrice(t *testing.T) {
	r := WebhookRequest{TriggerPrice: "101.5", Close: "99"}
	v, ok := r.ResolveIntentPrice()
	if !ok || v != 101.5 {
		t.Fatalf("unexpected price %v ok=%v", v, ok)
	}
	r.Price = "100"
	v, ok = r.ResolveIntentPrice()
	if !ok || v != 100 {
		t.Fatalf("unexpected price %v ok=%v", v, ok)
	}
}

func TestResolvePriceRejectsGarbage(t *testing.T) {
	r := WebhookRequest{Price: "NaN", Close: "abc"}
	if _, ok := r.ResolveTickPrice(); ok {
		t.Fatalf("expected no price")
	}
}

func TestResolveTimestampFallback(t *testing.T) {
	r := WebhookRequest{Timestamp: "2025-03-01T10:00:00Z"}
	if got := r.ResolveTimestampMs(42); got != 1740823200000 {
		t.Fatalf("unexpected ts %d", got)
	}
	r = WebhookRequest{Timestamp: "not-a-time"}
	if got := r.ResolveTimestampMs(42); got != 42 {
		t.Fatalf("unexpected ts %d", got)
	}
}
