package sink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"TickBrain/internal/domain/models"
	"TickBrain/pkg/config"
	"TickBrain/pkg/logger"
)

func testSink(t *testing.T, url string) *WebhookSink {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	cfg := &config.Config{}
	cfg.Sink.URL = url
	cfg.Sink.BotUUID = "bot-1"
	cfg.Sink.Secret = "s3cret"
	cfg.Sink.MaxLag = "30"
	cfg.Sink.TVExchange = "BINANCE"
	cfg.Sink.TVInstrument = "SOLUSDT"
	return New(cfg, log).(*WebhookSink)
}

func TestDeliverPostsBotPayload(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := testSink(t, srv.URL)
	tr := &models.Transition{
		Action:      models.ActionEnter,
		Instrument:  "BINANCE:SOLUSDT",
		Price:       101.25,
		TimestampMs: 1_700_000_000_000,
	}
	res := s.Deliver(context.Background(), tr)
	if !res.Accepted || res.Status != http.StatusOK {
		t.Fatalf("unexpected result %+v", res)
	}

	if got.Action != "enter_long" || got.BotUUID != "bot-1" || got.Secret != "s3cret" {
		t.Fatalf("unexpected payload %+v", got)
	}
	if got.TriggerPrice != "101.25" {
		t.Fatalf("price must travel as string, got %q", got.TriggerPrice)
	}
	// config fallbacks apply when the producer omitted routing hints
	if got.TVExchange != "BINANCE" || got.TVInstrument != "SOLUSDT" {
		t.Fatalf("missing routing fallback %+v", got)
	}
	if got.Timestamp == "" {
		t.Fatalf("timestamp must be filled from the transition")
	}
}

func TestDeliverMetaOverridesFallbacks(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	s := testSink(t, srv.URL)
	tr := &models.Transition{
		Action: models.ActionExit,
		Meta:   models.EventMeta{TVExchange: "BYBIT", TVInstrument: "ETHUSDT", Timestamp: "2026-01-02T03:04:05Z"},
	}
	s.Deliver(context.Background(), tr)

	if got.TVExchange != "BYBIT" || got.TVInstrument != "ETHUSDT" {
		t.Fatalf("meta must win over config, got %+v", got)
	}
	if got.Timestamp != "2026-01-02T03:04:05Z" {
		t.Fatalf("producer timestamp must be forwarded, got %q", got.Timestamp)
	}
	if got.Action != "exit_long" {
		t.Fatalf("unexpected action %q", got.Action)
	}
	if got.TriggerPrice != "" {
		t.Fatalf("zero price must omit trigger_price, got %q", got.TriggerPrice)
	}
}

func TestDeliverUnconfiguredSkips(t *testing.T) {
	s := testSink(t, "")
	res := s.Deliver(context.Background(), &models.Transition{Action: models.ActionEnter})
	if !res.Skipped || res.Accepted {
		t.Fatalf("unconfigured sink must skip, got %+v", res)
	}
}

func TestDeliverNon2xxRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bot gone", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := testSink(t, srv.URL)
	res := s.Deliver(context.Background(), &models.Transition{Action: models.ActionEnter})
	if res.Accepted || res.Status != http.StatusBadGateway || res.Detail == "" {
		t.Fatalf("unexpected result %+v", res)
	}
}
