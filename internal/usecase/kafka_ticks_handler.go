package usecase

import (
	"context"
	"encoding/json"
	"time"

	"TickBrain/internal/domain/models"
	domrepo "TickBrain/internal/domain/repository"
	pkgkafka "TickBrain/pkg/kafka"
)

// KafkaTicksHandler consumes broker tick messages and feeds them into the
// gate. It is the second tick source next to the venue WebSocket.
type KafkaTicksHandler struct {
	topic   string
	gate    *Gatekeeper
	metrics domrepo.Metrics
}

func NewKafkaTicksHandler(topic string, gate *Gatekeeper, metrics domrepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, gate: gate, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

// incoming message schema: {instrument|symbol, t, c}
func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Instrument string  `json:"instrument"`
		Symbol     string  `json:"symbol"`
		T          int64   `json:"t"`
		C          float64 `json:"c"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.Instrument == "" {
		m.Instrument = m.Symbol
	}
	if m.T < 1e11 { // seconds
		m.T = m.T * 1000
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.UnixMilli(m.T)).Seconds())

	return h.gate.ProcessTick(ctx, &models.Tick{
		Instrument:  m.Instrument,
		Price:       m.C,
		TimestampMs: m.T,
	})
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
