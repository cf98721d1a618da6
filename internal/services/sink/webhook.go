package sink

import (
	"context"
	"io"
	"strconv"
	"time"

	"TickBrain/internal/domain/models"
	drepo "TickBrain/internal/domain/repository"
	"TickBrain/pkg/config"
	xhttp "TickBrain/pkg/http"
	"TickBrain/pkg/logger"
)

// WebhookSink forwards approved transitions to an external execution bot
// webhook. Prices travel as strings; the receiver parses them to avoid
// float re-encoding surprises.
type WebhookSink struct {
	url          string
	botUUID      string
	secret       string
	maxLag       string
	tvExchange   string
	tvInstrument string

	client *xhttp.Client
	log    *logger.Logger
}

// payload is the bot webhook body. Field names follow the receiver's schema.
type payload struct {
	Secret       string `json:"secret"`
	MaxLag       string `json:"max_lag,omitempty"`
	Timestamp    string `json:"timestamp"`
	TriggerPrice string `json:"trigger_price,omitempty"`
	TVExchange   string `json:"tv_exchange,omitempty"`
	TVInstrument string `json:"tv_instrument,omitempty"`
	Action       string `json:"action"`
	BotUUID      string `json:"bot_uuid"`
}

// New builds the sink from configuration.
func New(cfg *config.Config, log *logger.Logger) drepo.Sink {
	timeout := cfg.Sink.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSink{
		url:          cfg.Sink.URL,
		botUUID:      cfg.Sink.BotUUID,
		secret:       cfg.Sink.Secret,
		maxLag:       cfg.Sink.MaxLag,
		tvExchange:   cfg.Sink.TVExchange,
		tvInstrument: cfg.Sink.TVInstrument,
		client:       xhttp.NewClient(xhttp.WithTimeout(timeout)),
		log:          log,
	}
}

// Deliver posts one transition to the bot webhook. An unconfigured sink
// reports Skipped so dry runs and tests work without a live bot.
func (s *WebhookSink) Deliver(ctx context.Context, tr *models.Transition) models.SinkResult {
	if s.url == "" || s.botUUID == "" || s.secret == "" {
		s.log.Debug("sink not configured, skipping delivery",
			logger.String("instrument", tr.Instrument),
			logger.String("action", tr.Action))
		return models.SinkResult{Accepted: false, Skipped: true, Detail: "sink not configured"}
	}

	body := payload{
		Secret:       s.secret,
		MaxLag:       s.maxLag,
		Timestamp:    tr.Meta.Timestamp,
		Action:       s.action(tr.Action),
		BotUUID:      s.botUUID,
		TVExchange:   tr.Meta.TVExchange,
		TVInstrument: tr.Meta.TVInstrument,
	}
	if body.Timestamp == "" {
		body.Timestamp = time.UnixMilli(tr.TimestampMs).UTC().Format(time.RFC3339)
	}
	if body.TVExchange == "" {
		body.TVExchange = s.tvExchange
	}
	if body.TVInstrument == "" {
		body.TVInstrument = s.tvInstrument
	}
	if tr.Price > 0 {
		body.TriggerPrice = strconv.FormatFloat(tr.Price, 'f', -1, 64)
	}

	resp, err := s.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    s.url,
		Body:   body,
	})
	if err != nil {
		return models.SinkResult{Accepted: false, Detail: err.Error()}
	}
	defer resp.Body.Close()

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	res := models.SinkResult{
		Accepted: resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:   resp.StatusCode,
	}
	if !res.Accepted {
		res.Detail = string(detail)
	}
	return res
}

// action maps internal transition actions to the bot's verbs.
func (s *WebhookSink) action(a string) string {
	switch a {
	case models.ActionEnter:
		return "enter_long"
	case models.ActionExit:
		return "exit_long"
	}
	return a
}
