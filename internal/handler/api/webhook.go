package api

import (
	"errors"
	"net/http"
	"time"

	models "TickBrain/internal/domain/models"
	"TickBrain/internal/service/ratelimit"
	"TickBrain/internal/usecase"
	"TickBrain/pkg/config"
	xhttp "TickBrain/pkg/http"
	xlogger "TickBrain/pkg/logger"

	"github.com/labstack/echo/v4"
)

// WebhookHandler exposes the gate over HTTP: signal ingress plus
// introspection endpoints.
type WebhookHandler struct {
	logger    *xlogger.Logger
	gate      *usecase.Gatekeeper
	limiter   *ratelimit.Limiter
	rateLimit float64
	rateBurst float64
	env       string
	engineCfg map[string]interface{}
	startedAt time.Time
}

func NewWebhookHandler(logger *xlogger.Logger, gate *usecase.Gatekeeper, limiter *ratelimit.Limiter, cfg *config.Config) *WebhookHandler {
	burst := float64(cfg.Webhook.RateBurst)
	if burst <= 0 {
		burst = 10
	}
	e := cfg.Engine
	return &WebhookHandler{
		logger:    logger,
		gate:      gate,
		limiter:   limiter,
		rateLimit: cfg.Webhook.RateLimit,
		rateBurst: burst,
		env:       cfg.Environment,
		engineCfg: map[string]interface{}{
			"max_drift_pct":       e.MaxDriftPct,
			"regime_enabled":      e.RegimeEnabled,
			"crash_enabled":       e.CrashEnabled,
			"exit_enabled":        e.ExitEnabled,
			"adaptive_exit":       e.AdaptiveExit,
			"stabilizer_enabled":  e.StabilizerEnabled,
			"reentry_enabled":     e.ReentryEnabled,
			"short_side":          e.ShortSide,
			"heartbeat_max_age":   e.HeartbeatMaxAge.String(),
			"exit_cooldown":       e.ExitCooldown.String(),
			"crash_cooldown":      e.CrashCooldown.String(),
			"reentry_window":      e.ReentryWindow.String(),
			"min_exit_profit_pct": e.MinExitProfitPct,
		},
		startedAt: time.Now(),
	}
}

func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Status)
	e.POST("/webhook", h.Webhook)
	e.GET("/state", h.State)
	e.GET("/instruments", h.Instruments)
}

// Webhook ingests one producer event and returns the gate's acknowledgment.
// Rejections are 200s with accepted=false; only transport-level problems
// use error status codes.
func (h *WebhookHandler) Webhook(c echo.Context) error {
	if h.rateLimit > 0 && !h.limiter.Allow(c.RealIP(), h.rateBurst, h.rateLimit) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
	}

	req := &models.WebhookRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ack, err := h.gate.HandleWebhook(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, usecase.ErrUnauthorized) {
			return xhttp.UnauthorizedResponse(c, "invalid secret")
		}
		h.logger.Error("webhook usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, ack)
}

// State returns the full introspection snapshot for one instrument.
func (h *WebhookHandler) State(c echo.Context) error {
	req := &models.StateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap, ok := h.gate.State(req.Instrument)
	if !ok {
		return xhttp.NotFoundResponse(c, "unknown instrument")
	}
	return xhttp.SuccessResponse(c, snap)
}

// Instruments lists every instrument the gate tracks.
func (h *WebhookHandler) Instruments(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.gate.Instruments())
}

// Status is the root liveness and orientation endpoint.
func (h *WebhookHandler) Status(c echo.Context) error {
	instruments := h.gate.Instruments()
	states := make(map[string]interface{}, len(instruments))
	for _, inst := range instruments {
		if snap, ok := h.gate.State(inst); ok {
			states[inst] = snap
		}
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"service":     "tickbrain",
		"environment": h.env,
		"uptime_sec":  int64(time.Since(h.startedAt).Seconds()),
		"engine":      h.engineCfg,
		"instruments": states,
	})
}
