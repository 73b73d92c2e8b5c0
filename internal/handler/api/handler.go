package api

import (
	"context"
	"time"

	"PricePulse/internal/domain/models"
	"PricePulse/internal/usecase"
	xhttp "PricePulse/pkg/http"
	xlogger "PricePulse/pkg/logger"
	"PricePulse/pkg/util"

	"github.com/labstack/echo/v4"
)

var _ xhttp.Handler = (*Handler)(nil)

// HealthCheck checks one backing dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler serves the read-only prediction API.
type Handler struct {
	logger  *xlogger.Logger
	report  *usecase.ReportUseCase
	checks  []HealthCheck
	timeout time.Duration
}

func NewHandler(logger *xlogger.Logger, report *usecase.ReportUseCase, checks ...HealthCheck) *Handler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &Handler{logger: logger, report: report, checks: checks, timeout: 3 * time.Second}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/accuracy", h.Accuracy)
	g.GET("/thresholds", h.Thresholds)
	g.GET("/thresholds/audit", h.Audit)
	g.GET("/predictions", h.Predictions)
}

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health reports 503 when any dependency check fails.
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	res := healthStatus{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for _, chk := range h.checks {
		if err := chk.Check(ctx); err != nil {
			h.logger.Warn("health check failed", xlogger.String("dependency", chk.Name), xlogger.Error(err))
			res.Status = "degraded"
			res.Checks[chk.Name] = err.Error()
			continue
		}
		res.Checks[chk.Name] = "ok"
	}
	if res.Status != "ok" {
		return xhttp.ServiceUnavailableResponse(c, res)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) Accuracy(c echo.Context) error {
	req := &models.AccuracyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p := usecase.AccuracyParams{Horizon: req.Horizon, Scope: models.Scope(req.Scope)}
	if req.From != "" {
		p.From, _ = util.ParseDate(req.From)
	}
	if req.To != "" {
		p.To, _ = util.ParseDate(req.To)
	}
	if !p.From.IsZero() && !p.To.IsZero() && p.To.Before(p.From) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("to must not be before from").WithParam("from", req.From).WithParam("to", req.To))
	}

	res, err := h.report.Accuracy(c.Request().Context(), p)
	if err != nil {
		h.logger.Error("accuracy usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CachedResponse(c, res, 60)
}

func (h *Handler) Thresholds(c echo.Context) error {
	res, err := h.report.Thresholds(c.Request().Context())
	if err != nil {
		h.logger.Error("thresholds usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *Handler) Audit(c echo.Context) error {
	rows, err := h.report.Audits(c.Request().Context())
	if err != nil {
		h.logger.Error("audit usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *Handler) Predictions(c echo.Context) error {
	req := &models.PredictionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p := usecase.PredictionsParams{
		Direction: models.Direction(req.Direction),
		Alert:     models.AlertLevel(req.Alert),
		Limit:     req.Limit,
	}
	if req.Date != "" {
		p.Date, _ = util.ParseDate(req.Date)
	}

	rows, err := h.report.Predictions(c.Request().Context(), p)
	if err != nil {
		h.logger.Error("predictions usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
