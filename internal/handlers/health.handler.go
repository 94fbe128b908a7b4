package handlers

import (
	"context"

	"github.com/campusprint/print-gateway/internal/services"
	xhttp "github.com/campusprint/print-gateway/pkg/http"
	"github.com/fasthttp/router"
)

type HealthService interface {
	Check(ctx context.Context) *services.HealthStatus
}

type HealthHandler struct {
	svc HealthService
}

func RegisterHealthRoutes(e *router.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(svc HealthService) *HealthHandler {
	return &HealthHandler{
		svc: svc,
	}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	status := h.svc.Check(ctx)
	code := xhttp.StatusOK
	if !status.Healthy {
		code = xhttp.StatusServiceUnavailable
	}
	writeJSON(ctx, code, status)
}
