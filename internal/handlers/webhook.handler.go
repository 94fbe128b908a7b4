package handlers

import (
	"context"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/campusprint/print-gateway/internal/services"
	xhttp "github.com/campusprint/print-gateway/pkg/http"
	"github.com/fasthttp/router"
)

type WebhookService interface {
	Process(ctx context.Context, n model.WebhookNotification) (services.Outcome, error)
}

type WebhookHandler struct {
	svc WebhookService
}

func RegisterWebhookRoutes(e *router.Group, h *WebhookHandler) {
	e.POST("/webhooks/payment", h.HandlePayment)
}

func NewWebhookHandler(svc WebhookService) *WebhookHandler {
	return &WebhookHandler{
		svc: svc,
	}
}

type webhookResponse struct {
	Status  string `json:"status"`
	Outcome string `json:"outcome"`
}

// HandlePayment acknowledges every validly parsed notification with
// success, whatever the business outcome, so the gateway never retries
// something already classified. Only malformed payloads and storage
// failures are non-success.
func (h *WebhookHandler) HandlePayment(ctx *xhttp.RequestCtx) {
	var n model.WebhookNotification
	if err := readJSON(ctx, &n); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	outcome, err := h.svc.Process(ctx, n)
	if err != nil {
		writeError(ctx, xhttp.StatusInternalServerError, "reconciliation failed")
		return
	}

	writeJSON(ctx, xhttp.StatusOK, webhookResponse{
		Status:  "ok",
		Outcome: string(outcome),
	})
}
