package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/campusprint/print-gateway/internal/services"
	xhttp "github.com/campusprint/print-gateway/pkg/http"
	"github.com/fasthttp/router"
	"github.com/google/uuid"
)

type TopUpService interface {
	Create(ctx context.Context, p model.TopUpCreateRequest) (*services.TopUpResult, error)
	Get(ctx context.Context, id uuid.UUID) (*model.TopUp, error)
	ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]*model.TopUp, error)
}

type TopUpHandler struct {
	svc TopUpService
}

func RegisterTopUpRoutes(e *router.Group, h *TopUpHandler) {
	e.POST("/topups", h.CreateTopUp)
	e.GET("/topups", h.ListTopUps)
	e.GET("/topups/{id}", h.GetTopUp)
}

func NewTopUpHandler(svc TopUpService) *TopUpHandler {
	return &TopUpHandler{
		svc: svc,
	}
}

type createTopUpResponse struct {
	TransactionID    uuid.UUID `json:"transactionId"`
	PaymentRenderURL string    `json:"paymentRenderUrl"`
}

type topupListResponse struct {
	Items []*model.TopUp `json:"items"`
}

func (h *TopUpHandler) CreateTopUp(ctx *xhttp.RequestCtx) {
	studentID := student(ctx)
	if studentID == "" {
		writeError(ctx, xhttp.StatusBadRequest, "missing "+studentHeader+" header")
		return
	}

	var req model.TopUpCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	req.StudentID = studentID

	result, err := h.svc.Create(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrAmountOutOfBounds) || errors.Is(err, services.ErrPagesOutOfBounds) {
			writeError(ctx, xhttp.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(ctx, xhttp.StatusCreated, createTopUpResponse{
		TransactionID:    result.Transaction.ID,
		PaymentRenderURL: result.PaymentRenderURL,
	})
}

func (h *TopUpHandler) GetTopUp(ctx *xhttp.RequestCtx) {
	studentID := student(ctx)
	if studentID == "" {
		writeError(ctx, xhttp.StatusBadRequest, "missing "+studentHeader+" header")
		return
	}

	idStr, _ := ctx.UserValue("id").(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid transaction id")
		return
	}

	txn, err := h.svc.Get(ctx, id)
	if err != nil || txn.StudentID != studentID {
		writeError(ctx, xhttp.StatusNotFound, "transaction not found")
		return
	}
	writeJSON(ctx, xhttp.StatusOK, txn)
}

func (h *TopUpHandler) ListTopUps(ctx *xhttp.RequestCtx) {
	studentID := student(ctx)
	if studentID == "" {
		writeError(ctx, xhttp.StatusBadRequest, "missing "+studentHeader+" header")
		return
	}

	limit, offset := 50, 0
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			offset = n
		}
	}

	items, err := h.svc.ListByStudent(ctx, studentID, limit, offset)
	if err != nil {
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, topupListResponse{Items: items})
}
