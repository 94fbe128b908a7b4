package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/campusprint/print-gateway/internal/billing"
	"github.com/campusprint/print-gateway/internal/model"
	"github.com/campusprint/print-gateway/internal/pagecount"
	"github.com/campusprint/print-gateway/internal/repository"
	"github.com/campusprint/print-gateway/internal/services"
	xhttp "github.com/campusprint/print-gateway/pkg/http"
	"github.com/fasthttp/router"
)

const studentHeader = "X-Student-Id"

type PrintJobService interface {
	Create(ctx context.Context, p model.PrintJobCreateRequest) (*model.PrintJob, error)
	Get(ctx context.Context, id int64, studentID string) (*model.PrintJob, error)
	List(ctx context.Context, f model.PrintJobFilter) ([]*model.PrintJob, error)
	GetBalance(ctx context.Context, studentID string) (*model.Balance, error)
}

type PrintJobHandler struct {
	svc PrintJobService
}

func RegisterPrintJobRoutes(e *router.Group, h *PrintJobHandler) {
	e.POST("/jobs", h.CreateJob)
	e.GET("/jobs", h.ListJobs)
	e.GET("/jobs/{id}", h.GetJob)
	e.GET("/balance", h.GetBalance)
}

func NewPrintJobHandler(svc PrintJobService) *PrintJobHandler {
	return &PrintJobHandler{
		svc: svc,
	}
}

type createJobResponse struct {
	JobID     int64                `json:"jobId"`
	Status    model.PrintJobStatus `json:"status"`
	TotalCost uint                 `json:"totalCost"`
}

type jobListResponse struct {
	Items []*model.PrintJob `json:"items"`
}

type insufficientBalanceResponse struct {
	Error          string `json:"error"`
	RequiredPages  uint   `json:"requiredPages"`
	AvailablePages uint   `json:"availablePages"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *PrintJobHandler) CreateJob(ctx *xhttp.RequestCtx) {
	studentID := student(ctx)
	if studentID == "" {
		writeError(ctx, xhttp.StatusBadRequest, "missing "+studentHeader+" header")
		return
	}

	var req model.PrintJobCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	req.StudentID = studentID

	job, err := h.svc.Create(ctx, req)
	if err != nil {
		writeJobError(ctx, err)
		return
	}

	writeJSON(ctx, xhttp.StatusCreated, createJobResponse{
		JobID:     job.ID,
		Status:    job.Status,
		TotalCost: job.Cost,
	})
}

// writeJobError maps the debit-transaction error taxonomy onto status
// codes. Insufficient balance is a business condition, not a fault, and
// always reports both figures.
func writeJobError(ctx *xhttp.RequestCtx, err error) {
	var ibe *repository.InsufficientBalanceError
	switch {
	case errors.As(err, &ibe):
		writeJSON(ctx, xhttp.StatusPaymentRequired, insufficientBalanceResponse{
			Error:          "insufficient balance",
			RequiredPages:  ibe.Required,
			AvailablePages: ibe.Available,
		})
	case errors.Is(err, services.ErrPrinterNotFound),
		errors.Is(err, services.ErrDocumentNotFound),
		errors.Is(err, services.ErrBalanceNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrPrinterUnavailable):
		writeError(ctx, xhttp.StatusConflict, err.Error())
	case errors.Is(err, pagecount.ErrConversionUnavailable):
		writeError(ctx, xhttp.StatusServiceUnavailable, err.Error())
	case errors.Is(err, billing.ErrInvalidPageRange),
		errors.Is(err, billing.ErrNoPagesSelected),
		errors.Is(err, billing.ErrZeroCost):
		writeError(ctx, xhttp.StatusUnprocessableEntity, err.Error())
	default:
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
	}
}

func (h *PrintJobHandler) GetJob(ctx *xhttp.RequestCtx) {
	studentID := student(ctx)
	if studentID == "" {
		writeError(ctx, xhttp.StatusBadRequest, "missing "+studentHeader+" header")
		return
	}

	idStr, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.svc.Get(ctx, id, studentID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, xhttp.StatusNotFound, "job not found")
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(ctx, xhttp.StatusOK, job)
}

func (h *PrintJobHandler) ListJobs(ctx *xhttp.RequestCtx) {
	studentID := student(ctx)
	if studentID == "" {
		writeError(ctx, xhttp.StatusBadRequest, "missing "+studentHeader+" header")
		return
	}

	f := model.PrintJobFilter{StudentID: &studentID}

	if v := query(ctx, "status"); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
			if parts[i] != "" {
				f.Statuses = append(f.Statuses, model.PrintJobStatus(parts[i]))
			}
		}
	}
	if v := query(ctx, "from"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.To = &t
		}
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, jobListResponse{Items: items})
}

func (h *PrintJobHandler) GetBalance(ctx *xhttp.RequestCtx) {
	studentID := student(ctx)
	if studentID == "" {
		writeError(ctx, xhttp.StatusBadRequest, "missing "+studentHeader+" header")
		return
	}

	balance, err := h.svc.GetBalance(ctx, studentID)
	if err != nil {
		if errors.Is(err, services.ErrBalanceNotFound) {
			writeError(ctx, xhttp.StatusNotFound, "balance not found")
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(ctx, xhttp.StatusOK, balance)
}

/* --------------------------------- Helpers ----------------------------------- */

func student(ctx *xhttp.RequestCtx) string {
	return string(ctx.Request.Header.Peek(studentHeader))
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
