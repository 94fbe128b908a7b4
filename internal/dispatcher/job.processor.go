package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	gateway "github.com/campusprint/print-gateway/internal/gateways"
	"github.com/campusprint/print-gateway/internal/model"
	"github.com/campusprint/print-gateway/internal/queue"
	"github.com/campusprint/print-gateway/internal/repository"
	"github.com/campusprint/print-gateway/pkg/logger"
	"github.com/campusprint/print-gateway/pkg/prom"
)

type PrintJobRepository interface {
	UpdateStatus(ctx context.Context, id int64, from, to model.PrintJobStatus) error
}

type PrinterRepository interface {
	Get(ctx context.Context, id int64) (*model.Printer, error)
}

type DeliveryClient interface {
	Deliver(ctx context.Context, printer *model.Printer, req *gateway.DeliverRequest) (*gateway.DeliverResponse, error)
}

type PrintJobProcessor struct {
	client      DeliveryClient
	jobRepo     PrintJobRepository
	printerRepo PrinterRepository
	idempotency *IdempotencyService
}

func NewPrintJobProcessor(client DeliveryClient, jobRepo PrintJobRepository, printerRepo PrinterRepository, idempotency *IdempotencyService) *PrintJobProcessor {
	return &PrintJobProcessor{
		client:      client,
		jobRepo:     jobRepo,
		printerRepo: printerRepo,
		idempotency: idempotency,
	}
}

func (p *PrintJobProcessor) GetType() string {
	return "print_job"
}

// Process delivers a dispatched job to its printer with idempotency
// guarantees. The balance was already debited when the job row was
// created, so a delivery failure never touches the balance; it only
// drives the job to FAILED after the retry budget is spent.
func (p *PrintJobProcessor) Process(ctx context.Context, queueMessage *queue.Message) error {
	// Step 1: Parse dispatch payload
	var dispatch model.PrintJobDispatch
	if err := json.Unmarshal(queueMessage.Data, &dispatch); err != nil {
		logger.Error("Failed to unmarshal dispatch", "error", err)
		return err // Return error to trigger DLQ move
	}

	jobID := strconv.FormatInt(dispatch.JobID, 10)

	// Step 2: Acquire processing lock and check idempotency
	procCtx, err := p.idempotency.AcquireProcessingLock(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			logger.Info("Job already delivered, skipping", "job_id", jobID)
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("Max retries exceeded", "job_id", jobID)
			p.markFailed(ctx, dispatch.JobID)
			return nil // ACK to move to DLQ
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			logger.Info("Lock held by another consumer, will retry", "job_id", jobID)
			return errors.New("lock held by another consumer")
		}
		logger.Error("Failed to acquire lock", "job_id", jobID, "error", err)
		return err
	}

	defer func() {
		if procCtx.lockAcquired {
			p.idempotency.ReleaseLock(ctx, procCtx)
		}
	}()

	logger.Info("Processing print job",
		"job_id", jobID,
		"printer_id", dispatch.PrinterID,
		"retry_count", procCtx.RetryCount,
		"is_retry", procCtx.IsRetry)

	// Step 3: Resolve the target printer
	printer, err := p.printerRepo.Get(ctx, dispatch.PrinterID)
	if err != nil {
		if errors.Is(err, repository.ErrPrinterNotFound) {
			// Printer deleted after the job was accepted - terminal
			logger.Error("Printer no longer exists", "job_id", jobID, "printer_id", dispatch.PrinterID)
			p.markFailed(ctx, dispatch.JobID)
			_ = p.idempotency.MarkSuccess(ctx, procCtx)
			return nil
		}
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("Failed to mark failure", "job_id", jobID, "error", markErr)
		}
		return err
	}

	// Step 4: Move the job to PRINTING. On a retry the row may already
	// be there from a prior attempt, which is fine.
	if err := p.jobRepo.UpdateStatus(ctx, dispatch.JobID, model.PrintJobStatusPending, model.PrintJobStatusPrinting); err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidTransition) && procCtx.IsRetry:
			// A prior attempt already moved the row to PRINTING
		case errors.Is(err, repository.ErrInvalidTransition):
			// Job was cancelled or completed out of band - nothing to deliver
			logger.Info("Job no longer pending, skipping delivery", "job_id", jobID)
			_ = p.idempotency.MarkSuccess(ctx, procCtx)
			return nil
		default:
			if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
				logger.Error("Failed to mark failure", "job_id", jobID, "error", markErr)
			}
			return err
		}
	}

	// Step 5: Deliver to the printer
	req := &gateway.DeliverRequest{
		JobID:       dispatch.JobID,
		DocumentURL: dispatch.StoragePath,
		Copies:      dispatch.Copies,
		PaperSize:   string(dispatch.PaperSize),
		Duplex:      string(dispatch.Duplex),
		Orientation: string(dispatch.Orientation),
		PageRange:   dispatch.PageRange,
		Pages:       dispatch.Pages,
	}

	res, err := p.client.Deliver(ctx, printer, req)
	if err != nil {
		if errors.Is(err, gateway.ErrPrinterRejected) {
			// Rejection is terminal - retrying the same job cannot succeed
			logger.Error("Printer rejected job", "job_id", jobID, "printer", printer.Name, "error", err)
			p.markFailedFromPrinting(ctx, dispatch.JobID)
			_ = p.idempotency.MarkSuccess(ctx, procCtx)
			return nil
		}

		logger.Error("Failed to deliver job", "job_id", jobID, "printer", printer.Name, "error", err)
		if markErr := p.idempotency.MarkFailure(ctx, procCtx, err); markErr != nil {
			logger.Error("Failed to mark failure", "job_id", jobID, "error", markErr)
		}
		return err // NACK to retry from queue
	}

	// Step 6: Delivery accepted - complete the job
	logger.Info("Job delivered",
		"job_id", jobID,
		"printer", printer.Name,
		"status", res.Status,
		"queue_position", res.QueuePosition,
		"retry_count", procCtx.RetryCount)

	if !dispatch.CreatedAt.IsZero() {
		prom.AddJobDeliveryDuration(time.Since(dispatch.CreatedAt).Seconds(), string(dispatch.PaperSize))
	}

	if err := p.jobRepo.UpdateStatus(ctx, dispatch.JobID, model.PrintJobStatusPrinting, model.PrintJobStatusCompleted); err != nil {
		logger.Error("Failed to complete job", "job_id", jobID, "error", err)
		// Continue - the printer has the job, re-delivery would double print
	}

	if markErr := p.idempotency.MarkSuccess(ctx, procCtx); markErr != nil {
		logger.Error("Failed to mark success", "job_id", jobID, "error", markErr)
		// Continue - job was delivered
	}

	return nil // ACK message
}

// markFailed drives a job to FAILED from whichever active state it is in.
func (p *PrintJobProcessor) markFailed(ctx context.Context, jobID int64) {
	if err := p.jobRepo.UpdateStatus(ctx, jobID, model.PrintJobStatusPending, model.PrintJobStatusFailed); err == nil {
		return
	}
	p.markFailedFromPrinting(ctx, jobID)
}

func (p *PrintJobProcessor) markFailedFromPrinting(ctx context.Context, jobID int64) {
	if err := p.jobRepo.UpdateStatus(ctx, jobID, model.PrintJobStatusPrinting, model.PrintJobStatusFailed); err != nil {
		logger.Error("Failed to mark job failed", "job_id", jobID, "error", err)
	}
}
