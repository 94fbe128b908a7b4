package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusprint/print-gateway/internal/billing"
	"github.com/campusprint/print-gateway/internal/model"
	"github.com/campusprint/print-gateway/internal/queue"
	"github.com/campusprint/print-gateway/internal/repository"
	"github.com/campusprint/print-gateway/pkg/prom"
)

var (
	ErrPrinterNotFound    = errors.New("printer not found")
	ErrPrinterUnavailable = errors.New("printer is not available")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrBalanceNotFound    = errors.New("balance not found")
	ErrNotFound           = errors.New("error notfound")
)

type PrintJobRepository interface {
	Create(ctx context.Context, job *model.PrintJob, cfg *model.PrintConfig) (*model.PrintJob, error)
	Get(ctx context.Context, id int64) (*model.PrintJob, error)
	List(ctx context.Context, f model.PrintJobFilter) ([]*model.PrintJob, error)
}

type BalanceRepository interface {
	Debit(ctx context.Context, studentID string, pages uint) error
	Credit(ctx context.Context, studentID string, pages uint) error
	Get(ctx context.Context, studentID string) (*model.Balance, error)
	EnsureExists(ctx context.Context, studentID string, defaultAllotment uint) (*model.Balance, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type DocumentRepository interface {
	GetOwned(ctx context.Context, id int64, studentID string) (*model.Document, error)
}

type PrinterRepository interface {
	Get(ctx context.Context, id int64) (*model.Printer, error)
}

type PageCounter interface {
	Count(ctx context.Context, doc *model.Document) (int, error)
}

// BillingConfig is loaded once at process start and passed in. The
// calculator never reads ambient state.
type BillingConfig struct {
	LargeRatio       float64
	DefaultAllotment uint
}

type PrintJobService struct {
	jobRepo     PrintJobRepository
	balanceRepo BalanceRepository
	docRepo     DocumentRepository
	printerRepo PrinterRepository
	counter     PageCounter
	billingCfg  BillingConfig
	queue       *queue.Queue
}

func NewPrintJobService(
	jobRepo PrintJobRepository,
	balanceRepo BalanceRepository,
	docRepo DocumentRepository,
	printerRepo PrinterRepository,
	counter PageCounter,
	billingCfg BillingConfig,
	q *queue.Queue,
) *PrintJobService {
	return &PrintJobService{
		jobRepo:     jobRepo,
		balanceRepo: balanceRepo,
		docRepo:     docRepo,
		printerRepo: printerRepo,
		counter:     counter,
		billingCfg:  billingCfg,
		queue:       q,
	}
}

// Create runs the debit transaction: it resolves the printer and
// document, counts pages and computes cost up front, then atomically
// debits the balance and persists the job with its config. The page
// counter can shell out to a converter, so it runs strictly before the
// database transaction opens.
func (s *PrintJobService) Create(ctx context.Context, p model.PrintJobCreateRequest) (*model.PrintJob, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	printer, err := s.printerRepo.Get(ctx, p.PrinterID)
	if err != nil {
		if errors.Is(err, repository.ErrPrinterNotFound) {
			return nil, ErrPrinterNotFound
		}
		return nil, fmt.Errorf("get printer: %w", err)
	}
	if !printer.Active || printer.Status != model.PrinterStatusAvailable {
		return nil, ErrPrinterUnavailable
	}

	doc, err := s.docRepo.GetOwned(ctx, p.DocumentID, p.StudentID)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	pageCount, err := s.counter.Count(ctx, doc)
	if err != nil {
		return nil, err
	}

	cost, billedPages, err := billing.Calculate(pageCount, billing.Options{
		Copies:     p.Copies,
		PaperSize:  p.PaperSize,
		Duplex:     p.Duplex,
		PageRange:  p.PageRange,
		LargeRatio: s.billingCfg.LargeRatio,
	})
	if err != nil {
		return nil, err
	}

	job := &model.PrintJob{
		StudentID:  p.StudentID,
		PrinterID:  p.PrinterID,
		DocumentID: p.DocumentID,
		TotalPages: billedPages,
		Cost:       cost,
		Status:     model.PrintJobStatusPending,
	}
	cfg := &model.PrintConfig{
		Copies:      p.Copies,
		PaperSize:   p.PaperSize,
		Duplex:      p.Duplex,
		Orientation: p.Orientation,
		PageRange:   p.PageRange,
	}

	// Debit balance and create the job atomically. A failure anywhere
	// rolls the whole unit back, so a job row never exists without its
	// matching debit.
	var createdJob *model.PrintJob
	err = s.balanceRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		// 1. Debit first (fail fast if insufficient funds)
		if err := s.balanceRepo.Debit(ctx, p.StudentID, cost); err != nil {
			if errors.Is(err, repository.ErrBalanceNotFound) {
				return ErrBalanceNotFound
			}
			return err
		}

		// 2. Create job and config rows (only if the debit succeeded)
		created, err := s.jobRepo.Create(ctx, job, cfg)
		if err != nil {
			return fmt.Errorf("create print job: %w", err)
		}
		createdJob = created

		// 3. Hand the job to the dispatch pipeline
		if s.queue != nil {
			dispatch := model.PrintJobDispatch{
				JobID:       created.ID,
				StudentID:   created.StudentID,
				PrinterID:   created.PrinterID,
				DocumentID:  created.DocumentID,
				StoragePath: doc.StoragePath,
				FileName:    doc.FileName,
				Copies:      cfg.Copies,
				PaperSize:   cfg.PaperSize,
				Duplex:      cfg.Duplex,
				Orientation: cfg.Orientation,
				PageRange:   cfg.PageRange,
				Pages:       created.TotalPages,
				CreatedAt:   created.CreatedAt,
			}
			if _, err := s.queue.PublishJSON(ctx, dispatch, map[string]string{"type": "print_job"}); err != nil {
				return fmt.Errorf("publish dispatch: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			prom.IncJobsRejectedInsufficientBalance()
		}
		return nil, err
	}

	prom.IncJobsCreated()
	prom.AddPagesBilled(float64(cost))
	return createdJob, nil
}

func (s *PrintJobService) Get(ctx context.Context, id int64, studentID string) (*model.PrintJob, error) {
	job, err := s.jobRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPrintJobNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if job.StudentID != studentID {
		return nil, ErrNotFound
	}
	return job, nil
}

func (s *PrintJobService) List(ctx context.Context, f model.PrintJobFilter) ([]*model.PrintJob, error) {
	return s.jobRepo.List(ctx, f)
}

func (s *PrintJobService) GetBalance(ctx context.Context, studentID string) (*model.Balance, error) {
	b, err := s.balanceRepo.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrBalanceNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, err
	}
	return b, nil
}
