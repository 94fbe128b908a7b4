package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/google/uuid"
)

var (
	ErrAmountOutOfBounds = errors.New("top-up amount out of bounds")
	ErrPagesOutOfBounds  = errors.New("top-up page quantity out of bounds")
)

type TopUpRepository interface {
	Create(ctx context.Context, txn *model.TopUp) (*model.TopUp, error)
	Get(ctx context.Context, id uuid.UUID) (*model.TopUp, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.TopUp, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, method, ref string) error
	ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]*model.TopUp, error)
}

// PaymentConfig bounds top-up requests and shapes the render URL the
// external gateway uses to show a payment form.
type PaymentConfig struct {
	RenderBaseURL string
	MemoTag       string
	MinAmount     uint
	MaxAmount     uint
	MinPages      uint
	MaxPages      uint
}

// TopUpResult pairs the pending transaction with the URL the student is
// sent to. The memo embedded in the URL carries the transaction id that
// reconciliation later extracts from the bank notification.
type TopUpResult struct {
	Transaction      *model.TopUp `json:"transaction"`
	PaymentRenderURL string       `json:"paymentRenderUrl"`
}

type TopUpService struct {
	topupRepo   TopUpRepository
	balanceRepo BalanceRepository
	paymentCfg  PaymentConfig
	billingCfg  BillingConfig
}

func NewTopUpService(topupRepo TopUpRepository, balanceRepo BalanceRepository, paymentCfg PaymentConfig, billingCfg BillingConfig) *TopUpService {
	return &TopUpService{
		topupRepo:   topupRepo,
		balanceRepo: balanceRepo,
		paymentCfg:  paymentCfg,
		billingCfg:  billingCfg,
	}
}

// Create records a PENDING transaction and returns the payment render
// URL. The balance row is provisioned here with the default allotment
// if the student has never printed or paid before, so the later credit
// always has a row to land on.
func (s *TopUpService) Create(ctx context.Context, p model.TopUpCreateRequest) (*TopUpResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Amount < s.paymentCfg.MinAmount || p.Amount > s.paymentCfg.MaxAmount {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrAmountOutOfBounds, p.Amount, s.paymentCfg.MinAmount, s.paymentCfg.MaxAmount)
	}
	if p.Pages < s.paymentCfg.MinPages || p.Pages > s.paymentCfg.MaxPages {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrPagesOutOfBounds, p.Pages, s.paymentCfg.MinPages, s.paymentCfg.MaxPages)
	}

	if _, err := s.balanceRepo.EnsureExists(ctx, p.StudentID, s.billingCfg.DefaultAllotment); err != nil {
		return nil, fmt.Errorf("ensure balance: %w", err)
	}

	txn := &model.TopUp{
		ID:        uuid.New(),
		StudentID: p.StudentID,
		Amount:    p.Amount,
		Pages:     p.Pages,
		Status:    model.TopUpStatusPending,
	}
	created, err := s.topupRepo.Create(ctx, txn)
	if err != nil {
		return nil, fmt.Errorf("create topup: %w", err)
	}

	return &TopUpResult{
		Transaction:      created,
		PaymentRenderURL: s.renderURL(created),
	}, nil
}

func (s *TopUpService) renderURL(txn *model.TopUp) string {
	memo := fmt.Sprintf("%s %s", s.paymentCfg.MemoTag, txn.ID)
	q := url.Values{}
	q.Set("amount", fmt.Sprintf("%d", txn.Amount))
	q.Set("memo", memo)
	return s.paymentCfg.RenderBaseURL + "?" + q.Encode()
}

func (s *TopUpService) Get(ctx context.Context, id uuid.UUID) (*model.TopUp, error) {
	return s.topupRepo.Get(ctx, id)
}

func (s *TopUpService) ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]*model.TopUp, error) {
	return s.topupRepo.ListByStudent(ctx, studentID, limit, offset)
}
