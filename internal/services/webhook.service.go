package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/campusprint/print-gateway/internal/repository"
	"github.com/campusprint/print-gateway/pkg/logger"
	"github.com/campusprint/print-gateway/pkg/prom"
	"github.com/google/uuid"
)

// Outcome classifies a webhook delivery. Every outcome except a storage
// failure is acknowledged as success to the gateway, so it never
// retries a notification the system has already classified.
type Outcome string

const (
	OutcomeCredited           Outcome = "credited"
	OutcomeIgnoredDirection   Outcome = "ignored_direction"
	OutcomeNoReference        Outcome = "no_reference"
	OutcomeUnknownTransaction Outcome = "unknown_transaction"
	OutcomeAlreadyCompleted   Outcome = "already_completed"
	OutcomeAmountTooLow       Outcome = "amount_too_low"
)

// Matches a hyphenated UUID first, then a bare 32-hex token. The gateway
// strips hyphens from memos on some transfer rails, so both shapes are
// accepted anywhere in the free text.
var uuidPattern = regexp.MustCompile(
	`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}|[0-9a-fA-F]{32}`)

type WebhookService struct {
	topupRepo   TopUpRepository
	balanceRepo BalanceRepository
}

func NewWebhookService(topupRepo TopUpRepository, balanceRepo BalanceRepository) *WebhookService {
	return &WebhookService{
		topupRepo:   topupRepo,
		balanceRepo: balanceRepo,
	}
}

// Process reconciles one inbound transfer notification. It credits the
// matching pending transaction exactly once: the status read and the
// transition happen under a row lock inside a single database
// transaction, so concurrent duplicate deliveries serialize and all but
// one observe COMPLETED. A non-nil error means infrastructure failure
// and is the only case the caller should surface as retryable.
func (s *WebhookService) Process(ctx context.Context, n model.WebhookNotification) (Outcome, error) {
	if !strings.EqualFold(n.Direction, "in") {
		return s.done(OutcomeIgnoredDirection, n), nil
	}

	txnID, ok := extractTransactionID(n.Description)
	if !ok {
		txnID, ok = extractTransactionID(n.ReferenceCode)
	}
	if !ok {
		return s.done(OutcomeNoReference, n), nil
	}

	var outcome Outcome
	err := s.balanceRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		txn, err := s.topupRepo.GetForUpdate(ctx, txnID)
		if err != nil {
			if errors.Is(err, repository.ErrTopUpNotFound) {
				outcome = OutcomeUnknownTransaction
				return nil
			}
			return fmt.Errorf("load transaction: %w", err)
		}

		if txn.Status != model.TopUpStatusPending {
			outcome = OutcomeAlreadyCompleted
			return nil
		}

		if n.Amount < float64(txn.Amount) {
			outcome = OutcomeAmountTooLow
			return nil
		}

		if err := s.topupRepo.MarkCompleted(ctx, txn.ID, "bank_transfer", n.ReferenceCode); err != nil {
			// The row is locked, so a competing completion is not
			// possible here. Treat any failure as infrastructure.
			return fmt.Errorf("mark completed: %w", err)
		}

		if err := s.balanceRepo.Credit(ctx, txn.StudentID, txn.Pages); err != nil {
			return fmt.Errorf("credit balance: %w", err)
		}

		outcome = OutcomeCredited
		return nil
	})
	if err != nil {
		return "", err
	}

	return s.done(outcome, n), nil
}

func (s *WebhookService) done(o Outcome, n model.WebhookNotification) Outcome {
	prom.IncWebhookOutcome(string(o))
	if o != OutcomeCredited {
		logger.Info("webhook discarded", "outcome", string(o), "direction", n.Direction, "amount", n.Amount)
	}
	return o
}

// extractTransactionID scans free text for a UUID-shaped token. A bare
// 32-hex token is re-hyphenated into canonical form before parsing.
func extractTransactionID(text string) (uuid.UUID, bool) {
	match := uuidPattern.FindString(text)
	if match == "" {
		return uuid.Nil, false
	}

	if !strings.Contains(match, "-") {
		match = match[0:8] + "-" + match[8:12] + "-" + match[12:16] + "-" + match[16:20] + "-" + match[20:32]
	}

	id, err := uuid.Parse(match)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
