package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TopUpStatus is the lifecycle state of a top-up transaction.
// COMPLETED is terminal and a transaction transitions to it at most once.
type TopUpStatus string

const (
	TopUpStatusPending   TopUpStatus = "PENDING"
	TopUpStatusCompleted TopUpStatus = "COMPLETED"
)

// TopUp is a pending or completed balance purchase. It is the unit of
// idempotency for webhook reconciliation.
type TopUp struct {
	ID            uuid.UUID   `json:"id"`
	StudentID     string      `json:"student_id"`
	Amount        uint        `json:"amount"` // currency units
	Pages         uint        `json:"pages"`  // pages credited on completion
	Status        TopUpStatus `json:"status"`
	PaymentMethod string      `json:"payment_method,omitempty"`
	PaymentRef    string      `json:"payment_ref,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
}

func (TopUp) TableName() string { return "topup_transactions" }

// TopUpCreateRequest is the input for requesting a top-up.
type TopUpCreateRequest struct {
	StudentID string `json:"-"`
	Amount    uint   `json:"amount"`
	Pages     uint   `json:"pageQuantity"`
}

func (p TopUpCreateRequest) Validate() error {
	if p.StudentID == "" {
		return errors.New("student id is required")
	}
	if p.Amount == 0 {
		return errors.New("amount is required")
	}
	if p.Pages == 0 {
		return errors.New("pageQuantity is required")
	}
	return nil
}

// WebhookNotification is the inbound payload from the external transfer
// gateway. Field names follow the gateway's wire format.
type WebhookNotification struct {
	Direction     string  `json:"transferDirection"` // "in" or "out"
	Amount        float64 `json:"transferredAmount"`
	Description   string  `json:"description"`
	ReferenceCode string  `json:"referenceCode,omitempty"`
}
