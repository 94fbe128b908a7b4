package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/campusprint/print-gateway/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrBalanceNotFound     = errors.New("balance not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrConcurrentUpdate    = errors.New("concurrent update detected")
	ErrMaxRetriesExceeded  = errors.New("max retries exceeded")
)

// InsufficientBalanceError carries the required and available figures so
// callers can report both. It matches ErrInsufficientBalance under
// errors.Is.
type InsufficientBalanceError struct {
	Required  uint
	Available uint
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

type BalanceRepository struct {
	*pg.DB
}

func NewBalanceRepository(db *pg.DB) *BalanceRepository {
	return &BalanceRepository{
		db,
	}
}

// Debit performs an atomic balance deduction with automatic retry. The
// balance can never go negative: the check and the decrement are
// serialized by a row lock.
func (r *BalanceRepository) Debit(ctx context.Context, studentID string, pages uint) error {
	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := r.debitAttempt(ctx, studentID, pages)

		if err == nil {
			return nil
		}

		// Don't retry on permanent errors
		if errors.Is(err, ErrBalanceNotFound) ||
			errors.Is(err, ErrInsufficientBalance) {
			return err
		}

		// Retry on transient errors
		if attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt) // Exponential backoff: 2ms, 4ms, 8ms
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
	}

	return fmt.Errorf("%w: failed after %d attempts", ErrMaxRetriesExceeded, maxRetries+1)
}

func (r *BalanceRepository) debitAttempt(ctx context.Context, studentID string, pages uint) error {
	var entity BalanceEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ?", studentID).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBalanceNotFound
		}
		return err
	}

	if entity.CurrentBalance < pages {
		return &InsufficientBalanceError{Required: pages, Available: entity.CurrentBalance}
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&BalanceEntity{}).
		Where("student_id = ?", studentID).
		Updates(map[string]interface{}{
			"current_balance": gorm.Expr("current_balance - ?", pages),
			"used_pages":      gorm.Expr("used_pages + ?", pages),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}

	return nil
}

// Credit performs an atomic balance addition with automatic retry using
// SELECT FOR UPDATE. This is used for top-up reconciliation.
func (r *BalanceRepository) Credit(ctx context.Context, studentID string, pages uint) error {
	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := r.creditAttempt(ctx, studentID, pages)

		if err == nil {
			return nil
		}

		// Don't retry on permanent errors
		if errors.Is(err, ErrBalanceNotFound) {
			return err
		}

		// Retry on transient errors
		if attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
	}

	return fmt.Errorf("%w: failed after %d attempts", ErrMaxRetriesExceeded, maxRetries+1)
}

func (r *BalanceRepository) creditAttempt(ctx context.Context, studentID string, pages uint) error {
	var entity BalanceEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ?", studentID).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBalanceNotFound
		}
		return err
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&BalanceEntity{}).
		Where("student_id = ?", studentID).
		Updates(map[string]interface{}{
			"current_balance": gorm.Expr("current_balance + ?", pages),
			"purchased_pages": gorm.Expr("purchased_pages + ?", pages),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrBalanceNotFound
	}

	return nil
}

func (r *BalanceRepository) Get(ctx context.Context, studentID string) (*model.Balance, error) {
	var entity BalanceEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("student_id = ?", studentID).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, err
	}

	return toBalanceModel(&entity), nil
}

// EnsureExists provisions a balance row with the default allotment if
// the student has none yet. Returns the row either way. The insert uses
// ON CONFLICT DO NOTHING so two concurrent first requests for the same
// student both succeed; the read afterwards returns whichever row won.
func (r *BalanceRepository) EnsureExists(ctx context.Context, studentID string, defaultAllotment uint) (*model.Balance, error) {
	entity := BalanceEntity{
		StudentID:        studentID,
		CurrentBalance:   defaultAllotment,
		DefaultAllotment: defaultAllotment,
	}

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity).
		Error
	if err != nil {
		return nil, err
	}

	err = r.Write(ctx).WithContext(ctx).
		Where("student_id = ?", studentID).
		First(&entity).
		Error
	if err != nil {
		return nil, err
	}

	return toBalanceModel(&entity), nil
}
