package repository

import (
	"context"
	"errors"
	"time"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/campusprint/print-gateway/pkg/pg"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTopUpNotFound         = errors.New("topup transaction not found")
	ErrTopUpAlreadyCompleted = errors.New("topup transaction already completed")
)

type TopUpRepository struct {
	*pg.DB
}

func NewTopUpRepository(db *pg.DB) *TopUpRepository {
	return &TopUpRepository{
		db,
	}
}

func (r *TopUpRepository) Create(ctx context.Context, txn *model.TopUp) (*model.TopUp, error) {
	entity := toTopUpEntity(txn)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTopUpModel(entity), nil
}

func (r *TopUpRepository) Get(ctx context.Context, id uuid.UUID) (*model.TopUp, error) {
	var entity TopUpEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopUpNotFound
		}
		return nil, err
	}

	return toTopUpModel(&entity), nil
}

// GetForUpdate loads the transaction under a row lock. Reconciliation
// reads the status and transitions it as one atomic unit, so the lock
// must be held until the enclosing transaction commits.
func (r *TopUpRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.TopUp, error) {
	var entity TopUpEntity
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopUpNotFound
		}
		return nil, err
	}

	return toTopUpModel(&entity), nil
}

// MarkCompleted transitions PENDING to COMPLETED at most once. The
// status guard in the WHERE clause means a second concurrent caller
// affects zero rows and gets ErrTopUpAlreadyCompleted.
func (r *TopUpRepository) MarkCompleted(ctx context.Context, id uuid.UUID, method, ref string) error {
	now := time.Now()
	result := r.Write(ctx).WithContext(ctx).
		Model(&TopUpEntity{}).
		Where("id = ? AND status = ?", id, string(model.TopUpStatusPending)).
		Updates(map[string]interface{}{
			"status":         string(model.TopUpStatusCompleted),
			"payment_method": method,
			"payment_ref":    ref,
			"completed_at":   &now,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var entity TopUpEntity
		err := r.Read(ctx).WithContext(ctx).
			Where("id = ?", id).
			First(&entity).
			Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTopUpNotFound
		}
		if err != nil {
			return err
		}
		return ErrTopUpAlreadyCompleted
	}

	return nil
}

func (r *TopUpRepository) ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]*model.TopUp, error) {
	if limit <= 0 {
		limit = 50
	}

	var entities []*TopUpEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	models := make([]*model.TopUp, len(entities))
	for i, e := range entities {
		models[i] = toTopUpModel(e)
	}
	return models, nil
}
