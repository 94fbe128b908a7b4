package repository

import (
	"time"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/google/uuid"
)

type TopUpEntity struct {
	ID            uuid.UUID  `db:"id"             gorm:"primaryKey;type:uuid;column:id"`
	StudentID     string     `db:"student_id"     gorm:"column:student_id;not null;index"`
	Amount        uint       `db:"amount"         gorm:"column:amount;not null"`
	Pages         uint       `db:"pages"          gorm:"column:pages;not null"`
	Status        string     `db:"status"         gorm:"column:status;not null;index"`
	PaymentMethod string     `db:"payment_method" gorm:"column:payment_method"`
	PaymentRef    string     `db:"payment_ref"    gorm:"column:payment_ref"`
	CreatedAt     time.Time  `db:"created_at"     gorm:"column:created_at;autoCreateTime"`
	CompletedAt   *time.Time `db:"completed_at"   gorm:"column:completed_at"`
}

func (TopUpEntity) TableName() string {
	return "topup_transactions"
}

func toTopUpEntity(m *model.TopUp) *TopUpEntity {
	if m == nil {
		return nil
	}
	return &TopUpEntity{
		ID:            m.ID,
		StudentID:     m.StudentID,
		Amount:        m.Amount,
		Pages:         m.Pages,
		Status:        string(m.Status),
		PaymentMethod: m.PaymentMethod,
		PaymentRef:    m.PaymentRef,
		CreatedAt:     m.CreatedAt,
		CompletedAt:   m.CompletedAt,
	}
}

func toTopUpModel(e *TopUpEntity) *model.TopUp {
	if e == nil {
		return nil
	}
	return &model.TopUp{
		ID:            e.ID,
		StudentID:     e.StudentID,
		Amount:        e.Amount,
		Pages:         e.Pages,
		Status:        model.TopUpStatus(e.Status),
		PaymentMethod: e.PaymentMethod,
		PaymentRef:    e.PaymentRef,
		CreatedAt:     e.CreatedAt,
		CompletedAt:   e.CompletedAt,
	}
}
