package repository

import (
	"time"

	"github.com/campusprint/print-gateway/internal/model"
)

type BalanceEntity struct {
	StudentID        string    `db:"student_id"        gorm:"primaryKey;column:student_id"`
	CurrentBalance   uint      `db:"current_balance"   gorm:"column:current_balance;not null;default:0"`
	DefaultAllotment uint      `db:"default_allotment" gorm:"column:default_allotment;not null;default:0"`
	PurchasedPages   uint      `db:"purchased_pages"   gorm:"column:purchased_pages;not null;default:0"`
	UsedPages        uint      `db:"used_pages"        gorm:"column:used_pages;not null;default:0"`
	UpdatedAt        time.Time `db:"updated_at"        gorm:"column:updated_at;autoUpdateTime"`
}

func (BalanceEntity) TableName() string {
	return "balances"
}

func toBalanceEntity(m *model.Balance) *BalanceEntity {
	if m == nil {
		return nil
	}
	return &BalanceEntity{
		StudentID:        m.StudentID,
		CurrentBalance:   m.CurrentBalance,
		DefaultAllotment: m.DefaultAllotment,
		PurchasedPages:   m.PurchasedPages,
		UsedPages:        m.UsedPages,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toBalanceModel(e *BalanceEntity) *model.Balance {
	if e == nil {
		return nil
	}
	return &model.Balance{
		StudentID:        e.StudentID,
		CurrentBalance:   e.CurrentBalance,
		DefaultAllotment: e.DefaultAllotment,
		PurchasedPages:   e.PurchasedPages,
		UsedPages:        e.UsedPages,
		UpdatedAt:        e.UpdatedAt,
	}
}
