package model

import "time"

// Balance is a student's page account. All figures are pages, not money.
type Balance struct {
	StudentID        string    `json:"student_id"`
	CurrentBalance   uint      `json:"current_balance"`
	DefaultAllotment uint      `json:"default_allotment"`
	PurchasedPages   uint      `json:"purchased_pages"`
	UsedPages        uint      `json:"used_pages"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Balance) TableName() string { return "balances" }
