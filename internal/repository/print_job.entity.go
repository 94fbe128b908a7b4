package repository

import (
	"time"

	"github.com/campusprint/print-gateway/internal/model"
)

type PrintJobEntity struct {
	ID         int64     `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	StudentID  string    `db:"student_id"  gorm:"column:student_id;not null;index"`
	PrinterID  int64     `db:"printer_id"  gorm:"column:printer_id;not null;index"`
	DocumentID int64     `db:"document_id" gorm:"column:document_id;not null;index"`
	TotalPages uint      `db:"total_pages" gorm:"column:total_pages;not null"`
	Cost       uint      `db:"cost"        gorm:"column:cost;not null"`
	Status     string    `db:"status"      gorm:"column:status;not null;index"`
	CreatedAt  time.Time `db:"created_at"  gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `db:"updated_at"  gorm:"column:updated_at;autoUpdateTime"`
}

func (PrintJobEntity) TableName() string {
	return "print_jobs"
}

type PrintConfigEntity struct {
	ID          int64  `db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	JobID       int64  `db:"job_id"       gorm:"column:job_id;not null;uniqueIndex"`
	Copies      uint   `db:"copies"       gorm:"column:copies;not null;default:1"`
	PaperSize   string `db:"paper_size"   gorm:"column:paper_size;not null"`
	Duplex      string `db:"duplex"       gorm:"column:duplex;not null"`
	Orientation string `db:"orientation"  gorm:"column:orientation;not null"`
	PageRange   string `db:"page_range"   gorm:"column:page_range"`
}

func (PrintConfigEntity) TableName() string {
	return "print_configs"
}

func toPrintJobEntity(m *model.PrintJob) *PrintJobEntity {
	if m == nil {
		return nil
	}
	return &PrintJobEntity{
		ID:         m.ID,
		StudentID:  m.StudentID,
		PrinterID:  m.PrinterID,
		DocumentID: m.DocumentID,
		TotalPages: m.TotalPages,
		Cost:       m.Cost,
		Status:     string(m.Status),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func toPrintJobModel(e *PrintJobEntity) *model.PrintJob {
	if e == nil {
		return nil
	}
	return &model.PrintJob{
		ID:         e.ID,
		StudentID:  e.StudentID,
		PrinterID:  e.PrinterID,
		DocumentID: e.DocumentID,
		TotalPages: e.TotalPages,
		Cost:       e.Cost,
		Status:     model.PrintJobStatus(e.Status),
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func toPrintJobModels(entities []*PrintJobEntity) []*model.PrintJob {
	if entities == nil {
		return nil
	}
	models := make([]*model.PrintJob, len(entities))
	for i, e := range entities {
		models[i] = toPrintJobModel(e)
	}
	return models
}

func toPrintConfigEntity(m *model.PrintConfig) *PrintConfigEntity {
	if m == nil {
		return nil
	}
	return &PrintConfigEntity{
		ID:          m.ID,
		JobID:       m.JobID,
		Copies:      m.Copies,
		PaperSize:   string(m.PaperSize),
		Duplex:      string(m.Duplex),
		Orientation: string(m.Orientation),
		PageRange:   m.PageRange,
	}
}

func toPrintConfigModel(e *PrintConfigEntity) *model.PrintConfig {
	if e == nil {
		return nil
	}
	return &model.PrintConfig{
		ID:          e.ID,
		JobID:       e.JobID,
		Copies:      e.Copies,
		PaperSize:   model.PaperSize(e.PaperSize),
		Duplex:      model.DuplexMode(e.Duplex),
		Orientation: model.Orientation(e.Orientation),
		PageRange:   e.PageRange,
	}
}
