package repository

import (
	"github.com/campusprint/print-gateway/internal/model"
)

type PrinterEntity struct {
	ID       int64  `db:"id"       gorm:"primaryKey;autoIncrement;column:id"`
	Name     string `db:"name"     gorm:"column:name;not null;unique"`
	URI      string `db:"uri"      gorm:"column:uri;not null"`
	Location string `db:"location" gorm:"column:location"`
	Active   bool   `db:"active"   gorm:"column:active;not null;default:true"`
	Status   string `db:"status"   gorm:"column:status;not null;default:'available'"`
}

func (PrinterEntity) TableName() string {
	return "printers"
}

func toPrinterEntity(m *model.Printer) *PrinterEntity {
	if m == nil {
		return nil
	}
	return &PrinterEntity{
		ID:       m.ID,
		Name:     m.Name,
		URI:      m.URI,
		Location: m.Location,
		Active:   m.Active,
		Status:   string(m.Status),
	}
}

func toPrinterModel(e *PrinterEntity) *model.Printer {
	if e == nil {
		return nil
	}
	return &model.Printer{
		ID:       e.ID,
		Name:     e.Name,
		URI:      e.URI,
		Location: e.Location,
		Active:   e.Active,
		Status:   model.PrinterStatus(e.Status),
	}
}

func toPrinterModels(entities []*PrinterEntity) []*model.Printer {
	if entities == nil {
		return nil
	}
	models := make([]*model.Printer, len(entities))
	for i, e := range entities {
		models[i] = toPrinterModel(e)
	}
	return models
}
