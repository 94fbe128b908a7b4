package repository

import (
	"context"
	"errors"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/campusprint/print-gateway/pkg/pg"
	"gorm.io/gorm"
)

var ErrPrinterNotFound = errors.New("printer not found")

type PrinterRepository struct {
	*pg.DB
}

func NewPrinterRepository(db *pg.DB) *PrinterRepository {
	return &PrinterRepository{
		db,
	}
}

func (r *PrinterRepository) Get(ctx context.Context, id int64) (*model.Printer, error) {
	var entity PrinterEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPrinterNotFound
		}
		return nil, err
	}

	return toPrinterModel(&entity), nil
}

func (r *PrinterRepository) ListActive(ctx context.Context) ([]*model.Printer, error) {
	var entities []*PrinterEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("active = ?", true).
		Order("name").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}

	return toPrinterModels(entities), nil
}

// UpdateStatus moves the printer to a new availability state. Used by
// the dispatcher while a job is on the device.
func (r *PrinterRepository) UpdateStatus(ctx context.Context, id int64, status model.PrinterStatus) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&PrinterEntity{}).
		Where("id = ?", id).
		Update("status", string(status))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPrinterNotFound
	}
	return nil
}
