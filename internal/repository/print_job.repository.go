package repository

import (
	"context"
	"errors"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/campusprint/print-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrPrintJobNotFound   = errors.New("print job not found")
	ErrInvalidTransition  = errors.New("invalid job status transition")
	ErrPrintConfigMissing = errors.New("print config missing")
)

type PrintJobRepository struct {
	*pg.DB
}

func NewPrintJobRepository(db *pg.DB) *PrintJobRepository {
	return &PrintJobRepository{
		db,
	}
}

// Create inserts the job row and its config sub-record. It is meant to
// be called inside a WithinTransaction unit so the job is never
// persisted without its matching debit.
func (r *PrintJobRepository) Create(ctx context.Context, job *model.PrintJob, cfg *model.PrintConfig) (*model.PrintJob, error) {
	if cfg == nil {
		return nil, ErrPrintConfigMissing
	}

	entity := toPrintJobEntity(job)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	cfgEntity := toPrintConfigEntity(cfg)
	cfgEntity.JobID = entity.ID
	if err := r.Write(ctx).WithContext(ctx).Create(cfgEntity).Error; err != nil {
		return nil, err
	}

	m := toPrintJobModel(entity)
	m.Config = toPrintConfigModel(cfgEntity)
	return m, nil
}

// UpdateStatus transitions a job from one status to another. The guard
// on the current status makes concurrent transitions race-safe: only
// one of two competing updates can win.
func (r *PrintJobRepository) UpdateStatus(ctx context.Context, id int64, from, to model.PrintJobStatus) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&PrintJobEntity{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var entity PrintJobEntity
		err := r.Read(ctx).WithContext(ctx).
			Where("id = ?", id).
			First(&entity).
			Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPrintJobNotFound
		}
		if err != nil {
			return err
		}
		return ErrInvalidTransition
	}

	return nil
}

func (r *PrintJobRepository) Get(ctx context.Context, id int64) (*model.PrintJob, error) {
	var entity PrintJobEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPrintJobNotFound
		}
		return nil, err
	}

	job := toPrintJobModel(&entity)

	var cfgEntity PrintConfigEntity
	err = r.Read(ctx).WithContext(ctx).
		Where("job_id = ?", entity.ID).
		First(&cfgEntity).
		Error
	if err == nil {
		job.Config = toPrintConfigModel(&cfgEntity)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return job, nil
}

func (r *PrintJobRepository) List(ctx context.Context, filter model.PrintJobFilter) ([]*model.PrintJob, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&PrintJobEntity{})

	if filter.StudentID != nil {
		q = q.Where("student_id = ?", *filter.StudentID)
	}
	if filter.PrinterID != nil {
		q = q.Where("printer_id = ?", *filter.PrinterID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	order := "created_at ASC"
	if filter.Desc {
		order = "created_at DESC"
	}

	var entities []*PrintJobEntity
	err := q.Order(order).Limit(limit).Offset(filter.Offset).Find(&entities).Error
	if err != nil {
		return nil, err
	}

	return toPrintJobModels(entities), nil
}
