package repository

import (
	"context"
	"errors"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/campusprint/print-gateway/pkg/pg"
	"gorm.io/gorm"
)

var ErrDocumentNotFound = errors.New("document not found")

type DocumentRepository struct {
	*pg.DB
}

func NewDocumentRepository(db *pg.DB) *DocumentRepository {
	return &DocumentRepository{
		db,
	}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	entity := toDocumentEntity(doc)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toDocumentModel(entity), nil
}

func (r *DocumentRepository) Get(ctx context.Context, id int64) (*model.Document, error) {
	var entity DocumentEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	return toDocumentModel(&entity), nil
}

// GetOwned fetches a document only if it belongs to the student. A
// document owned by somebody else is indistinguishable from a missing
// one.
func (r *DocumentRepository) GetOwned(ctx context.Context, id int64, studentID string) (*model.Document, error) {
	var entity DocumentEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND student_id = ?", id, studentID).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	return toDocumentModel(&entity), nil
}

func (r *DocumentRepository) ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]*model.Document, error) {
	if limit <= 0 {
		limit = 50
	}

	var entities []*DocumentEntity
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

	return toDocumentModels(entities), nil
}
