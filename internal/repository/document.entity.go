package repository

import (
	"time"

	"github.com/campusprint/print-gateway/internal/model"
)

type DocumentEntity struct {
	ID          int64     `db:"id"           gorm:"primaryKey;autoIncrement;column:id"`
	StudentID   string    `db:"student_id"   gorm:"column:student_id;not null;index"`
	FileName    string    `db:"file_name"    gorm:"column:file_name;not null"`
	FileType    string    `db:"file_type"    gorm:"column:file_type;not null"`
	SizeBytes   int64     `db:"size_bytes"   gorm:"column:size_bytes;not null;default:0"`
	StoragePath string    `db:"storage_path" gorm:"column:storage_path;not null"`
	CreatedAt   time.Time `db:"created_at"   gorm:"column:created_at;autoCreateTime"`
}

func (DocumentEntity) TableName() string {
	return "documents"
}

func toDocumentEntity(m *model.Document) *DocumentEntity {
	if m == nil {
		return nil
	}
	return &DocumentEntity{
		ID:          m.ID,
		StudentID:   m.StudentID,
		FileName:    m.FileName,
		FileType:    string(m.FileType),
		SizeBytes:   m.SizeBytes,
		StoragePath: m.StoragePath,
		CreatedAt:   m.CreatedAt,
	}
}

func toDocumentModel(e *DocumentEntity) *model.Document {
	if e == nil {
		return nil
	}
	return &model.Document{
		ID:          e.ID,
		StudentID:   e.StudentID,
		FileName:    e.FileName,
		FileType:    model.FileType(e.FileType),
		SizeBytes:   e.SizeBytes,
		StoragePath: e.StoragePath,
		CreatedAt:   e.CreatedAt,
	}
}

func toDocumentModels(entities []*DocumentEntity) []*model.Document {
	if entities == nil {
		return nil
	}
	models := make([]*model.Document, len(entities))
	for i, e := range entities {
		models[i] = toDocumentModel(e)
	}
	return models
}
