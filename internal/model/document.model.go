package model

import (
	"path/filepath"
	"strings"
	"time"
)

type FileType string

const (
	FileTypePDF     FileType = "pdf"
	FileTypeDoc     FileType = "doc"
	FileTypeDocx    FileType = "docx"
	FileTypeOdt     FileType = "odt"
	FileTypePpt     FileType = "ppt"
	FileTypePptx    FileType = "pptx"
	FileTypeOdp     FileType = "odp"
	FileTypeXls     FileType = "xls"
	FileTypeXlsx    FileType = "xlsx"
	FileTypeTxt     FileType = "txt"
	FileTypeUnknown FileType = "unknown"
)

// Document is an uploaded file a student can print.
type Document struct {
	ID          int64     `json:"id"`
	StudentID   string    `json:"student_id"`
	FileName    string    `json:"file_name"`
	FileType    FileType  `json:"file_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StoragePath string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Document) TableName() string { return "documents" }

// IsSpreadsheet reports whether the document is a spreadsheet format.
// Spreadsheets have no meaningful fixed page layout before printing.
func (d *Document) IsSpreadsheet() bool {
	return d.FileType == FileTypeXls || d.FileType == FileTypeXlsx
}

// IsOfficeDocument reports whether the document needs conversion to PDF
// before an exact page count can be taken.
func (d *Document) IsOfficeDocument() bool {
	switch d.FileType {
	case FileTypeDoc, FileTypeDocx, FileTypeOdt, FileTypePpt, FileTypePptx, FileTypeOdp:
		return true
	}
	return false
}

// FileTypeFromName maps a file name extension to a FileType.
func FileTypeFromName(name string) FileType {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	switch ext {
	case "pdf":
		return FileTypePDF
	case "doc":
		return FileTypeDoc
	case "docx":
		return FileTypeDocx
	case "odt":
		return FileTypeOdt
	case "ppt":
		return FileTypePpt
	case "pptx":
		return FileTypePptx
	case "odp":
		return FileTypeOdp
	case "xls":
		return FileTypeXls
	case "xlsx":
		return FileTypeXlsx
	case "txt":
		return FileTypeTxt
	}
	return FileTypeUnknown
}
