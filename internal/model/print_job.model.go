package model

import (
	"errors"
	"time"
)

// PrintJobStatus is the lifecycle state of a print job.
type PrintJobStatus string

const (
	PrintJobStatusPending   PrintJobStatus = "PENDING"
	PrintJobStatusPrinting  PrintJobStatus = "PRINTING"
	PrintJobStatusCompleted PrintJobStatus = "COMPLETED"
	PrintJobStatusFailed    PrintJobStatus = "FAILED"
	PrintJobStatusCancelled PrintJobStatus = "CANCELLED"
)

type PaperSize string

const (
	PaperSizeStandard PaperSize = "STANDARD"
	PaperSizeLarge    PaperSize = "LARGE"
)

type DuplexMode string

const (
	DuplexOneSided    DuplexMode = "ONE_SIDED"
	DuplexDoubleSided DuplexMode = "DOUBLE_SIDED"
)

type Orientation string

const (
	OrientationPortrait  Orientation = "PORTRAIT"
	OrientationLandscape Orientation = "LANDSCAPE"
)

// PrintConfig is the per-job print configuration sub-record.
type PrintConfig struct {
	ID          int64       `json:"id"`
	JobID       int64       `json:"job_id"`
	Copies      uint        `json:"copies"`
	PaperSize   PaperSize   `json:"paper_size"`
	Duplex      DuplexMode  `json:"duplex"`
	Orientation Orientation `json:"orientation"`
	PageRange   string      `json:"page_range,omitempty"`
}

func (PrintConfig) TableName() string { return "print_configs" }

// PrintJob is created only alongside a successful balance debit.
type PrintJob struct {
	ID         int64          `json:"id"`
	StudentID  string         `json:"student_id"`
	PrinterID  int64          `json:"printer_id"`
	DocumentID int64          `json:"document_id"`
	Config     *PrintConfig   `json:"config,omitempty"`
	TotalPages uint           `json:"total_pages"` // pages actually billed
	Cost       uint           `json:"cost"`
	Status     PrintJobStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (PrintJob) TableName() string { return "print_jobs" }

// PrintJobCreateRequest is the input for creating a print job.
// Zero-valued optional fields are defaulted by Validate.
type PrintJobCreateRequest struct {
	StudentID   string      `json:"-"`
	PrinterID   int64       `json:"printerId"`
	DocumentID  int64       `json:"documentId"`
	Copies      uint        `json:"copies"`
	PaperSize   PaperSize   `json:"paperSize"`
	Duplex      DuplexMode  `json:"duplex"`
	Orientation Orientation `json:"orientation"`
	PageRange   string      `json:"pageRange"`
}

func (p *PrintJobCreateRequest) Validate() error {
	if p.StudentID == "" {
		return errors.New("student id is required")
	}
	if p.PrinterID == 0 {
		return errors.New("printerId is required")
	}
	if p.DocumentID == 0 {
		return errors.New("documentId is required")
	}
	if p.Copies == 0 {
		p.Copies = 1
	}
	switch p.PaperSize {
	case "":
		p.PaperSize = PaperSizeStandard
	case PaperSizeStandard, PaperSizeLarge:
	default:
		return errors.New("paperSize must be STANDARD or LARGE")
	}
	switch p.Duplex {
	case "":
		p.Duplex = DuplexOneSided
	case DuplexOneSided, DuplexDoubleSided:
	default:
		return errors.New("duplex must be ONE_SIDED or DOUBLE_SIDED")
	}
	switch p.Orientation {
	case "":
		p.Orientation = OrientationPortrait
	case OrientationPortrait, OrientationLandscape:
	default:
		return errors.New("orientation must be PORTRAIT or LANDSCAPE")
	}
	return nil
}

// PrintJobFilter controls List queries.
type PrintJobFilter struct {
	StudentID *string
	PrinterID *int64
	Statuses  []PrintJobStatus
	From      *time.Time
	To        *time.Time
	Limit     int // default 50
	Offset    int
	Desc      bool // order by created_at
}

// PrintJobDispatch is the payload published to the dispatch queue when a
// job is created. It carries everything the dispatcher needs to deliver
// the job to a physical printer without re-reading the document row.
type PrintJobDispatch struct {
	JobID       int64       `json:"job_id"`
	StudentID   string      `json:"student_id"`
	PrinterID   int64       `json:"printer_id"`
	DocumentID  int64       `json:"document_id"`
	StoragePath string      `json:"storage_path"`
	FileName    string      `json:"file_name"`
	Copies      uint        `json:"copies"`
	PaperSize   PaperSize   `json:"paper_size"`
	Duplex      DuplexMode  `json:"duplex"`
	Orientation Orientation `json:"orientation"`
	PageRange   string      `json:"page_range,omitempty"`
	Pages       uint        `json:"pages"`
	CreatedAt   time.Time   `json:"created_at"`
}
