package pagecount

import (
	"context"
	"os"
	"time"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/campusprint/print-gateway/pkg/logger"
	"github.com/campusprint/print-gateway/pkg/prom"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pkg/errors"
)

// bytes-per-page heuristics, empirically chosen per format family
const (
	bytesPerPageSpreadsheet = 50_000
	bytesPerPageText        = 2_000
	bytesPerPageUnknown     = 100_000
)

// Estimator resolves a document to a billable page count. PDFs are
// parsed directly, office formats go through the Converter first, and
// spreadsheets and plain text are estimated from byte size.
type Estimator struct {
	converter Converter
}

func NewEstimator(converter Converter) *Estimator {
	return &Estimator{converter: converter}
}

// Count returns the page count used for billing. For word-processing
// and presentation formats a failed conversion surfaces as
// ErrConversionUnavailable instead of a silently wrong count. A missing
// stored file degrades to the size estimate for every format, so
// ErrConversionUnavailable only ever means the converter could not
// handle a file that exists.
func (e *Estimator) Count(ctx context.Context, doc *model.Document) (int, error) {
	start := time.Now()
	defer func() {
		prom.AddPageCountDuration(time.Since(start).Seconds(), string(doc.FileType))
	}()

	if _, err := os.Stat(doc.StoragePath); err != nil {
		logger.Warn("stored file missing, falling back to size estimate",
			"document_id", doc.ID, "error", err)
		return EstimateBySize(doc), nil
	}

	switch {
	case doc.FileType == model.FileTypePDF:
		n, err := countPDF(doc.StoragePath)
		if err != nil {
			logger.Warn("pdf parse failed, falling back to size estimate",
				"document_id", doc.ID, "error", err)
			return EstimateBySize(doc), nil
		}
		return n, nil

	case doc.IsSpreadsheet(), doc.FileType == model.FileTypeTxt:
		return EstimateBySize(doc), nil

	case doc.IsOfficeDocument():
		pdfPath, cleanup, err := e.converter.ConvertToPDF(ctx, doc.StoragePath)
		if err != nil {
			return 0, err
		}
		defer cleanup()
		n, err := countPDF(pdfPath)
		if err != nil {
			return 0, errors.Wrapf(ErrConversionUnavailable, "converted output unreadable: %v", err)
		}
		return n, nil
	}

	return EstimateBySize(doc), nil
}

// Estimate returns a non-blocking page estimate. It never invokes the
// converter, so it is safe to call on upload paths where latency
// matters more than exactness.
func (e *Estimator) Estimate(doc *model.Document) int {
	if doc.FileType == model.FileTypePDF {
		if n, err := countPDF(doc.StoragePath); err == nil {
			return n
		}
	}
	return EstimateBySize(doc)
}

// EstimateBySize divides the byte size by a per-format constant,
// rounding up, minimum 1. Zero-byte documents still count as one page.
func EstimateBySize(doc *model.Document) int {
	var perPage int64
	switch {
	case doc.IsSpreadsheet():
		perPage = bytesPerPageSpreadsheet
	case doc.FileType == model.FileTypeTxt:
		perPage = bytesPerPageText
	default:
		perPage = bytesPerPageUnknown
	}

	n := (doc.SizeBytes + perPage - 1) / perPage
	if n < 1 {
		n = 1
	}
	return int(n)
}

func countPDF(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.Errorf("pagecount: pdf reports %d pages", n)
	}
	return n, nil
}
