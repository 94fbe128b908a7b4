package billing

import (
	"math"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/pkg/errors"
)

// ErrZeroCost is returned when a computed cost comes out to zero. A
// non-empty document can never legally bill zero credits.
var ErrZeroCost = errors.New("billing: computed cost is zero")

// Options are the print parameters that drive cost. LargeRatio is the
// configured cost multiplier of the large paper format and is passed in
// explicitly, never read from ambient state.
type Options struct {
	Copies     uint
	PaperSize  model.PaperSize
	Duplex     model.DuplexMode
	PageRange  string
	LargeRatio float64
}

// Calculate returns the cost in page credits of printing a document
// with pageCount pages under the given options, along with the
// effective page count that was billed.
//
// Duplex halves the sheet count (rounded up), copies multiply it, and
// the large paper format scales it by LargeRatio rounded up to the
// next whole credit.
func Calculate(pageCount int, opts Options) (cost uint, billedPages uint, err error) {
	effective, err := EffectivePages(pageCount, opts.PageRange)
	if err != nil {
		return 0, 0, err
	}

	sheets := effective
	if opts.Duplex == model.DuplexDoubleSided {
		sheets = (effective + 1) / 2
	}

	copies := opts.Copies
	if copies == 0 {
		copies = 1
	}
	total := float64(sheets) * float64(copies)

	if opts.PaperSize == model.PaperSizeLarge {
		ratio := opts.LargeRatio
		if ratio <= 0 {
			ratio = 2.0
		}
		total = math.Ceil(total * ratio)
	}

	if total < 1 {
		return 0, 0, errors.Wrapf(ErrZeroCost, "%d pages, %d copies", effective, copies)
	}
	return uint(total), uint(effective), nil
}
