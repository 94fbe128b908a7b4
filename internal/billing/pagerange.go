package billing

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidPageRange = errors.New("billing: invalid page range expression")
	ErrNoPagesSelected  = errors.New("billing: page range selects no valid pages")
)

// EffectivePages resolves a page-range expression against a document's
// page count and returns how many distinct pages it selects.
//
// The expression is a comma-separated list of 1-based single pages and
// inclusive ranges, e.g. "1-5, 8". Indices outside [1, pageCount] are
// ignored. An expression that resolves to zero valid pages is an error,
// never a zero-cost job. An empty expression selects the whole document.
func EffectivePages(pageCount int, rangeExpr string) (int, error) {
	if pageCount <= 0 {
		return 0, errors.Wrapf(ErrInvalidPageRange, "page count %d", pageCount)
	}
	rangeExpr = strings.TrimSpace(rangeExpr)
	if rangeExpr == "" {
		return pageCount, nil
	}

	selected := make(map[int]struct{})
	for _, part := range strings.Split(rangeExpr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return 0, errors.Wrapf(ErrInvalidPageRange, "empty segment in %q", rangeExpr)
		}
		lo, hi, err := parseSegment(part)
		if err != nil {
			return 0, err
		}
		// Clamp before iterating so an absurd upper bound cannot turn
		// into a CPU-bound loop.
		if lo > pageCount {
			continue
		}
		if hi > pageCount {
			hi = pageCount
		}
		for p := lo; p <= hi; p++ {
			selected[p] = struct{}{}
		}
	}

	if len(selected) == 0 {
		return 0, errors.Wrapf(ErrNoPagesSelected, "expression %q against %d pages", rangeExpr, pageCount)
	}
	return len(selected), nil
}

func parseSegment(part string) (lo, hi int, err error) {
	if i := strings.Index(part, "-"); i >= 0 {
		lo, err = parsePage(part[:i])
		if err != nil {
			return 0, 0, err
		}
		hi, err = parsePage(part[i+1:])
		if err != nil {
			return 0, 0, err
		}
		if hi < lo {
			return 0, 0, errors.Wrapf(ErrInvalidPageRange, "descending range %q", part)
		}
		return lo, hi, nil
	}
	lo, err = parsePage(part)
	if err != nil {
		return 0, 0, err
	}
	return lo, lo, nil
}

func parsePage(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errors.Wrapf(ErrInvalidPageRange, "page token %q", s)
	}
	return n, nil
}
