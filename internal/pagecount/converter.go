package pagecount

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/campusprint/print-gateway/pkg/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrConversionUnavailable is returned when the external converter is
// missing, unreachable or timed out. Callers distinguish it from a
// generic failure because office formats are charged per true page.
var ErrConversionUnavailable = errors.New("pagecount: document conversion unavailable")

// Converter turns an office document into a PDF and returns the path of
// the produced file. The caller owns cleanup of the returned path's
// directory via the returned cleanup func.
type Converter interface {
	ConvertToPDF(ctx context.Context, srcPath string) (pdfPath string, cleanup func(), err error)
}

// SofficeConverter shells out to a LibreOffice-compatible binary in
// headless mode. Each invocation gets a fresh output directory so
// concurrent conversions never collide.
type SofficeConverter struct {
	bin     string
	timeout time.Duration
}

func NewSofficeConverter(bin string, timeout time.Duration) *SofficeConverter {
	if bin == "" {
		bin = "soffice"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SofficeConverter{bin: bin, timeout: timeout}
}

func (c *SofficeConverter) ConvertToPDF(ctx context.Context, srcPath string) (string, func(), error) {
	outDir, err := os.MkdirTemp("", fmt.Sprintf("printconv_%d_%s_", time.Now().UnixNano(), uuid.NewString()[:8]))
	if err != nil {
		return "", nil, errors.Wrap(err, "create conversion dir")
	}
	cleanup := func() {
		if rmErr := os.RemoveAll(outDir); rmErr != nil {
			logger.Warn("failed to remove conversion dir", "dir", outDir, "error", rmErr)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.bin, "--headless", "--convert-to", "pdf", "--outdir", outDir, srcPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		cleanup()
		if ctx.Err() == context.DeadlineExceeded {
			return "", nil, errors.Wrapf(ErrConversionUnavailable, "converter timed out after %s", c.timeout)
		}
		return "", nil, errors.Wrapf(ErrConversionUnavailable, "converter failed: %v: %s", err, strings.TrimSpace(string(out)))
	}

	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	pdfPath := filepath.Join(outDir, base+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		cleanup()
		return "", nil, errors.Wrapf(ErrConversionUnavailable, "converter produced no output for %s", filepath.Base(srcPath))
	}
	return pdfPath, cleanup, nil
}
