package pagecount

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverter struct {
	pdfPath string
	err     error
	calls   int
}

func (f *fakeConverter) ConvertToPDF(_ context.Context, _ string) (string, func(), error) {
	f.calls++
	if f.err != nil {
		return "", nil, f.err
	}
	return f.pdfPath, func() {}, nil
}

func TestEstimateBySize(t *testing.T) {
	t.Run("spreadsheet uses 50KB per page", func(t *testing.T) {
		doc := &model.Document{FileType: model.FileTypeXlsx, SizeBytes: 125_000}
		assert.Equal(t, 3, EstimateBySize(doc))
	})

	t.Run("text uses 2KB per page", func(t *testing.T) {
		doc := &model.Document{FileType: model.FileTypeTxt, SizeBytes: 4_500}
		assert.Equal(t, 3, EstimateBySize(doc))
	})

	t.Run("unknown uses 100KB per page", func(t *testing.T) {
		doc := &model.Document{FileType: model.FileTypeUnknown, SizeBytes: 100_001}
		assert.Equal(t, 2, EstimateBySize(doc))
	})

	t.Run("zero byte document is one page", func(t *testing.T) {
		doc := &model.Document{FileType: model.FileTypeTxt, SizeBytes: 0}
		assert.Equal(t, 1, EstimateBySize(doc))
	})

	t.Run("exact multiple does not round up", func(t *testing.T) {
		doc := &model.Document{FileType: model.FileTypeXls, SizeBytes: 100_000}
		assert.Equal(t, 2, EstimateBySize(doc))
	})
}

// storedFile writes a placeholder source file so Count sees a document
// whose stored file exists.
func storedFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o600))
	return path
}

func TestEstimatorCount(t *testing.T) {
	ctx := context.Background()

	t.Run("spreadsheet never invokes converter", func(t *testing.T) {
		conv := &fakeConverter{}
		est := NewEstimator(conv)

		doc := &model.Document{FileType: model.FileTypeXlsx, SizeBytes: 60_000, StoragePath: storedFile(t, "sheet.xlsx")}
		n, err := est.Count(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 0, conv.calls)
	})

	t.Run("text never invokes converter", func(t *testing.T) {
		conv := &fakeConverter{}
		est := NewEstimator(conv)

		doc := &model.Document{FileType: model.FileTypeTxt, SizeBytes: 1, StoragePath: storedFile(t, "notes.txt")}
		n, err := est.Count(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, 0, conv.calls)
	})

	t.Run("office format surfaces conversion unavailable", func(t *testing.T) {
		conv := &fakeConverter{err: ErrConversionUnavailable}
		est := NewEstimator(conv)

		doc := &model.Document{FileType: model.FileTypeDocx, SizeBytes: 10_000, StoragePath: storedFile(t, "memo.docx")}
		_, err := est.Count(ctx, doc)
		assert.ErrorIs(t, err, ErrConversionUnavailable)
		assert.Equal(t, 1, conv.calls)
	})

	t.Run("office format with unreadable converter output", func(t *testing.T) {
		bogus := filepath.Join(t.TempDir(), "out.pdf")
		require.NoError(t, os.WriteFile(bogus, []byte("not a pdf"), 0o600))

		conv := &fakeConverter{pdfPath: bogus}
		est := NewEstimator(conv)

		doc := &model.Document{FileType: model.FileTypeOdt, SizeBytes: 10_000, StoragePath: storedFile(t, "memo.odt")}
		_, err := est.Count(ctx, doc)
		assert.ErrorIs(t, err, ErrConversionUnavailable)
	})

	t.Run("missing stored file falls back to size estimate", func(t *testing.T) {
		conv := &fakeConverter{err: ErrConversionUnavailable}
		est := NewEstimator(conv)

		doc := &model.Document{
			FileType:    model.FileTypeDocx,
			SizeBytes:   120_000,
			StoragePath: filepath.Join(t.TempDir(), "gone.docx"),
		}
		n, err := est.Count(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 0, conv.calls)
	})

	t.Run("missing stored pdf falls back to size estimate", func(t *testing.T) {
		est := NewEstimator(&fakeConverter{})

		doc := &model.Document{
			FileType:    model.FileTypePDF,
			SizeBytes:   250_000,
			StoragePath: filepath.Join(t.TempDir(), "gone.pdf"),
		}
		n, err := est.Count(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("unparseable pdf falls back to size estimate", func(t *testing.T) {
		bogus := filepath.Join(t.TempDir(), "doc.pdf")
		require.NoError(t, os.WriteFile(bogus, []byte("not a pdf"), 0o600))

		est := NewEstimator(&fakeConverter{})
		doc := &model.Document{FileType: model.FileTypePDF, SizeBytes: 250_000, StoragePath: bogus}
		n, err := est.Count(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})
}
