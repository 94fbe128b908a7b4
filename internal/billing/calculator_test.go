package billing

import (
	"testing"
	"time"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	t.Run("standard one-sided multiplies by copies", func(t *testing.T) {
		cost, billed, err := Calculate(10, Options{
			Copies:     2,
			PaperSize:  model.PaperSizeStandard,
			Duplex:     model.DuplexOneSided,
			LargeRatio: 2.0,
		})
		require.NoError(t, err)
		assert.Equal(t, uint(20), cost)
		assert.Equal(t, uint(10), billed)
	})

	t.Run("duplex halves sheets rounding up", func(t *testing.T) {
		cost, _, err := Calculate(10, Options{
			Copies:     1,
			PaperSize:  model.PaperSizeStandard,
			Duplex:     model.DuplexDoubleSided,
			LargeRatio: 2.0,
		})
		require.NoError(t, err)
		assert.Equal(t, uint(5), cost)

		cost, _, err = Calculate(11, Options{
			Copies:     1,
			PaperSize:  model.PaperSizeStandard,
			Duplex:     model.DuplexDoubleSided,
			LargeRatio: 2.0,
		})
		require.NoError(t, err)
		assert.Equal(t, uint(6), cost)
	})

	t.Run("large paper scales by ratio", func(t *testing.T) {
		cost, _, err := Calculate(10, Options{
			Copies:     1,
			PaperSize:  model.PaperSizeLarge,
			Duplex:     model.DuplexOneSided,
			LargeRatio: 2.0,
		})
		require.NoError(t, err)
		assert.Equal(t, uint(20), cost)
	})

	t.Run("fractional ratio rounds up", func(t *testing.T) {
		cost, _, err := Calculate(3, Options{
			Copies:     1,
			PaperSize:  model.PaperSizeLarge,
			Duplex:     model.DuplexOneSided,
			LargeRatio: 1.5,
		})
		require.NoError(t, err)
		assert.Equal(t, uint(5), cost)
	})

	t.Run("page range limits billed pages", func(t *testing.T) {
		cost, billed, err := Calculate(10, Options{
			Copies:     1,
			PaperSize:  model.PaperSizeStandard,
			Duplex:     model.DuplexOneSided,
			PageRange:  "1-5, 8",
			LargeRatio: 2.0,
		})
		require.NoError(t, err)
		assert.Equal(t, uint(6), cost)
		assert.Equal(t, uint(6), billed)
	})

	t.Run("zero copies defaults to one", func(t *testing.T) {
		cost, _, err := Calculate(4, Options{
			PaperSize:  model.PaperSizeStandard,
			Duplex:     model.DuplexOneSided,
			LargeRatio: 2.0,
		})
		require.NoError(t, err)
		assert.Equal(t, uint(4), cost)
	})

	t.Run("range outside document is rejected", func(t *testing.T) {
		_, _, err := Calculate(10, Options{
			Copies:    1,
			PaperSize: model.PaperSizeStandard,
			Duplex:    model.DuplexOneSided,
			PageRange: "11-20",
		})
		assert.ErrorIs(t, err, ErrNoPagesSelected)
	})

	t.Run("invalid page count", func(t *testing.T) {
		_, _, err := Calculate(0, Options{Copies: 1})
		assert.ErrorIs(t, err, ErrInvalidPageRange)
	})
}

func TestEffectivePages(t *testing.T) {
	t.Run("empty expression selects all pages", func(t *testing.T) {
		n, err := EffectivePages(7, "")
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})

	t.Run("overlapping segments count once", func(t *testing.T) {
		n, err := EffectivePages(10, "1-5, 3-7")
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	})

	t.Run("out of bound indices are ignored", func(t *testing.T) {
		n, err := EffectivePages(10, "8-15")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("huge upper bound is clamped, not iterated", func(t *testing.T) {
		start := time.Now()
		n, err := EffectivePages(10, "1-9000000000000000000")
		require.NoError(t, err)
		assert.Equal(t, 10, n)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("huge fully out-of-bound segment", func(t *testing.T) {
		_, err := EffectivePages(10, "1000000000-9000000000000000000")
		assert.ErrorIs(t, err, ErrNoPagesSelected)
	})

	t.Run("single pages and whitespace", func(t *testing.T) {
		n, err := EffectivePages(10, " 2 , 4 , 6 ")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("descending range", func(t *testing.T) {
		_, err := EffectivePages(10, "5-2")
		assert.ErrorIs(t, err, ErrInvalidPageRange)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := EffectivePages(10, "1-abc")
		assert.ErrorIs(t, err, ErrInvalidPageRange)
	})

	t.Run("empty segment", func(t *testing.T) {
		_, err := EffectivePages(10, "1,,3")
		assert.ErrorIs(t, err, ErrInvalidPageRange)
	})
}
