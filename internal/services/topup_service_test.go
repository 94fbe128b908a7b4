package services

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testPaymentConfig() PaymentConfig {
	return PaymentConfig{
		RenderBaseURL: "https://pay.example.edu/render",
		MemoTag:       "PRINTTOPUP",
		MinAmount:     2_000,
		MaxAmount:     500_000,
		MinPages:      10,
		MaxPages:      500,
	}
}

func TestTopUpService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending transaction with render url", func(t *testing.T) {
		topupRepo := new(MockTopUpRepository)
		balRepo := new(MockBalanceRepository)
		service := NewTopUpService(topupRepo, balRepo, testPaymentConfig(), testBillingConfig())

		balRepo.On("EnsureExists", ctx, "stu-1", uint(50)).
			Return(&model.Balance{StudentID: "stu-1", CurrentBalance: 50}, nil)
		topupRepo.On("Create", ctx, mock.AnythingOfType("*model.TopUp")).
			Return(func(ctx context.Context, txn *model.TopUp) *model.TopUp { return txn }, nil)

		result, err := service.Create(ctx, model.TopUpCreateRequest{
			StudentID: "stu-1",
			Amount:    10_000,
			Pages:     50,
		})
		require.NoError(t, err)
		assert.Equal(t, model.TopUpStatusPending, result.Transaction.Status)
		assert.Equal(t, uint(10_000), result.Transaction.Amount)

		u, err := url.Parse(result.PaymentRenderURL)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(result.PaymentRenderURL, "https://pay.example.edu/render?"))
		assert.Equal(t, "10000", u.Query().Get("amount"))

		memo := u.Query().Get("memo")
		assert.True(t, strings.HasPrefix(memo, "PRINTTOPUP "))
		assert.Contains(t, memo, result.Transaction.ID.String())

		balRepo.AssertExpectations(t)
	})

	t.Run("amount below minimum", func(t *testing.T) {
		service := NewTopUpService(new(MockTopUpRepository), new(MockBalanceRepository), testPaymentConfig(), testBillingConfig())

		_, err := service.Create(ctx, model.TopUpCreateRequest{
			StudentID: "stu-1", Amount: 1_999, Pages: 50,
		})
		assert.ErrorIs(t, err, ErrAmountOutOfBounds)
	})

	t.Run("amount above maximum", func(t *testing.T) {
		service := NewTopUpService(new(MockTopUpRepository), new(MockBalanceRepository), testPaymentConfig(), testBillingConfig())

		_, err := service.Create(ctx, model.TopUpCreateRequest{
			StudentID: "stu-1", Amount: 500_001, Pages: 50,
		})
		assert.ErrorIs(t, err, ErrAmountOutOfBounds)
	})

	t.Run("pages out of bounds", func(t *testing.T) {
		service := NewTopUpService(new(MockTopUpRepository), new(MockBalanceRepository), testPaymentConfig(), testBillingConfig())

		_, err := service.Create(ctx, model.TopUpCreateRequest{
			StudentID: "stu-1", Amount: 10_000, Pages: 9,
		})
		assert.ErrorIs(t, err, ErrPagesOutOfBounds)

		_, err = service.Create(ctx, model.TopUpCreateRequest{
			StudentID: "stu-1", Amount: 10_000, Pages: 501,
		})
		assert.ErrorIs(t, err, ErrPagesOutOfBounds)
	})
}
