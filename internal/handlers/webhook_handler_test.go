package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/campusprint/print-gateway/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) Process(ctx context.Context, n model.WebhookNotification) (services.Outcome, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(services.Outcome), args.Error(1)
}

func TestWebhookHandler_HandlePayment(t *testing.T) {
	t.Run("credited returns 200", func(t *testing.T) {
		svc := new(MockWebhookService)
		handler := NewWebhookHandler(svc)

		bodyBytes, _ := json.Marshal(model.WebhookNotification{
			Direction:   "in",
			Amount:      10_000,
			Description: "PRINTTOPUP a1b2c3d4-e5f6-4789-8abc-def012345678",
		})

		svc.On("Process", mock.Anything, mock.MatchedBy(func(n model.WebhookNotification) bool {
			return n.Direction == "in" && n.Amount == 10_000
		})).Return(services.OutcomeCredited, nil)

		ctx := setupTestContext("POST", "/api/v1/webhooks/payment", bodyBytes)
		handler.HandlePayment(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())

		var response webhookResponse
		err := json.Unmarshal(ctx.Response.Body(), &response)
		require.NoError(t, err)
		assert.Equal(t, "credited", response.Outcome)
	})

	t.Run("every discard branch still returns 200", func(t *testing.T) {
		outcomes := []services.Outcome{
			services.OutcomeIgnoredDirection,
			services.OutcomeNoReference,
			services.OutcomeUnknownTransaction,
			services.OutcomeAlreadyCompleted,
			services.OutcomeAmountTooLow,
		}

		for _, outcome := range outcomes {
			svc := new(MockWebhookService)
			handler := NewWebhookHandler(svc)

			bodyBytes, _ := json.Marshal(model.WebhookNotification{Direction: "in"})
			svc.On("Process", mock.Anything, mock.Anything).Return(outcome, nil)

			ctx := setupTestContext("POST", "/api/v1/webhooks/payment", bodyBytes)
			handler.HandlePayment(ctx)

			assert.Equal(t, 200, ctx.Response.StatusCode(), "outcome %s must be acknowledged", outcome)
		}
	})

	t.Run("malformed payload returns 400", func(t *testing.T) {
		svc := new(MockWebhookService)
		handler := NewWebhookHandler(svc)

		ctx := setupTestContext("POST", "/api/v1/webhooks/payment", []byte("<xml/>"))
		handler.HandlePayment(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	})

	t.Run("storage failure returns 500 so the gateway retries", func(t *testing.T) {
		svc := new(MockWebhookService)
		handler := NewWebhookHandler(svc)

		bodyBytes, _ := json.Marshal(model.WebhookNotification{Direction: "in"})
		svc.On("Process", mock.Anything, mock.Anything).
			Return(services.Outcome(""), errors.New("database unavailable"))

		ctx := setupTestContext("POST", "/api/v1/webhooks/payment", bodyBytes)
		handler.HandlePayment(ctx)

		assert.Equal(t, 500, ctx.Response.StatusCode())
	})
}
