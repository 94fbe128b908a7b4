package repository

import (
	"context"
	"testing"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopUpRepository_MarkCompleted(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTopUpRepository(db)
	ctx := context.Background()

	t.Run("pending transitions once", func(t *testing.T) {
		txn, err := repo.Create(ctx, &model.TopUp{
			ID:        uuid.New(),
			StudentID: "stu-1",
			Amount:    10_000,
			Pages:     50,
			Status:    model.TopUpStatusPending,
		})
		require.NoError(t, err)

		err = repo.MarkCompleted(ctx, txn.ID, "bank_transfer", "REF-1")
		assert.NoError(t, err)

		got, err := repo.Get(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TopUpStatusCompleted, got.Status)
		assert.Equal(t, "bank_transfer", got.PaymentMethod)
		assert.NotNil(t, got.CompletedAt)

		// second completion is rejected, first write is untouched
		err = repo.MarkCompleted(ctx, txn.ID, "bank_transfer", "REF-2")
		assert.ErrorIs(t, err, ErrTopUpAlreadyCompleted)

		got, err = repo.Get(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, "REF-1", got.PaymentRef)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		err := repo.MarkCompleted(ctx, uuid.New(), "bank_transfer", "REF-X")
		assert.ErrorIs(t, err, ErrTopUpNotFound)
	})
}

func TestTopUpRepository_GetForUpdate(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTopUpRepository(db)
	ctx := context.Background()

	txn, err := repo.Create(ctx, &model.TopUp{
		ID:        uuid.New(),
		StudentID: "stu-1",
		Amount:    5_000,
		Pages:     25,
		Status:    model.TopUpStatusPending,
	})
	require.NoError(t, err)

	got, err := repo.GetForUpdate(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, got.ID)
	assert.Equal(t, model.TopUpStatusPending, got.Status)

	_, err = repo.GetForUpdate(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTopUpNotFound)
}
