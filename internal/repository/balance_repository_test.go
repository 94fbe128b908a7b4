package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceRepository_Debit(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewBalanceRepository(db)
	ctx := context.Background()

	t.Run("successful debit", func(t *testing.T) {
		entity := &BalanceEntity{
			StudentID:      "stu-1",
			CurrentBalance: 100,
		}
		err := db.Write(ctx).Create(entity).Error
		require.NoError(t, err)

		err = repo.Debit(ctx, "stu-1", 30)
		assert.NoError(t, err)

		balance, err := repo.Get(ctx, "stu-1")
		require.NoError(t, err)
		assert.Equal(t, uint(70), balance.CurrentBalance)
		assert.Equal(t, uint(30), balance.UsedPages)
	})

	t.Run("insufficient balance reports figures", func(t *testing.T) {
		entity := &BalanceEntity{
			StudentID:      "stu-2",
			CurrentBalance: 15,
		}
		err := db.Write(ctx).Create(entity).Error
		require.NoError(t, err)

		err = repo.Debit(ctx, "stu-2", 20)
		assert.ErrorIs(t, err, ErrInsufficientBalance)

		var ibe *InsufficientBalanceError
		require.ErrorAs(t, err, &ibe)
		assert.Equal(t, uint(20), ibe.Required)
		assert.Equal(t, uint(15), ibe.Available)

		balance, err := repo.Get(ctx, "stu-2")
		require.NoError(t, err)
		assert.Equal(t, uint(15), balance.CurrentBalance)
	})

	t.Run("balance not found", func(t *testing.T) {
		err := repo.Debit(ctx, "stu-missing", 10)
		assert.ErrorIs(t, err, ErrBalanceNotFound)
	})

	t.Run("exact balance debit drains to zero", func(t *testing.T) {
		entity := &BalanceEntity{
			StudentID:      "stu-3",
			CurrentBalance: 25,
		}
		err := db.Write(ctx).Create(entity).Error
		require.NoError(t, err)

		err = repo.Debit(ctx, "stu-3", 25)
		assert.NoError(t, err)

		balance, err := repo.Get(ctx, "stu-3")
		require.NoError(t, err)
		assert.Equal(t, uint(0), balance.CurrentBalance)

		err = repo.Debit(ctx, "stu-3", 1)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})
}

func TestBalanceRepository_Credit(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewBalanceRepository(db)
	ctx := context.Background()

	t.Run("successful credit", func(t *testing.T) {
		entity := &BalanceEntity{
			StudentID:      "stu-1",
			CurrentBalance: 10,
		}
		err := db.Write(ctx).Create(entity).Error
		require.NoError(t, err)

		err = repo.Credit(ctx, "stu-1", 50)
		assert.NoError(t, err)

		balance, err := repo.Get(ctx, "stu-1")
		require.NoError(t, err)
		assert.Equal(t, uint(60), balance.CurrentBalance)
		assert.Equal(t, uint(50), balance.PurchasedPages)
	})

	t.Run("balance not found", func(t *testing.T) {
		err := repo.Credit(ctx, "stu-missing", 10)
		assert.ErrorIs(t, err, ErrBalanceNotFound)
	})
}

func TestBalanceRepository_ConcurrentDebits(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewBalanceRepository(db)
	ctx := context.Background()

	entity := &BalanceEntity{
		StudentID:      "stu-conc",
		CurrentBalance: 100,
	}
	err := db.Write(ctx).Create(entity).Error
	require.NoError(t, err)

	const workers = 20
	const debit = 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Debit(ctx, "stu-conc", debit); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	balance, err := repo.Get(ctx, "stu-conc")
	require.NoError(t, err)

	// debits that succeeded must exactly account for the missing pages
	assert.Equal(t, uint(100-succeeded*debit), balance.CurrentBalance)
	assert.LessOrEqual(t, succeeded, 10)
}

func TestBalanceRepository_EnsureExists(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewBalanceRepository(db)
	ctx := context.Background()

	t.Run("provisions default allotment", func(t *testing.T) {
		balance, err := repo.EnsureExists(ctx, "stu-new", 50)
		require.NoError(t, err)
		assert.Equal(t, uint(50), balance.CurrentBalance)
		assert.Equal(t, uint(50), balance.DefaultAllotment)
	})

	t.Run("does not reset an existing row", func(t *testing.T) {
		entity := &BalanceEntity{
			StudentID:      "stu-old",
			CurrentBalance: 7,
		}
		err := db.Write(ctx).Create(entity).Error
		require.NoError(t, err)

		balance, err := repo.EnsureExists(ctx, "stu-old", 50)
		require.NoError(t, err)
		assert.Equal(t, uint(7), balance.CurrentBalance)
	})

	t.Run("concurrent first requests all succeed", func(t *testing.T) {
		const callers = 8
		errs := make([]error, callers)

		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = repo.EnsureExists(ctx, "stu-race", 50)
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			assert.NoError(t, err, "caller %d", i)
		}

		balance, err := repo.Get(ctx, "stu-race")
		require.NoError(t, err)
		assert.Equal(t, uint(50), balance.CurrentBalance)
	})
}
