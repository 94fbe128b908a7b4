package repository

import (
	"context"
	"testing"

	"github.com/campusprint/print-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintJobRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewPrintJobRepository(db)
	ctx := context.Background()

	t.Run("creates job with config", func(t *testing.T) {
		job, err := repo.Create(ctx, &model.PrintJob{
			StudentID:  "stu-1",
			PrinterID:  1,
			DocumentID: 1,
			TotalPages: 10,
			Cost:       20,
			Status:     model.PrintJobStatusPending,
		}, &model.PrintConfig{
			Copies:      2,
			PaperSize:   model.PaperSizeStandard,
			Duplex:      model.DuplexOneSided,
			Orientation: model.OrientationPortrait,
			PageRange:   "1-10",
		})
		require.NoError(t, err)
		assert.NotZero(t, job.ID)
		require.NotNil(t, job.Config)
		assert.Equal(t, job.ID, job.Config.JobID)

		got, err := repo.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, uint(20), got.Cost)
		require.NotNil(t, got.Config)
		assert.Equal(t, "1-10", got.Config.PageRange)
	})

	t.Run("config is required", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.PrintJob{StudentID: "stu-1"}, nil)
		assert.ErrorIs(t, err, ErrPrintConfigMissing)
	})
}

func TestPrintJobRepository_UpdateStatus(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewPrintJobRepository(db)
	ctx := context.Background()

	newJob := func(t *testing.T) *model.PrintJob {
		job, err := repo.Create(ctx, &model.PrintJob{
			StudentID:  "stu-1",
			PrinterID:  1,
			DocumentID: 1,
			TotalPages: 5,
			Cost:       5,
			Status:     model.PrintJobStatusPending,
		}, &model.PrintConfig{
			Copies:      1,
			PaperSize:   model.PaperSizeStandard,
			Duplex:      model.DuplexOneSided,
			Orientation: model.OrientationPortrait,
		})
		require.NoError(t, err)
		return job
	}

	t.Run("guarded transition succeeds once", func(t *testing.T) {
		job := newJob(t)

		err := repo.UpdateStatus(ctx, job.ID, model.PrintJobStatusPending, model.PrintJobStatusPrinting)
		assert.NoError(t, err)

		// the same transition again loses the guard
		err = repo.UpdateStatus(ctx, job.ID, model.PrintJobStatusPending, model.PrintJobStatusPrinting)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		got, err := repo.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PrintJobStatusPrinting, got.Status)
	})

	t.Run("full lifecycle", func(t *testing.T) {
		job := newJob(t)

		require.NoError(t, repo.UpdateStatus(ctx, job.ID, model.PrintJobStatusPending, model.PrintJobStatusPrinting))
		require.NoError(t, repo.UpdateStatus(ctx, job.ID, model.PrintJobStatusPrinting, model.PrintJobStatusCompleted))

		got, err := repo.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.PrintJobStatusCompleted, got.Status)
	})

	t.Run("job not found", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, 9999, model.PrintJobStatusPending, model.PrintJobStatusPrinting)
		assert.ErrorIs(t, err, ErrPrintJobNotFound)
	})
}

func TestPrintJobRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewPrintJobRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, &model.PrintJob{
			StudentID:  "stu-list",
			PrinterID:  1,
			DocumentID: int64(i + 1),
			TotalPages: 1,
			Cost:       1,
			Status:     model.PrintJobStatusPending,
		}, &model.PrintConfig{
			Copies:      1,
			PaperSize:   model.PaperSizeStandard,
			Duplex:      model.DuplexOneSided,
			Orientation: model.OrientationPortrait,
		})
		require.NoError(t, err)
	}

	student := "stu-list"
	jobs, err := repo.List(ctx, model.PrintJobFilter{StudentID: &student})
	require.NoError(t, err)
	assert.Len(t, jobs, 3)

	jobs, err = repo.List(ctx, model.PrintJobFilter{
		StudentID: &student,
		Statuses:  []model.PrintJobStatus{model.PrintJobStatusCompleted},
	})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}
