package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gateway "github.com/campusprint/print-gateway/internal/gateways"
	"github.com/campusprint/print-gateway/internal/model"
	"github.com/campusprint/print-gateway/internal/queue"
	"github.com/campusprint/print-gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDeliveryClient struct {
	mock.Mock
}

func (m *MockDeliveryClient) Deliver(ctx context.Context, printer *model.Printer, req *gateway.DeliverRequest) (*gateway.DeliverResponse, error) {
	args := m.Called(ctx, printer, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.DeliverResponse), args.Error(1)
}

type MockJobRepo struct {
	mock.Mock
}

func (m *MockJobRepo) UpdateStatus(ctx context.Context, id int64, from, to model.PrintJobStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

type MockPrinterRepo struct {
	mock.Mock
}

func (m *MockPrinterRepo) Get(ctx context.Context, id int64) (*model.Printer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Printer), args.Error(1)
}

func dispatchMessage(t *testing.T, d model.PrintJobDispatch) *queue.Message {
	t.Helper()
	data, err := json.Marshal(d)
	require.NoError(t, err)
	return &queue.Message{ID: "1-0", Data: data}
}

func testDispatch() model.PrintJobDispatch {
	return model.PrintJobDispatch{
		JobID:       42,
		StudentID:   "stu-1",
		PrinterID:   3,
		DocumentID:  7,
		StoragePath: "/data/docs/7.pdf",
		FileName:    "thesis.pdf",
		Copies:      1,
		PaperSize:   model.PaperSizeStandard,
		Duplex:      model.DuplexOneSided,
		Orientation: model.OrientationPortrait,
		Pages:       10,
		CreatedAt:   time.Now().Add(-time.Second),
	}
}

func newTestProcessor(t *testing.T) (*PrintJobProcessor, *MockDeliveryClient, *MockJobRepo, *MockPrinterRepo) {
	client := new(MockDeliveryClient)
	jobRepo := new(MockJobRepo)
	printerRepo := new(MockPrinterRepo)
	idem := NewIdempotencyService(setupTestRedis(t), DefaultIdempotencyConfig())
	return NewPrintJobProcessor(client, jobRepo, printerRepo, idem), client, jobRepo, printerRepo
}

func TestPrintJobProcessor_Process(t *testing.T) {
	printer := &model.Printer{ID: 3, Name: "lib-1", URI: "http://printer-1.campus.local:631"}

	t.Run("successful delivery completes the job", func(t *testing.T) {
		p, client, jobRepo, printerRepo := newTestProcessor(t)
		dispatch := testDispatch()

		printerRepo.On("Get", mock.Anything, int64(3)).Return(printer, nil)
		jobRepo.On("UpdateStatus", mock.Anything, int64(42), model.PrintJobStatusPending, model.PrintJobStatusPrinting).Return(nil)
		client.On("Deliver", mock.Anything, printer, mock.MatchedBy(func(req *gateway.DeliverRequest) bool {
			return req.JobID == 42 && req.Pages == 10 && req.DocumentURL == "/data/docs/7.pdf"
		})).Return(&gateway.DeliverResponse{JobID: 42, Status: gateway.StatusAccepted}, nil)
		jobRepo.On("UpdateStatus", mock.Anything, int64(42), model.PrintJobStatusPrinting, model.PrintJobStatusCompleted).Return(nil)

		err := p.Process(context.Background(), dispatchMessage(t, dispatch))
		require.NoError(t, err)

		jobRepo.AssertExpectations(t)
		client.AssertExpectations(t)

		processed, err := p.idempotency.IsProcessed(context.Background(), "42")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("redelivered message is acked without a second delivery", func(t *testing.T) {
		p, client, jobRepo, printerRepo := newTestProcessor(t)
		dispatch := testDispatch()

		printerRepo.On("Get", mock.Anything, int64(3)).Return(printer, nil)
		jobRepo.On("UpdateStatus", mock.Anything, int64(42), model.PrintJobStatusPending, model.PrintJobStatusPrinting).Return(nil)
		client.On("Deliver", mock.Anything, printer, mock.Anything).
			Return(&gateway.DeliverResponse{JobID: 42, Status: gateway.StatusAccepted}, nil).Once()
		jobRepo.On("UpdateStatus", mock.Anything, int64(42), model.PrintJobStatusPrinting, model.PrintJobStatusCompleted).Return(nil)

		require.NoError(t, p.Process(context.Background(), dispatchMessage(t, dispatch)))
		require.NoError(t, p.Process(context.Background(), dispatchMessage(t, dispatch)))

		client.AssertNumberOfCalls(t, "Deliver", 1)
	})

	t.Run("transport failure nacks for retry and leaves job printing", func(t *testing.T) {
		p, client, jobRepo, printerRepo := newTestProcessor(t)
		dispatch := testDispatch()

		printerRepo.On("Get", mock.Anything, int64(3)).Return(printer, nil)
		jobRepo.On("UpdateStatus", mock.Anything, int64(42), model.PrintJobStatusPending, model.PrintJobStatusPrinting).Return(nil)
		client.On("Deliver", mock.Anything, printer, mock.Anything).Return(nil, errors.New("connection refused"))

		err := p.Process(context.Background(), dispatchMessage(t, dispatch))
		require.Error(t, err)

		jobRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, int64(42), model.PrintJobStatusPrinting, model.PrintJobStatusFailed)

		count, err := p.idempotency.GetRetryCount(context.Background(), "42")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("printer rejection fails the job terminally", func(t *testing.T) {
		p, client, jobRepo, printerRepo := newTestProcessor(t)
		dispatch := testDispatch()

		printerRepo.On("Get", mock.Anything, int64(3)).Return(printer, nil)
		jobRepo.On("UpdateStatus", mock.Anything, int64(42), model.PrintJobStatusPending, model.PrintJobStatusPrinting).Return(nil)
		client.On("Deliver", mock.Anything, printer, mock.Anything).
			Return(nil, gateway.ErrPrinterRejected)
		jobRepo.On("UpdateStatus", mock.Anything, int64(42), model.PrintJobStatusPrinting, model.PrintJobStatusFailed).Return(nil)

		err := p.Process(context.Background(), dispatchMessage(t, dispatch))
		require.NoError(t, err) // ACK - retrying cannot succeed

		processed, err := p.idempotency.IsProcessed(context.Background(), "42")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("missing printer fails the job terminally", func(t *testing.T) {
		p, client, jobRepo, printerRepo := newTestProcessor(t)
		dispatch := testDispatch()

		printerRepo.On("Get", mock.Anything, int64(3)).Return(nil, repository.ErrPrinterNotFound)
		jobRepo.On("UpdateStatus", mock.Anything, int64(42), model.PrintJobStatusPending, model.PrintJobStatusFailed).Return(nil)

		err := p.Process(context.Background(), dispatchMessage(t, dispatch))
		require.NoError(t, err)

		client.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancelled job skips delivery", func(t *testing.T) {
		p, client, jobRepo, printerRepo := newTestProcessor(t)
		dispatch := testDispatch()

		printerRepo.On("Get", mock.Anything, int64(3)).Return(printer, nil)
		jobRepo.On("UpdateStatus", mock.Anything, int64(42), model.PrintJobStatusPending, model.PrintJobStatusPrinting).
			Return(repository.ErrInvalidTransition)

		err := p.Process(context.Background(), dispatchMessage(t, dispatch))
		require.NoError(t, err)

		client.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed payload is returned for DLQ", func(t *testing.T) {
		p, _, _, _ := newTestProcessor(t)

		err := p.Process(context.Background(), &queue.Message{ID: "1-0", Data: []byte("{broken")})
		require.Error(t, err)
	})
}
