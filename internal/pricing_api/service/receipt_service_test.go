package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fuelvat/invoicing-core/internal/domain/pricing"
	"github.com/fuelvat/invoicing-core/internal/domain/receipt"
	"github.com/fuelvat/invoicing-core/internal/domain/shared"
	"github.com/fuelvat/invoicing-core/internal/resolver"
)

type MockResolvedReceiptRepository struct {
	mock.Mock
}

func (m *MockResolvedReceiptRepository) Save(ctx context.Context, resolved *receipt.Resolved) error {
	args := m.Called(ctx, resolved)
	return args.Error(0)
}

func (m *MockResolvedReceiptRepository) GetByReceiptID(ctx context.Context, receiptID uuid.UUID) (*receipt.Resolved, error) {
	args := m.Called(ctx, receiptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receipt.Resolved), args.Error(1)
}

func (m *MockResolvedReceiptRepository) ListPending(ctx context.Context, limit, offset int) ([]*receipt.Resolved, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*receipt.Resolved), args.Error(1)
}

func (m *MockResolvedReceiptRepository) CountPending(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockResolvedReceiptRepository) ListConfirmed(ctx context.Context) ([]*receipt.Resolved, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*receipt.Resolved), args.Error(1)
}

func (m *MockResolvedReceiptRepository) Confirm(ctx context.Context, receiptID uuid.UUID) error {
	args := m.Called(ctx, receiptID)
	return args.Error(0)
}

var _ receipt.Repository = (*MockResolvedReceiptRepository)(nil)

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newReceiptService(receiptRepo receipt.Repository, priceRepo pricing.Repository, producer *MockMessagePublisher) ReceiptService {
	return NewReceiptService(slog.Default(), receiptRepo, priceRepo, producer, resolver.NewEngine())
}

func TestReceiptServiceImpl_IngestReceipt(t *testing.T) {
	ctx := context.Background()

	t.Run("AssignsReceiptID", func(t *testing.T) {
		mockProducer := new(MockMessagePublisher)
		svc := newReceiptService(new(MockResolvedReceiptRepository), new(MockPriceRepository), mockProducer)

		extraction := &shared.ReceiptExtraction{Rate: "350.00", Amount: "3500.00", Date: "15-06-24"}
		mockProducer.On("Publish", ctx, mock.AnythingOfType("string"), extraction).Return(nil).Once()

		id, err := svc.IngestReceipt(ctx, extraction)

		assert.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, id)
		assert.Equal(t, extraction.ReceiptID, id)
		assert.False(t, extraction.Timestamp.IsZero())
		mockProducer.AssertExpectations(t)
	})

	t.Run("KeepsExistingReceiptID", func(t *testing.T) {
		mockProducer := new(MockMessagePublisher)
		svc := newReceiptService(new(MockResolvedReceiptRepository), new(MockPriceRepository), mockProducer)

		receiptID := uuid.New()
		extraction := &shared.ReceiptExtraction{ReceiptID: receiptID, Rate: "350.00"}
		mockProducer.On("Publish", ctx, receiptID.String(), extraction).Return(nil).Once()

		id, err := svc.IngestReceipt(ctx, extraction)

		assert.NoError(t, err)
		assert.Equal(t, receiptID, id)
		mockProducer.AssertExpectations(t)
	})

	t.Run("PublishError", func(t *testing.T) {
		mockProducer := new(MockMessagePublisher)
		svc := newReceiptService(new(MockResolvedReceiptRepository), new(MockPriceRepository), mockProducer)

		publishErr := errors.New("broker unavailable")
		mockProducer.On("Publish", ctx, mock.AnythingOfType("string"), mock.Anything).Return(publishErr).Once()

		id, err := svc.IngestReceipt(ctx, &shared.ReceiptExtraction{Rate: "350.00"})

		assert.Equal(t, publishErr, err)
		assert.Equal(t, uuid.Nil, id)
		mockProducer.AssertExpectations(t)
	})
}

func TestReceiptServiceImpl_ResolveReceipt(t *testing.T) {
	ctx := context.Background()

	openRecord := &pricing.PriceRecord{
		ID:           uuid.New(),
		ProductID:    uuid.New(),
		ProductLabel: "Petrol 95",
		Price:        decimal.RequireFromString("350.00"),
		ValidFrom:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		IsOpen:       true,
	}

	t.Run("HighConfidenceMatch", func(t *testing.T) {
		mockReceipts := new(MockResolvedReceiptRepository)
		mockPrices := new(MockPriceRepository)
		svc := newReceiptService(mockReceipts, mockPrices, new(MockMessagePublisher))

		receiptID := uuid.New()
		in := receipt.Input{Rate: "350.00", Volume: "10", Amount: "3500.00", Date: "15-06-24"}

		mockPrices.On("Snapshot", ctx).Return([]*pricing.PriceRecord{openRecord}, nil).Once()
		mockReceipts.On("Save", ctx, mock.AnythingOfType("*receipt.Resolved")).Return(nil).Once()

		resolved, err := svc.ResolveReceipt(ctx, receiptID, in, "corr1")

		require.NoError(t, err)
		assert.Equal(t, receiptID, resolved.ReceiptID)
		assert.Equal(t, receipt.ConfidenceHigh, resolved.Confidence)
		assert.Equal(t, receipt.MethodIntervalMatch, resolved.Method)
		require.NotNil(t, resolved.ProductID)
		assert.Equal(t, openRecord.ProductID, *resolved.ProductID)
		assert.Equal(t, "corr1", resolved.CorrelationID)
		mockReceipts.AssertExpectations(t)
		mockPrices.AssertExpectations(t)
	})

	t.Run("FlaggedOnEmptyLedger", func(t *testing.T) {
		mockReceipts := new(MockResolvedReceiptRepository)
		mockPrices := new(MockPriceRepository)
		svc := newReceiptService(mockReceipts, mockPrices, new(MockMessagePublisher))

		mockPrices.On("Snapshot", ctx).Return([]*pricing.PriceRecord{}, nil).Once()
		mockReceipts.On("Save", ctx, mock.AnythingOfType("*receipt.Resolved")).Return(nil).Once()

		resolved, err := svc.ResolveReceipt(ctx, uuid.New(), receipt.Input{Rate: "350.00"}, "")

		require.NoError(t, err)
		assert.Equal(t, receipt.ConfidenceFlagged, resolved.Confidence)
		assert.Equal(t, receipt.MethodManualReview, resolved.Method)
		assert.Nil(t, resolved.ProductID)
		mockReceipts.AssertExpectations(t)
	})

	t.Run("SnapshotError", func(t *testing.T) {
		mockReceipts := new(MockResolvedReceiptRepository)
		mockPrices := new(MockPriceRepository)
		svc := newReceiptService(mockReceipts, mockPrices, new(MockMessagePublisher))

		snapshotErr := errors.New("database error")
		mockPrices.On("Snapshot", ctx).Return(nil, snapshotErr).Once()

		resolved, err := svc.ResolveReceipt(ctx, uuid.New(), receipt.Input{}, "")

		assert.Equal(t, snapshotErr, err)
		assert.Nil(t, resolved)
		mockReceipts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("SaveError", func(t *testing.T) {
		mockReceipts := new(MockResolvedReceiptRepository)
		mockPrices := new(MockPriceRepository)
		svc := newReceiptService(mockReceipts, mockPrices, new(MockMessagePublisher))

		saveErr := errors.New("write failed")
		mockPrices.On("Snapshot", ctx).Return([]*pricing.PriceRecord{}, nil).Once()
		mockReceipts.On("Save", ctx, mock.Anything).Return(saveErr).Once()

		resolved, err := svc.ResolveReceipt(ctx, uuid.New(), receipt.Input{}, "")

		assert.Equal(t, saveErr, err)
		assert.Nil(t, resolved)
	})
}

func TestReceiptServiceImpl_ListPendingReceipts(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockReceipts := new(MockResolvedReceiptRepository)
		svc := newReceiptService(mockReceipts, new(MockPriceRepository), new(MockMessagePublisher))

		pending := []*receipt.Resolved{{ReceiptID: uuid.New(), Confidence: receipt.ConfidenceFlagged}}
		mockReceipts.On("ListPending", ctx, 10, 10).Return(pending, nil).Once()
		mockReceipts.On("CountPending", ctx).Return(int64(11), nil).Once()

		got, total, err := svc.ListPendingReceipts(ctx, 2, 10)

		assert.NoError(t, err)
		assert.Equal(t, pending, got)
		assert.Equal(t, int64(11), total)
		mockReceipts.AssertExpectations(t)
	})

	t.Run("ListError", func(t *testing.T) {
		mockReceipts := new(MockResolvedReceiptRepository)
		svc := newReceiptService(mockReceipts, new(MockPriceRepository), new(MockMessagePublisher))

		listErr := errors.New("database error")
		mockReceipts.On("ListPending", ctx, 10, 0).Return(nil, listErr).Once()

		_, _, err := svc.ListPendingReceipts(ctx, 1, 10)

		assert.Equal(t, listErr, err)
		mockReceipts.AssertNotCalled(t, "CountPending", mock.Anything)
	})
}

func TestReceiptServiceImpl_ConfirmReceipt(t *testing.T) {
	ctx := context.Background()

	receiptID := uuid.New()
	productID := uuid.New()

	resolvedWithProduct := func() *receipt.Resolved {
		id := productID
		return &receipt.Resolved{
			ReceiptID:    receiptID,
			ProductID:    &id,
			ProductLabel: "Petrol 95",
			Confidence:   receipt.ConfidenceHigh,
			Method:       receipt.MethodIntervalMatch,
		}
	}

	t.Run("ConfirmsResolvedReceipt", func(t *testing.T) {
		mockReceipts := new(MockResolvedReceiptRepository)
		svc := newReceiptService(mockReceipts, new(MockPriceRepository), new(MockMessagePublisher))

		confirmedAt := time.Now().UTC()
		confirmed := resolvedWithProduct()
		confirmed.Confirmed = true
		confirmed.ConfirmedAt = &confirmedAt

		mockReceipts.On("GetByReceiptID", ctx, receiptID).Return(resolvedWithProduct(), nil).Once()
		mockReceipts.On("Confirm", ctx, receiptID).Return(nil).Once()
		mockReceipts.On("GetByReceiptID", ctx, receiptID).Return(confirmed, nil).Once()

		got, err := svc.ConfirmReceipt(ctx, receiptID, nil)

		require.NoError(t, err)
		assert.True(t, got.Confirmed)
		require.NotNil(t, got.ConfirmedAt)
		mockReceipts.AssertExpectations(t)
	})

	t.Run("NoProductSelected", func(t *testing.T) {
		mockReceipts := new(MockResolvedReceiptRepository)
		svc := newReceiptService(mockReceipts, new(MockPriceRepository), new(MockMessagePublisher))

		flagged := &receipt.Resolved{
			ReceiptID:  receiptID,
			Confidence: receipt.ConfidenceFlagged,
			Method:     receipt.MethodManualReview,
		}
		mockReceipts.On("GetByReceiptID", ctx, receiptID).Return(flagged, nil).Once()

		got, err := svc.ConfirmReceipt(ctx, receiptID, nil)

		assert.ErrorIs(t, err, ErrNoProductSelected)
		assert.Nil(t, got)
		mockReceipts.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
	})

	t.Run("OverrideSelectsProduct", func(t *testing.T) {
		mockReceipts := new(MockResolvedReceiptRepository)
		mockPrices := new(MockPriceRepository)
		svc := newReceiptService(mockReceipts, mockPrices, new(MockMessagePublisher))

		overrideID := uuid.New()
		flagged := &receipt.Resolved{
			ReceiptID:  receiptID,
			Confidence: receipt.ConfidenceFlagged,
			Method:     receipt.MethodManualReview,
		}
		overridden := &receipt.Resolved{
			ReceiptID:    receiptID,
			ProductID:    &overrideID,
			ProductLabel: "Diesel",
			Confidence:   receipt.ConfidenceMedium,
			Method:       receipt.MethodManualReview,
			Confirmed:    true,
		}
		ledgerRecord := &pricing.PriceRecord{
			ID:           uuid.New(),
			ProductID:    overrideID,
			ProductLabel: "Diesel",
			Price:        decimal.RequireFromString("310.00"),
			ValidFrom:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			IsOpen:       true,
		}

		mockReceipts.On("GetByReceiptID", ctx, receiptID).Return(flagged, nil).Once()
		mockPrices.On("IntervalsForProduct", ctx, overrideID).Return([]*pricing.PriceRecord{ledgerRecord}, nil).Once()
		mockReceipts.On("Save", ctx, mock.AnythingOfType("*receipt.Resolved")).Return(nil).Once()
		mockReceipts.On("Confirm", ctx, receiptID).Return(nil).Once()
		mockReceipts.On("GetByReceiptID", ctx, receiptID).Return(overridden, nil).Once()

		got, err := svc.ConfirmReceipt(ctx, receiptID, &overrideID)

		require.NoError(t, err)
		assert.Equal(t, receipt.MethodManualReview, got.Method)
		assert.Equal(t, receipt.ConfidenceMedium, got.Confidence)
		assert.Equal(t, "Diesel", got.ProductLabel)

		// The saved record carries the operator's selection
		assert.Equal(t, &overrideID, flagged.ProductID)
		assert.Equal(t, "Diesel", flagged.ProductLabel)
		mockReceipts.AssertExpectations(t)
		mockPrices.AssertExpectations(t)
	})

	t.Run("UnknownOverrideProduct", func(t *testing.T) {
		mockReceipts := new(MockResolvedReceiptRepository)
		mockPrices := new(MockPriceRepository)
		svc := newReceiptService(mockReceipts, mockPrices, new(MockMessagePublisher))

		overrideID := uuid.New()
		mockReceipts.On("GetByReceiptID", ctx, receiptID).Return(resolvedWithProduct(), nil).Once()
		mockPrices.On("IntervalsForProduct", ctx, overrideID).Return([]*pricing.PriceRecord{}, nil).Once()

		got, err := svc.ConfirmReceipt(ctx, receiptID, &overrideID)

		assert.ErrorIs(t, err, ErrUnknownProduct)
		assert.Nil(t, got)
		mockReceipts.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
	})

	t.Run("ReceiptNotFound", func(t *testing.T) {
		mockReceipts := new(MockResolvedReceiptRepository)
		svc := newReceiptService(mockReceipts, new(MockPriceRepository), new(MockMessagePublisher))

		notFound := receipt.ErrReceiptNotFound{ReceiptID: receiptID}
		mockReceipts.On("GetByReceiptID", ctx, receiptID).Return(nil, notFound).Once()

		got, err := svc.ConfirmReceipt(ctx, receiptID, nil)

		assert.ErrorIs(t, err, notFound)
		assert.Nil(t, got)
	})
}
