package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelvat/invoicing-core/internal/domain/receipt"
	"github.com/fuelvat/invoicing-core/internal/invoice"
)

func confirmedTestReceipt(productID uuid.UUID, label, rate, amount string) *receipt.Resolved {
	id := productID
	confirmedAt := time.Now().UTC()
	return &receipt.Resolved{
		ReceiptID:    uuid.New(),
		Input:        receipt.Input{Rate: rate, Amount: amount},
		ProductID:    &id,
		ProductLabel: label,
		Confidence:   receipt.ConfidenceHigh,
		Method:       receipt.MethodIntervalMatch,
		Confirmed:    true,
		ConfirmedAt:  &confirmedAt,
	}
}

func TestInvoiceServiceImpl_Preview(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("Success", func(t *testing.T) {
		mockReceipts := new(MockResolvedReceiptRepository)
		svc := NewInvoiceService(logger, mockReceipts)

		dieselID := uuid.New()
		confirmed := []*receipt.Resolved{
			confirmedTestReceipt(dieselID, "Diesel", "310.00", "620.00"),
		}
		mockReceipts.On("ListConfirmed", ctx).Return(confirmed, nil).Once()

		items, err := svc.Preview(ctx)

		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, dieselID, items[0].ProductID)
		assert.Equal(t, "Diesel", items[0].ProductLabel)
		assert.Equal(t, 1, items[0].ReceiptCount)
		assert.Equal(t, "620.00", items[0].AmountInclVAT.StringFixed(2))
		assert.Equal(t, "525.42", items[0].AmountExVAT.StringFixed(2))
		assert.Equal(t, "94.58", items[0].VATAmount.StringFixed(2))
		mockReceipts.AssertExpectations(t)
	})

	t.Run("Empty", func(t *testing.T) {
		mockReceipts := new(MockResolvedReceiptRepository)
		svc := NewInvoiceService(logger, mockReceipts)

		mockReceipts.On("ListConfirmed", ctx).Return([]*receipt.Resolved{}, nil).Once()

		items, err := svc.Preview(ctx)

		assert.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("RepositoryError", func(t *testing.T) {
		mockReceipts := new(MockResolvedReceiptRepository)
		svc := NewInvoiceService(logger, mockReceipts)

		repoErr := errors.New("database error")
		mockReceipts.On("ListConfirmed", ctx).Return(nil, repoErr).Once()

		items, err := svc.Preview(ctx)

		assert.Equal(t, repoErr, err)
		assert.Nil(t, items)
	})

	t.Run("UnconfirmedReceiptInStore", func(t *testing.T) {
		mockReceipts := new(MockResolvedReceiptRepository)
		svc := NewInvoiceService(logger, mockReceipts)

		stray := confirmedTestReceipt(uuid.New(), "Diesel", "310.00", "620.00")
		stray.Confirmed = false
		mockReceipts.On("ListConfirmed", ctx).Return([]*receipt.Resolved{stray}, nil).Once()

		items, err := svc.Preview(ctx)

		assert.ErrorIs(t, err, invoice.ErrUnconfirmedReceipt)
		assert.Nil(t, items)
	})
}
