package invoice

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelvat/invoicing-core/internal/domain/receipt"
)

func confirmedReceipt(productID uuid.UUID, label, rate, amount string) *receipt.Resolved {
	id := productID
	now := time.Now().UTC()
	return &receipt.Resolved{
		ReceiptID:    uuid.New(),
		Input:        receipt.Input{Rate: rate, Amount: amount, Date: "15-06-24"},
		ProductID:    &id,
		ProductLabel: label,
		Confidence:   receipt.ConfidenceHigh,
		Method:       receipt.MethodIntervalMatch,
		Confirmed:    true,
		ResolvedAt:   now,
		ConfirmedAt:  &now,
	}
}

func TestAggregate(t *testing.T) {
	petrolID := uuid.New()
	dieselID := uuid.New()

	receipts := []*receipt.Resolved{
		confirmedReceipt(petrolID, "Petrol 95", "350.00", "700.00"),
		confirmedReceipt(petrolID, "Petrol 95", "350.00", "1050.00"),
		confirmedReceipt(dieselID, "Diesel", "310.00", "620.00"),
	}

	items, err := Aggregate(receipts)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Ordered by product label
	diesel := items[0]
	assert.Equal(t, dieselID, diesel.ProductID)
	assert.Equal(t, "Diesel", diesel.ProductLabel)
	assert.Equal(t, 1, diesel.ReceiptCount)
	assert.Equal(t, "2", diesel.Quantity.String())
	assert.Equal(t, "620.00", diesel.AmountInclVAT.StringFixed(2))
	// 620 / 1.18 rounded to cents
	assert.Equal(t, "525.42", diesel.AmountExVAT.StringFixed(2))
	assert.Equal(t, "94.58", diesel.VATAmount.StringFixed(2))

	petrol := items[1]
	assert.Equal(t, petrolID, petrol.ProductID)
	assert.Equal(t, 2, petrol.ReceiptCount)
	assert.Equal(t, "5", petrol.Quantity.String())
	assert.Equal(t, "1750.00", petrol.AmountInclVAT.StringFixed(2))
	assert.Equal(t, "1483.05", petrol.AmountExVAT.StringFixed(2))
	assert.Equal(t, "266.95", petrol.VATAmount.StringFixed(2))
}

func TestAggregate_VATSplitAlwaysAddsUp(t *testing.T) {
	productID := uuid.New()

	// An amount whose net does not round cleanly; VAT must be the exact
	// complement of the rounded net so the split reassembles the gross
	items, err := Aggregate([]*receipt.Resolved{
		confirmedReceipt(productID, "Diesel", "310.00", "1000.01"),
	})
	require.NoError(t, err)
	require.Len(t, items, 1)

	sum := items[0].AmountExVAT.Add(items[0].VATAmount)
	assert.True(t, sum.Equal(items[0].AmountInclVAT), "ex VAT + VAT must equal incl VAT, got %s + %s != %s",
		items[0].AmountExVAT, items[0].VATAmount, items[0].AmountInclVAT)
}

func TestAggregate_QuantityRounding(t *testing.T) {
	productID := uuid.New()

	items, err := Aggregate([]*receipt.Resolved{
		confirmedReceipt(productID, "Petrol 95", "350.00", "500.00"),
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	// 500/350 = 1.428571..., kept at millilitre precision
	assert.Equal(t, "1.429", items[0].Quantity.StringFixed(3))
}

func TestAggregate_Empty(t *testing.T) {
	items, err := Aggregate(nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAggregate_RejectsUnconfirmed(t *testing.T) {
	r := confirmedReceipt(uuid.New(), "Diesel", "310.00", "620.00")
	r.Confirmed = false

	_, err := Aggregate([]*receipt.Resolved{r})
	assert.ErrorIs(t, err, ErrUnconfirmedReceipt)
}

func TestAggregate_RejectsUnresolved(t *testing.T) {
	t.Run("no product", func(t *testing.T) {
		r := confirmedReceipt(uuid.New(), "Diesel", "310.00", "620.00")
		r.ProductID = nil

		_, err := Aggregate([]*receipt.Resolved{r})
		assert.ErrorIs(t, err, ErrUnresolvedReceipt)
	})

	t.Run("unparsable rate", func(t *testing.T) {
		r := confirmedReceipt(uuid.New(), "Diesel", "not a number", "620.00")

		_, err := Aggregate([]*receipt.Resolved{r})
		assert.ErrorIs(t, err, ErrUnresolvedReceipt)
	})

	t.Run("unparsable amount", func(t *testing.T) {
		r := confirmedReceipt(uuid.New(), "Diesel", "310.00", "")

		_, err := Aggregate([]*receipt.Resolved{r})
		assert.ErrorIs(t, err, ErrUnresolvedReceipt)
	})
}
