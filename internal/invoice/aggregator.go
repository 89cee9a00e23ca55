// Package invoice reduces confirmed receipts into invoice line items. The
// arithmetic is deliberately simple: the hard work happens upstream in the
// resolver, and this package only realizes the output contract.
package invoice

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fuelvat/invoicing-core/internal/domain/receipt"
	"github.com/fuelvat/invoicing-core/internal/resolver"
)

// VAT is stripped multiplicatively from gross amounts: net = gross / 1.18.
var vatDivisor = decimal.NewFromFloat(1.18)

// ErrUnconfirmedReceipt indicates a receipt that has not been confirmed by a user
var ErrUnconfirmedReceipt = errors.New("receipt is not confirmed")

// ErrUnresolvedReceipt indicates a confirmed receipt with no product or
// unparsable numeric fields; these must be corrected before invoicing
var ErrUnresolvedReceipt = errors.New("receipt has no resolved product or numeric fields")

// LineItem is one invoice row: all confirmed receipts for one product.
type LineItem struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductLabel  string          `json:"product_label"`
	ReceiptCount  int             `json:"receipt_count"`
	Quantity      decimal.Decimal `json:"quantity"` // sum of amount/rate per receipt
	AmountInclVAT decimal.Decimal `json:"amount_incl_vat"`
	AmountExVAT   decimal.Decimal `json:"amount_ex_vat"`
	VATAmount     decimal.Decimal `json:"vat_amount"`
}

// Aggregate groups confirmed receipts by product and produces invoice line
// items, ordered by product label. Every receipt must be confirmed and carry a
// product plus parsable rate and amount; anything else is a contract violation
// by the caller and is reported, not skipped silently.
func Aggregate(receipts []*receipt.Resolved) ([]LineItem, error) {
	type bucket struct {
		label    string
		count    int
		quantity decimal.Decimal
		amount   decimal.Decimal
	}
	buckets := make(map[uuid.UUID]*bucket)

	for _, r := range receipts {
		if !r.Confirmed {
			return nil, ErrUnconfirmedReceipt
		}
		if r.ProductID == nil {
			return nil, ErrUnresolvedReceipt
		}
		rate, rateOK := resolver.ParseAmount(r.Input.Rate)
		amount, amountOK := resolver.ParseAmount(r.Input.Amount)
		if !rateOK || !amountOK {
			return nil, ErrUnresolvedReceipt
		}

		b := buckets[*r.ProductID]
		if b == nil {
			b = &bucket{label: r.ProductLabel, quantity: decimal.Zero, amount: decimal.Zero}
			buckets[*r.ProductID] = b
		}
		b.count++
		amt := decimal.NewFromFloat(amount)
		b.amount = b.amount.Add(amt)
		b.quantity = b.quantity.Add(amt.Div(decimal.NewFromFloat(rate)))
	}

	items := make([]LineItem, 0, len(buckets))
	for id, b := range buckets {
		incl := b.amount.Round(2)
		ex := b.amount.Div(vatDivisor).Round(2)
		items = append(items, LineItem{
			ProductID:     id,
			ProductLabel:  b.label,
			ReceiptCount:  b.count,
			Quantity:      b.quantity.Round(3),
			AmountInclVAT: incl,
			AmountExVAT:   ex,
			VATAmount:     incl.Sub(ex),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].ProductLabel != items[j].ProductLabel {
			return items[i].ProductLabel < items[j].ProductLabel
		}
		return items[i].ProductID.String() < items[j].ProductID.String()
	})
	return items, nil
}
