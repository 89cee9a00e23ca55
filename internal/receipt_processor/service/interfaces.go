package service

import (
	"context"

	"github.com/fuelvat/invoicing-core/internal/domain/shared"
)

// ResolutionService defines the interface for resolving receipt extractions
// against the price ledger.
type ResolutionService interface {
	ResolveExtraction(ctx context.Context, extraction *shared.ReceiptExtraction) error
}
