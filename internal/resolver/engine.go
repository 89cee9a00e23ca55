package resolver

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fuelvat/invoicing-core/internal/domain/pricing"
	"github.com/fuelvat/invoicing-core/internal/domain/receipt"
)

// Outcome is the engine's verdict for one receipt. The caller attaches it to
// the receipt identity to form a receipt.Resolved.
type Outcome struct {
	ProductID    *uuid.UUID
	ProductLabel string
	Confidence   receipt.Confidence
	Method       receipt.Method
	Details      *receipt.MatchDetails
}

// Engine runs the three-strategy resolution policy. It is stateless and
// side-effect-free: identical inputs produce identical outcomes, and one
// Engine may be shared across any number of goroutines.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineAt returns an engine with a fixed clock. Resolution depends on the
// clock twice: open intervals are valid through "now", and two-digit receipt
// years expand with the current century.
func NewEngineAt(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Resolve runs the strategies in order and returns the first outcome to clear
// its confidence bar. It never fails: unparsable fields and an empty ledger
// both degrade to a flagged manual-review outcome, which is a normal state,
// not an error.
func (e *Engine) Resolve(in receipt.Input, snapshot []*pricing.PriceRecord, idx Index) Outcome {
	now := e.now().UTC()
	records := sortedByRecency(snapshot)

	if out, ok := e.matchByInterval(in, records, now); ok {
		return out
	}
	if out, ok := e.matchByText(in, records, idx); ok {
		return out
	}
	return Outcome{
		Confidence: receipt.ConfidenceFlagged,
		Method:     receipt.MethodManualReview,
	}
}

// matchByInterval is strategy 1: weight-driven scoring of every price record,
// open and closed, against the receipt's rate and date. A high or medium score
// terminates the policy; price+date evidence outranks text evidence even at
// medium confidence.
func (e *Engine) matchByInterval(in receipt.Input, records []*pricing.PriceRecord, now time.Time) (Outcome, bool) {
	rate, rateOK := ParseAmount(in.Rate)
	date, dateOK := ParseReceiptDate(in.Date, now)
	if !rateOK || !dateOK {
		return Outcome{}, false
	}

	var (
		best      *pricing.PriceRecord
		bestScore float64
		bestPrice float64
		bestDate  float64
	)
	for _, rec := range records {
		price, _ := rec.Price.Float64()
		priceAcc := priceAccuracy(rate, price)
		dateAcc := dateAccuracy(date, rec, now)
		score := compositeScore(priceAcc, dateAcc)
		if best == nil || score > bestScore {
			best = rec
			bestScore = score
			bestPrice = priceAcc
			bestDate = dateAcc
		}
	}
	if best == nil || bestScore <= mediumThreshold {
		return Outcome{}, false
	}

	confidence := receipt.ConfidenceMedium
	if bestScore > highThreshold {
		confidence = receipt.ConfidenceHigh
	}
	productID := best.ProductID
	return Outcome{
		ProductID:    &productID,
		ProductLabel: best.ProductLabel,
		Confidence:   confidence,
		Method:       receipt.MethodIntervalMatch,
		Details: &receipt.MatchDetails{
			MatchedRecordID: best.ID,
			PriceAccuracy:   bestPrice,
			DateAccuracy:    bestDate,
		},
	}, true
}

// matchByText is strategy 2: keyword-token containment against the free-form
// product text. Text carries no date signal, so the winning product resolves
// to its most recent record by validFrom regardless of validity.
func (e *Engine) matchByText(in receipt.Input, records []*pricing.PriceRecord, idx Index) (Outcome, bool) {
	text := strings.ToLower(strings.TrimSpace(in.ProductText))
	if text == "" {
		return Outcome{}, false
	}

	var (
		bestProduct *ProductKeywords
		bestRatio   float64
	)
	for i := range idx {
		kw := &idx[i]
		if len(kw.Tokens) == 0 {
			continue
		}
		found := 0
		for _, tok := range kw.Tokens {
			if strings.Contains(text, tok) {
				found++
			}
		}
		ratio := float64(found) / float64(len(kw.Tokens))
		if bestProduct == nil || ratio > bestRatio {
			bestProduct = kw
			bestRatio = ratio
		}
	}
	if bestProduct == nil || bestRatio <= textMatchThreshold {
		return Outcome{}, false
	}

	latest := latestRecordFor(records, bestProduct.ProductID)
	if latest == nil {
		return Outcome{}, false
	}
	productID := bestProduct.ProductID
	return Outcome{
		ProductID:    &productID,
		ProductLabel: bestProduct.ProductLabel,
		Confidence:   receipt.ConfidenceMedium,
		Method:       receipt.MethodTextMatch,
		Details: &receipt.MatchDetails{
			MatchedRecordID: latest.ID,
			TextConfidence:  bestRatio,
		},
	}, true
}

// sortedByRecency copies the snapshot and orders it most recent validFrom
// first, ID as tiebreak. The snapshot arrives in arbitrary order; sorting
// keeps resolution deterministic when scores tie.
func sortedByRecency(snapshot []*pricing.PriceRecord) []*pricing.PriceRecord {
	records := make([]*pricing.PriceRecord, len(snapshot))
	copy(records, snapshot)
	sort.Slice(records, func(i, j int) bool {
		if !records[i].ValidFrom.Equal(records[j].ValidFrom) {
			return records[i].ValidFrom.After(records[j].ValidFrom)
		}
		return records[i].ID.String() < records[j].ID.String()
	})
	return records
}

func latestRecordFor(sorted []*pricing.PriceRecord, productID uuid.UUID) *pricing.PriceRecord {
	for _, rec := range sorted {
		if rec.ProductID == productID {
			return rec
		}
	}
	return nil
}
