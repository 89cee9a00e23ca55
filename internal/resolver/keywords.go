package resolver

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/fuelvat/invoicing-core/internal/domain/pricing"
)

// keywordRules is the fixed table of domain substring rules. It is a closed,
// extensible table rather than a learned model: determinism and explainability
// win over recall here.
var keywordRules = []struct {
	substr string
	tokens []string
}{
	{"petrol", []string{"petrol", "gasoline", "gas", "unleaded"}},
	{"diesel", []string{"diesel", "gasoil"}},
	{"95", []string{"95", "octane 95", "ron 95"}},
	{"92", []string{"92", "octane 92", "ron 92"}},
	{"super", []string{"super", "premium"}},
}

// ProductKeywords is the matchable token set for one product.
type ProductKeywords struct {
	ProductID    uuid.UUID
	ProductLabel string
	Tokens       []string
}

// Index maps every product known to the ledger to the lowercase tokens a
// hand-written receipt might use for it. Ordering is deterministic (label,
// then ID) so repeated resolutions over the same snapshot are byte-identical.
type Index []ProductKeywords

// BuildIndex derives the keyword index from a ledger snapshot. Historical
// products are included: a receipt may reference a product whose only price
// records are closed.
func BuildIndex(records []*pricing.PriceRecord) Index {
	seen := make(map[uuid.UUID]bool, len(records))
	idx := make(Index, 0, len(records))

	for _, rec := range records {
		if seen[rec.ProductID] {
			continue
		}
		seen[rec.ProductID] = true
		idx = append(idx, ProductKeywords{
			ProductID:    rec.ProductID,
			ProductLabel: rec.ProductLabel,
			Tokens:       tokensForLabel(rec.ProductLabel),
		})
	}

	sort.Slice(idx, func(i, j int) bool {
		if idx[i].ProductLabel != idx[j].ProductLabel {
			return idx[i].ProductLabel < idx[j].ProductLabel
		}
		return idx[i].ProductID.String() < idx[j].ProductID.String()
	})
	return idx
}

func tokensForLabel(label string) []string {
	lower := strings.ToLower(label)

	tokens := []string{lower}
	have := map[string]bool{lower: true}

	for _, rule := range keywordRules {
		if !strings.Contains(lower, rule.substr) {
			continue
		}
		for _, tok := range rule.tokens {
			if !have[tok] {
				have[tok] = true
				tokens = append(tokens, tok)
			}
		}
	}
	return tokens
}
