package pricing

// Authorizer decides whether an actor may mutate the price ledger. The
// reference deployment uses a fixed operator list, but any capability check
// (role service, token claims) can satisfy this.
type Authorizer interface {
	CanEditPrices(actor string) bool
}

// OperatorList authorizes a fixed set of operator identities.
type OperatorList map[string]struct{}

// NewOperatorList builds an OperatorList from the configured operator IDs.
func NewOperatorList(ids []string) OperatorList {
	l := make(OperatorList, len(ids))
	for _, id := range ids {
		if id != "" {
			l[id] = struct{}{}
		}
	}
	return l
}

func (l OperatorList) CanEditPrices(actor string) bool {
	_, ok := l[actor]
	return ok
}
