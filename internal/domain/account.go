package domain

// CashAccount holds a user's cash ledger in minor currency units.
// Locked cash is earmarked for pending obligations (resting buys' backing)
// and is not available for new orders until released.
type CashAccount struct {
	Balance int64 `json:"balance"`
	Locked  int64 `json:"locked"`
}

// Available returns the cash usable for new orders.
func (c *CashAccount) Available() int64 {
	return c.Balance
}

// Holding is one side of a user's position in a single symbol.
// Locked units are reserved by resting sell orders.
type Holding struct {
	Quantity int64 `json:"quantity"`
	Locked   int64 `json:"locked"`
}

// Position is a user's full yes/no position in one symbol.
type Position struct {
	Yes Holding `json:"yes"`
	No  Holding `json:"no"`
}

// Side returns the holding for the given outcome.
func (p *Position) Side(o Outcome) *Holding {
	if o == OutcomeYes {
		return &p.Yes
	}
	return &p.No
}
