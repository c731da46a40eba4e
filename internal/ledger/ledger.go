// Package ledger holds the cash and position accounts the matching engine
// settles against. All mutations are synchronous and total: each operation
// validates before writing any field, so a rejected operation leaves no
// partial state behind.
//
// The ledger itself is not safe for concurrent use. Commands are applied
// one at a time, and the dispatcher's engine lock fences the snapshot
// timer from in-flight mutations.
package ledger

import (
	"sort"

	"github.com/evanreis/predictex/internal/domain"
)

// DefaultFunding is the cash balance, in minor units, granted to a user
// on registration. Funding beyond this arrives via ONRAMP_USER_BALANCE.
const DefaultFunding int64 = 0

// Ledger stores per-user cash accounts and per-user-per-symbol positions.
type Ledger struct {
	cash      map[string]*domain.CashAccount
	positions map[string]map[string]*domain.Position // userID → symbol → position
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		cash:      make(map[string]*domain.CashAccount),
		positions: make(map[string]map[string]*domain.Position),
	}
}

// CreateUser registers a cash account and an empty position map for id.
// It returns domain.ErrUserAlreadyExists if the user is present.
func (l *Ledger) CreateUser(id string) error {
	if _, exists := l.cash[id]; exists {
		return domain.ErrUserAlreadyExists
	}
	l.cash[id] = &domain.CashAccount{Balance: DefaultFunding}
	l.positions[id] = make(map[string]*domain.Position)
	return nil
}

// HasUser reports whether id is registered.
func (l *Ledger) HasUser(id string) bool {
	_, ok := l.cash[id]
	return ok
}

// Cash returns the user's cash account.
func (l *Ledger) Cash(id string) (*domain.CashAccount, error) {
	acct, ok := l.cash[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return acct, nil
}

// Credit adds amount to the user's balance without locking (on-ramp).
func (l *Ledger) Credit(id string, amount int64) error {
	acct, ok := l.cash[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	acct.Balance += amount
	return nil
}

// DebitAndLock moves amount from balance into locked, reserving it for a
// pending obligation. It fails with domain.ErrInsufficientBalance when the
// balance cannot cover the debit, without touching either field.
func (l *Ledger) DebitAndLock(id string, amount int64) error {
	acct, ok := l.cash[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if acct.Balance < amount {
		return domain.ErrInsufficientBalance
	}
	acct.Balance -= amount
	acct.Locked += amount
	return nil
}

// UnlockAndCredit releases amount from locked back into balance.
func (l *Ledger) UnlockAndCredit(id string, amount int64) error {
	acct, ok := l.cash[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	acct.Locked -= amount
	acct.Balance += amount
	return nil
}

// SpendLocked settles a fill: amount leaves the payer's locked cash and
// lands in the payee's balance. Cash only ever moves between accounts;
// matching never creates or destroys it.
func (l *Ledger) SpendLocked(from, to string, amount int64) error {
	src, ok := l.cash[from]
	if !ok {
		return domain.ErrUserNotFound
	}
	dst, ok := l.cash[to]
	if !ok {
		return domain.ErrUserNotFound
	}
	src.Locked -= amount
	dst.Balance += amount
	return nil
}

// Position returns the user's position in symbol, creating a zeroed entry
// the first time a known user touches the symbol.
func (l *Ledger) Position(id, symbol string) (*domain.Position, error) {
	bySymbol, ok := l.positions[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	pos, ok := bySymbol[symbol]
	if !ok {
		pos = &domain.Position{}
		bySymbol[symbol] = pos
	}
	return pos, nil
}

// UserPositions returns a copy of the user's positions across all symbols.
func (l *Ledger) UserPositions(id string) (map[string]domain.Position, error) {
	bySymbol, ok := l.positions[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := make(map[string]domain.Position, len(bySymbol))
	for sym, pos := range bySymbol {
		out[sym] = *pos
	}
	return out, nil
}

// AllCash returns a copy of every cash account, keyed by user ID.
func (l *Ledger) AllCash() map[string]domain.CashAccount {
	out := make(map[string]domain.CashAccount, len(l.cash))
	for id, acct := range l.cash {
		out[id] = *acct
	}
	return out
}

// AllPositions returns a copy of every position, keyed by user then symbol.
func (l *Ledger) AllPositions() map[string]map[string]domain.Position {
	out := make(map[string]map[string]domain.Position, len(l.positions))
	for id, bySymbol := range l.positions {
		m := make(map[string]domain.Position, len(bySymbol))
		for sym, pos := range bySymbol {
			m[sym] = *pos
		}
		out[id] = m
	}
	return out
}

// Users returns all registered user IDs in ascending order.
func (l *Ledger) Users() []string {
	ids := make([]string, 0, len(l.cash))
	for id := range l.cash {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reset discards every account.
func (l *Ledger) Reset() {
	l.cash = make(map[string]*domain.CashAccount)
	l.positions = make(map[string]map[string]*domain.Position)
}

// Restore wholesale-replaces ledger contents from snapshot data.
func (l *Ledger) Restore(cash map[string]domain.CashAccount, positions map[string]map[string]domain.Position) {
	l.cash = make(map[string]*domain.CashAccount, len(cash))
	l.positions = make(map[string]map[string]*domain.Position, len(cash))
	for id, acct := range cash {
		a := acct
		l.cash[id] = &a
		l.positions[id] = make(map[string]*domain.Position)
	}
	for id, bySymbol := range positions {
		if _, ok := l.positions[id]; !ok {
			l.positions[id] = make(map[string]*domain.Position)
		}
		for sym, pos := range bySymbol {
			p := pos
			l.positions[id][sym] = &p
		}
	}
}
