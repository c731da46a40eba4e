package engine

import (
	"github.com/evanreis/predictex/internal/domain"
	"github.com/evanreis/predictex/internal/ledger"
)

// Matcher implements the matching engine for binary-outcome contracts.
//
// Every buy of qty units at price p reserves qty*p*100 up front and issues
// the buyer's units immediately; whatever cannot be crossed against resting
// orders is synthesized as a system-generated record on the opposite side
// at the complementary price, backed by the still-locked portion of the
// buyer's cash. Settlement only ever moves cash between accounts, so the
// total of balance+locked across all users is invariant under matching.
type Matcher struct {
	books  *Books
	ledger *ledger.Ledger
}

// NewMatcher creates a Matcher over the given book registry and ledger.
func NewMatcher(books *Books, l *ledger.Ledger) *Matcher {
	return &Matcher{books: books, ledger: l}
}

// CreateSymbol registers an empty yes/no book for symbol.
func (m *Matcher) CreateSymbol(symbol string) error {
	return m.books.Create(symbol)
}

// Mint issues qty backing pairs to the user: yes and no quantity both grow
// by qty. No cash moves; a minted pair is its own collateral.
func (m *Matcher) Mint(userID, symbol string, qty int64) error {
	if _, ok := m.books.Get(symbol); !ok {
		return domain.ErrSymbolNotFound
	}
	if !m.ledger.HasUser(userID) {
		return domain.ErrUserNotFound
	}
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	pos, err := m.ledger.Position(userID, symbol)
	if err != nil {
		return err
	}
	pos.Yes.Quantity += qty
	pos.No.Quantity += qty
	return nil
}

// Buy executes a buy of qty units of outcome at price. The full notional
// is debited and locked before matching. Crossing consumes the outcome
// side's level at exactly price, then the opposite side's level at exactly
// the complementary price, FIFO within each level. The unmatched remainder
// becomes a system-generated resting order on the opposite side at the
// complementary price, owned by the buyer, whose cash stays locked until
// that order is crossed.
func (m *Matcher) Buy(userID, symbol string, outcome domain.Outcome, price, qty int64) error {
	book, ok := m.books.Get(symbol)
	if !ok {
		return domain.ErrSymbolNotFound
	}
	if !m.ledger.HasUser(userID) {
		return domain.ErrUserNotFound
	}
	if !domain.ValidPrice(price) {
		return domain.ErrInvalidPrice
	}
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	if err := m.ledger.DebitAndLock(userID, domain.Notional(price, qty)); err != nil {
		return err
	}

	remaining := qty

	// Direct crossing: resting offers of the bought outcome at this price.
	if err := m.crossBuy(book, outcome, price, userID, symbol, price, &remaining); err != nil {
		return err
	}
	// Complementary crossing: the opposite side at 10-price is the other
	// half of the same pair.
	if err := m.crossBuy(book, outcome.Opposite(), domain.ComplementPrice(price), userID, symbol, price, &remaining); err != nil {
		return err
	}

	if remaining > 0 {
		book.Side(outcome.Opposite()).
			Upsert(domain.ComplementPrice(price)).
			Append(userID, domain.KindSystemGenerated, remaining)
	}

	// The buyer's units are issued immediately, matched and synthesized
	// portions alike; the synthesized portion's notional remains locked.
	pos, err := m.ledger.Position(userID, symbol)
	if err != nil {
		return err
	}
	pos.Side(outcome).Quantity += qty
	return nil
}

// crossBuy consumes the level at levelPrice on the given side, settling
// each resting order against the buyer at payPrice per unit.
func (m *Matcher) crossBuy(book *Book, side domain.Outcome, levelPrice int64, buyer, symbol string, payPrice int64, remaining *int64) error {
	if *remaining == 0 {
		return nil
	}
	s := book.Side(side)
	lvl, ok := s.Level(levelPrice)
	if !ok {
		return nil
	}

	for *remaining > 0 && lvl.OrderCount() > 0 {
		rec := lvl.Records()[0]
		take := min(*remaining, rec.Quantity)

		switch rec.Kind {
		case domain.KindSell:
			// The resting owner cashes out: the buyer's locked notional
			// becomes their balance and their reserved units transfer out.
			if err := m.ledger.SpendLocked(buyer, rec.UserID, domain.Notional(payPrice, take)); err != nil {
				return err
			}
			ownerPos, err := m.ledger.Position(rec.UserID, symbol)
			if err != nil {
				return err
			}
			ownerPos.Side(side).Locked -= take
		case domain.KindSystemGenerated:
			// The record's creator bought the opposite outcome at the
			// complement of this level and their notional has been locked
			// as backing ever since. Crossing settles both legs: the
			// buyer's payment goes to the creator, and the creator's
			// backing unlocks.
			if err := m.ledger.SpendLocked(buyer, rec.UserID, domain.Notional(payPrice, take)); err != nil {
				return err
			}
			backing := domain.Notional(domain.ComplementPrice(levelPrice), take)
			if err := m.ledger.UnlockAndCredit(rec.UserID, backing); err != nil {
				return err
			}
		}

		lvl.Take(rec, take)
		*remaining -= take
	}

	if lvl.Total == 0 {
		s.Delete(levelPrice)
	}
	return nil
}

// Sell offers qty units of outcome at price. The units move from quantity
// to locked up front. The opposite side is scanned in ascending price
// order across every level priced at or below the complementary price;
// system-generated records there were created by buyers of this outcome at
// or above the seller's ask, and their locked backing funds the fill. The
// remainder rests as a sell order on the outcome side at price.
func (m *Matcher) Sell(userID, symbol string, outcome domain.Outcome, price, qty int64) error {
	book, ok := m.books.Get(symbol)
	if !ok {
		return domain.ErrSymbolNotFound
	}
	if !m.ledger.HasUser(userID) {
		return domain.ErrUserNotFound
	}
	if !domain.ValidPrice(price) {
		return domain.ErrInvalidPrice
	}
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}

	pos, err := m.ledger.Position(userID, symbol)
	if err != nil {
		return err
	}
	holding := pos.Side(outcome)
	if holding.Quantity < qty {
		return domain.ErrInsufficientPosition
	}
	holding.Quantity -= qty
	holding.Locked += qty

	remaining := qty
	maxLevel := domain.ComplementPrice(price)
	opp := book.Side(outcome.Opposite())

	// Collect eligible levels before consuming; deletion during an
	// in-order walk would invalidate the tree iterator.
	var eligible []*PriceLevel
	opp.Ascend(func(lvl *PriceLevel) bool {
		if lvl.Price > maxLevel {
			return false
		}
		eligible = append(eligible, lvl)
		return true
	})

	for _, lvl := range eligible {
		if remaining == 0 {
			break
		}
		backingPrice := domain.ComplementPrice(lvl.Price)

		// FIFO within the level. Only system-generated records carry the
		// locked cash that can pay a seller; plain sell records are
		// supply, not demand, and are passed over.
		recs := append([]*OrderRecord(nil), lvl.Records()...)
		for _, rec := range recs {
			if remaining == 0 {
				break
			}
			if rec.Kind != domain.KindSystemGenerated {
				continue
			}
			take := min(remaining, rec.Quantity)
			creator := rec.UserID

			// The creator's backing is backingPrice per unit, at least
			// the seller's ask. The ask goes to the seller; the surplus
			// returns to the creator. The creator's units were issued in
			// full when they bought, so the seller's units retire against
			// them rather than being delivered again.
			if err := m.ledger.SpendLocked(creator, userID, domain.Notional(price, take)); err != nil {
				return err
			}
			if surplus := backingPrice - price; surplus > 0 {
				if err := m.ledger.UnlockAndCredit(creator, domain.Notional(surplus, take)); err != nil {
					return err
				}
			}

			holding.Locked -= take
			lvl.Take(rec, take)
			remaining -= take
		}

		if lvl.Total == 0 {
			opp.Delete(lvl.Price)
		}
	}

	if remaining > 0 {
		book.Side(outcome).Upsert(price).Append(userID, domain.KindSell, remaining)
	}
	return nil
}
