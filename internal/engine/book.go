package engine

import (
	"sort"

	"github.com/google/btree"

	"github.com/evanreis/predictex/internal/domain"
)

// OrderRecord is a single resting order within a price level.
type OrderRecord struct {
	UserID   string
	Kind     domain.OrderKind
	Quantity int64
}

// PriceLevel aggregates all resting orders at one price on one side of a
// symbol's book. Orders keep first-arrival order — the tie-break for
// matching within the level.
type PriceLevel struct {
	Price  int64
	Total  int64
	orders []*OrderRecord
}

// Append adds qty resting units for (userID, kind). A record with the same
// user and kind already on the level absorbs the quantity and keeps its
// queue position; otherwise a new record joins the tail.
func (p *PriceLevel) Append(userID string, kind domain.OrderKind, qty int64) {
	for _, rec := range p.orders {
		if rec.UserID == userID && rec.Kind == kind {
			rec.Quantity += qty
			p.Total += qty
			return
		}
	}
	p.orders = append(p.orders, &OrderRecord{UserID: userID, Kind: kind, Quantity: qty})
	p.Total += qty
}

// Records returns the level's resting orders in arrival order. The slice
// is live: Take removes entries as they are consumed.
func (p *PriceLevel) Records() []*OrderRecord {
	return p.orders
}

// Take consumes qty units from rec, dropping the record once exhausted.
// A level never carries a record with quantity 0.
func (p *PriceLevel) Take(rec *OrderRecord, qty int64) {
	rec.Quantity -= qty
	p.Total -= qty
	if rec.Quantity > 0 {
		return
	}
	for i, r := range p.orders {
		if r == rec {
			p.orders = append(p.orders[:i], p.orders[i+1:]...)
			return
		}
	}
}

// OrderCount returns the number of resting orders on the level.
func (p *PriceLevel) OrderCount() int {
	return len(p.orders)
}

func levelLess(a, b *PriceLevel) bool {
	return a.Price < b.Price
}

// Side is one half (yes or no) of a symbol's book: price levels in a
// B-tree keyed by ascending price, so the price-priority scan order is a
// structural guarantee rather than a property of map iteration.
type Side struct {
	levels *btree.BTreeG[*PriceLevel]
}

// NewSide creates an empty side.
func NewSide() *Side {
	const degree = 32
	return &Side{levels: btree.NewG[*PriceLevel](degree, levelLess)}
}

// Level returns the level at price, if present.
func (s *Side) Level(price int64) (*PriceLevel, bool) {
	return s.levels.Get(&PriceLevel{Price: price})
}

// Upsert returns the level at price, creating it if absent.
func (s *Side) Upsert(price int64) *PriceLevel {
	if lvl, ok := s.levels.Get(&PriceLevel{Price: price}); ok {
		return lvl
	}
	lvl := &PriceLevel{Price: price}
	s.levels.ReplaceOrInsert(lvl)
	return lvl
}

// Delete removes the level at price.
func (s *Side) Delete(price int64) {
	s.levels.Delete(&PriceLevel{Price: price})
}

// Ascend visits levels in ascending price order. The callback returns
// true to continue, false to stop.
func (s *Side) Ascend(fn func(*PriceLevel) bool) {
	s.levels.Ascend(fn)
}

// OrderCount returns the number of resting orders across all levels.
func (s *Side) OrderCount() int {
	n := 0
	s.levels.Ascend(func(lvl *PriceLevel) bool {
		n += len(lvl.orders)
		return true
	})
	return n
}

// View renders the side as sorted level views for serialization.
func (s *Side) View() []domain.LevelView {
	out := make([]domain.LevelView, 0, s.levels.Len())
	s.levels.Ascend(func(lvl *PriceLevel) bool {
		lv := domain.LevelView{
			Price:  lvl.Price,
			Total:  lvl.Total,
			Orders: make([]domain.OrderView, 0, len(lvl.orders)),
		}
		for _, rec := range lvl.orders {
			lv.Orders = append(lv.Orders, domain.OrderView{
				UserID:   rec.UserID,
				Type:     rec.Kind,
				Quantity: rec.Quantity,
			})
		}
		out = append(out, lv)
		return true
	})
	return out
}

// Book is a single symbol's two-sided order book.
type Book struct {
	yes *Side
	no  *Side
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{yes: NewSide(), no: NewSide()}
}

// Side returns the book's side for the given outcome.
func (b *Book) Side(o domain.Outcome) *Side {
	if o == domain.OutcomeYes {
		return b.yes
	}
	return b.no
}

// OrderCount returns the number of resting orders on both sides.
func (b *Book) OrderCount() int {
	return b.yes.OrderCount() + b.no.OrderCount()
}

// View renders the full book for serialization.
func (b *Book) View() domain.BookView {
	return domain.BookView{Yes: b.yes.View(), No: b.no.View()}
}

// Books is the registry of per-symbol order books.
type Books struct {
	books map[string]*Book
}

// NewBooks creates an empty registry.
func NewBooks() *Books {
	return &Books{books: make(map[string]*Book)}
}

// Create registers an empty book for symbol. It returns
// domain.ErrSymbolAlreadyExists if the symbol is present.
func (bs *Books) Create(symbol string) error {
	if _, exists := bs.books[symbol]; exists {
		return domain.ErrSymbolAlreadyExists
	}
	bs.books[symbol] = NewBook()
	return nil
}

// Get returns the book for symbol, if registered.
func (bs *Books) Get(symbol string) (*Book, bool) {
	b, ok := bs.books[symbol]
	return b, ok
}

// SymbolsByActivity returns all symbols ordered by resting-order count
// descending, ties broken by symbol ascending.
func (bs *Books) SymbolsByActivity() []string {
	type ranked struct {
		symbol string
		orders int
	}
	rs := make([]ranked, 0, len(bs.books))
	for sym, b := range bs.books {
		rs = append(rs, ranked{symbol: sym, orders: b.OrderCount()})
	}
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].orders != rs[j].orders {
			return rs[i].orders > rs[j].orders
		}
		return rs[i].symbol < rs[j].symbol
	})
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.symbol
	}
	return out
}

// Export renders every book for the snapshot.
func (bs *Books) Export() map[string]domain.BookView {
	out := make(map[string]domain.BookView, len(bs.books))
	for sym, b := range bs.books {
		out[sym] = b.View()
	}
	return out
}

// Restore wholesale-replaces the registry from snapshot data.
func (bs *Books) Restore(views map[string]domain.BookView) {
	bs.books = make(map[string]*Book, len(views))
	for sym, view := range views {
		b := NewBook()
		restoreSide(b.yes, view.Yes)
		restoreSide(b.no, view.No)
		bs.books[sym] = b
	}
}

func restoreSide(s *Side, levels []domain.LevelView) {
	for _, lv := range levels {
		lvl := s.Upsert(lv.Price)
		for _, ov := range lv.Orders {
			lvl.Append(ov.UserID, ov.Type, ov.Quantity)
		}
	}
}

// Reset discards every book.
func (bs *Books) Reset() {
	bs.books = make(map[string]*Book)
}
