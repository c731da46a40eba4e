package domain

// OrderKind distinguishes user-placed sell orders from engine-synthesized
// complementary orders.
type OrderKind string

const (
	// KindSell is a resting offer of outcome units a user owns.
	KindSell OrderKind = "sell"

	// KindSystemGenerated is a resting order minted by the engine to
	// balance the unmatched portion of a buy. Its creator's locked cash
	// backs the complementary side until the order is crossed.
	KindSystemGenerated OrderKind = "system_generated"
)

// OrderView is the wire form of one resting order within a price level.
// Levels keep orders in first-arrival order, so views are serialized as
// arrays rather than maps.
type OrderView struct {
	UserID   string    `json:"userId"`
	Type     OrderKind `json:"type"`
	Quantity int64     `json:"quantity"`
}

// LevelView is the wire form of one price level on one side of a book.
type LevelView struct {
	Price  int64       `json:"price"`
	Total  int64       `json:"total"`
	Orders []OrderView `json:"orders"`
}

// BookView is the wire form of a symbol's full order book, with levels
// sorted by ascending price on each side.
type BookView struct {
	Yes []LevelView `json:"yes"`
	No  []LevelView `json:"no"`
}

// Empty reports whether the book has no resting orders on either side.
func (v BookView) Empty() bool {
	return len(v.Yes) == 0 && len(v.No) == 0
}
