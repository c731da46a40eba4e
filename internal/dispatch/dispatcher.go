// Package dispatch maps typed commands onto the ledger, the matching
// engine, and the snapshot store. It is the single mutation path for
// engine state: commands are applied one at a time under the dispatcher's
// lock, and the snapshot timer takes the same lock to capture state, so
// no capture ever observes a half-applied command.
package dispatch

import (
	"log/slog"
	"os"
	"sync"

	"github.com/evanreis/predictex/internal/domain"
	"github.com/evanreis/predictex/internal/engine"
	"github.com/evanreis/predictex/internal/ledger"
	"github.com/evanreis/predictex/internal/snapshot"
)

// Event is a per-symbol book update published after a successful buy or
// sell. Events are fire-and-forget: the dispatcher never waits on their
// delivery.
type Event struct {
	Symbol string
	Book   domain.BookView
}

// Stats is a point-in-time summary of engine state for the status
// endpoint.
type Stats struct {
	Users         int `json:"users"`
	Symbols       int `json:"symbols"`
	RestingOrders int `json:"restingOrders"`
}

// Dispatcher owns the engine state and applies commands to it.
type Dispatcher struct {
	mu      sync.Mutex
	books   *engine.Books
	ledger  *ledger.Ledger
	matcher *engine.Matcher
	store   *snapshot.Store
	logger  *slog.Logger

	// exit terminates the process for CRASH_SERVER. Swapped out in tests.
	exit func(code int)
}

// New creates a Dispatcher over fresh engine state.
func New(books *engine.Books, led *ledger.Ledger, store *snapshot.Store, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		books:   books,
		ledger:  led,
		matcher: engine.NewMatcher(books, led),
		store:   store,
		logger:  logger,
		exit:    os.Exit,
	}
}

// Dispatch applies one command and returns its response plus any book
// events to publish. A non-nil error means the command kind itself is
// unsupported; the caller must treat that as fatal.
func (d *Dispatcher) Dispatch(cmd Command) (Response, []Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch cmd.Type {
	case CmdCreateUser:
		return d.createUser(cmd.Data), nil, nil
	case CmdCreateSymbol:
		return d.createSymbol(cmd.Data), nil, nil
	case CmdMintTokens:
		return d.mintTokens(cmd.Data), nil, nil
	case CmdBuyOrder:
		return d.placeOrder(cmd.Data, d.matcher.Buy)
	case CmdSellOrder:
		return d.placeOrder(cmd.Data, d.matcher.Sell)
	case CmdViewOrderbook:
		return ok("orderbook", d.books.Export()), nil, nil
	case CmdGetOrderbookBySymbol:
		return d.orderbookBySymbol(cmd.Data), nil, nil
	case CmdGetInrBalances:
		return ok("inr_balances", d.ledger.AllCash()), nil, nil
	case CmdGetStockBalances:
		return ok("stock_balances", d.ledger.AllPositions()), nil, nil
	case CmdGetUserBalance:
		return d.userBalance(cmd.Data), nil, nil
	case CmdGetUserStockBalance:
		return d.userStockBalance(cmd.Data), nil, nil
	case CmdGetUserStockBalanceBySym:
		return d.userStockBalanceBySymbol(cmd.Data), nil, nil
	case CmdOnrampUserBalance:
		return d.onramp(cmd.Data), nil, nil
	case CmdGetUser:
		return d.getUser(cmd.Data), nil, nil
	case CmdGetAllStockSymbols:
		return ok("stock_symbols", d.books.SymbolsByActivity()), nil, nil
	case CmdResetStates:
		d.books.Reset()
		d.ledger.Reset()
		return ok("states_reset", nil), nil, nil
	case CmdCrashServer:
		d.logger.Error("crash command received, terminating")
		d.exit(1)
		return ok("crashing", nil), nil, nil
	case CmdRestoreServerState:
		return d.restoreLocked(), nil, nil
	}
	return Response{}, nil, domain.ErrUnsupportedCommand
}

func (d *Dispatcher) createUser(data CommandData) Response {
	if data.UserID == "" {
		return failure(&domain.ValidationError{Message: "userId is required"})
	}
	if err := d.ledger.CreateUser(data.UserID); err != nil {
		return failure(err)
	}
	return created("user_created", map[string]string{"userId": data.UserID})
}

func (d *Dispatcher) createSymbol(data CommandData) Response {
	if data.StockSymbol == "" {
		return failure(&domain.ValidationError{Message: "stockSymbol is required"})
	}
	if err := d.matcher.CreateSymbol(data.StockSymbol); err != nil {
		return failure(err)
	}
	return created("symbol_created", map[string]string{"stockSymbol": data.StockSymbol})
}

func (d *Dispatcher) mintTokens(data CommandData) Response {
	if data.UserID == "" || data.StockSymbol == "" {
		return failure(&domain.ValidationError{Message: "userId and stockSymbol are required"})
	}
	if err := d.matcher.Mint(data.UserID, data.StockSymbol, data.Quantity); err != nil {
		return failure(err)
	}
	pos, err := d.ledger.Position(data.UserID, data.StockSymbol)
	if err != nil {
		return failure(err)
	}
	return ok("tokens_minted", *pos)
}

type orderFunc func(userID, symbol string, outcome domain.Outcome, price, qty int64) error

func (d *Dispatcher) placeOrder(data CommandData, place orderFunc) (Response, []Event, error) {
	if data.UserID == "" || data.StockSymbol == "" {
		return failure(&domain.ValidationError{Message: "userId and stockSymbol are required"}), nil, nil
	}
	outcome, err := domain.ParseOutcome(data.StockType)
	if err != nil {
		return failure(err), nil, nil
	}
	if err := place(data.UserID, data.StockSymbol, outcome, data.Price, data.Quantity); err != nil {
		return failure(err), nil, nil
	}

	book, _ := d.books.Get(data.StockSymbol)
	view := book.View()
	events := []Event{{Symbol: data.StockSymbol, Book: view}}
	return ok("order_placed", view), events, nil
}

func (d *Dispatcher) orderbookBySymbol(data CommandData) Response {
	if data.StockSymbol == "" {
		return failure(&domain.ValidationError{Message: "stockSymbol is required"})
	}
	book, found := d.books.Get(data.StockSymbol)
	if !found {
		return failure(domain.ErrSymbolNotFound)
	}
	view := book.View()
	if view.Empty() {
		return failure(domain.ErrSymbolNotFound)
	}
	return ok("orderbook", view)
}

func (d *Dispatcher) userBalance(data CommandData) Response {
	acct, err := d.ledger.Cash(data.UserID)
	if err != nil {
		return failure(err)
	}
	return ok("user_balance", *acct)
}

func (d *Dispatcher) userStockBalance(data CommandData) Response {
	positions, err := d.ledger.UserPositions(data.UserID)
	if err != nil {
		return failure(err)
	}
	return ok("user_stock_balance", positions)
}

func (d *Dispatcher) userStockBalanceBySymbol(data CommandData) Response {
	if !d.ledger.HasUser(data.UserID) {
		return failure(domain.ErrUserNotFound)
	}
	if _, found := d.books.Get(data.StockSymbol); !found {
		return failure(domain.ErrSymbolNotFound)
	}
	pos, err := d.ledger.Position(data.UserID, data.StockSymbol)
	if err != nil {
		return failure(err)
	}
	return ok("user_stock_balance", *pos)
}

func (d *Dispatcher) onramp(data CommandData) Response {
	if data.Amount <= 0 {
		return failure(&domain.ValidationError{Message: "amount must be positive"})
	}
	if err := d.ledger.Credit(data.UserID, data.Amount); err != nil {
		return failure(err)
	}
	acct, err := d.ledger.Cash(data.UserID)
	if err != nil {
		return failure(err)
	}
	return ok("balance_onramped", *acct)
}

func (d *Dispatcher) getUser(data CommandData) Response {
	if !d.ledger.HasUser(data.UserID) {
		return failure(domain.ErrUserNotFound)
	}
	return ok("user_exists", map[string]string{"userId": data.UserID})
}

// TakeSnapshot captures the full engine state under the dispatcher lock
// and writes it through the snapshot store. The write itself happens on a
// detached copy, off the lock.
func (d *Dispatcher) TakeSnapshot() error {
	d.mu.Lock()
	state := d.capture()
	d.mu.Unlock()
	return d.store.Write(state)
}

// RestoreLatest replaces engine state from the most recent snapshot.
func (d *Dispatcher) RestoreLatest() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.restore()
}

func (d *Dispatcher) capture() snapshot.State {
	return snapshot.State{
		Orderbook: d.books.Export(),
		Positions: d.ledger.AllPositions(),
		Cash:      d.ledger.AllCash(),
	}
}

func (d *Dispatcher) restore() error {
	state, err := d.store.Load()
	if err != nil {
		return err
	}
	d.books.Restore(state.Orderbook)
	d.ledger.Restore(state.Cash, state.Positions)
	return nil
}

func (d *Dispatcher) restoreLocked() Response {
	if err := d.restore(); err != nil {
		d.logger.Error("restore from snapshot failed", "error", err)
		return failure(&domain.ValidationError{Message: err.Error()})
	}
	return ok("state_restored", nil)
}

// Stats summarizes engine state for the status endpoint.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	orders := 0
	for _, symbol := range d.books.SymbolsByActivity() {
		if book, found := d.books.Get(symbol); found {
			orders += book.OrderCount()
		}
	}
	return Stats{
		Users:         len(d.ledger.Users()),
		Symbols:       len(d.books.SymbolsByActivity()),
		RestingOrders: orders,
	}
}
