package dispatch

// CommandType identifies one of the closed set of command kinds the
// dispatcher accepts. Anything outside this set is an ingress contract
// violation.
type CommandType string

const (
	CmdCreateUser               CommandType = "CREATE_USER"
	CmdCreateSymbol             CommandType = "CREATE_SYMBOL"
	CmdMintTokens               CommandType = "MINT_TOKENS"
	CmdBuyOrder                 CommandType = "BUY_ORDER"
	CmdSellOrder                CommandType = "SELL_ORDER"
	CmdViewOrderbook            CommandType = "VIEW_ORDERBOOK"
	CmdGetOrderbookBySymbol     CommandType = "GET_ORDERBOOK_BY_STOCK_SYMBOL"
	CmdGetInrBalances           CommandType = "GET_INR_BALANCES"
	CmdGetStockBalances         CommandType = "GET_STOCK_BALANCES"
	CmdGetUserBalance           CommandType = "GET_USER_BALANCE"
	CmdGetUserStockBalance      CommandType = "GET_USER_STOCK_BALANCE"
	CmdGetUserStockBalanceBySym CommandType = "GET_USER_STOCK_BALANCE_BY_STOCK_SYMBOL"
	CmdOnrampUserBalance        CommandType = "ONRAMP_USER_BALANCE"
	CmdGetUser                  CommandType = "GET_USER"
	CmdGetAllStockSymbols       CommandType = "GET_ALL_STOCK_SYMBOLS"
	CmdResetStates              CommandType = "RESET_STATES"
	CmdCrashServer              CommandType = "CRASH_SERVER"
	CmdRestoreServerState       CommandType = "RESTORE_SERVER_STATE"
)

// CommandData carries the union of all command payload fields. Each
// command kind reads only the fields it needs.
type CommandData struct {
	UserID      string `json:"userId,omitempty"`
	StockSymbol string `json:"stockSymbol,omitempty"`
	Quantity    int64  `json:"quantity,omitempty"`
	Price       int64  `json:"price,omitempty"`
	StockType   string `json:"stockType,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
}

// Command is one typed instruction from the ingress.
type Command struct {
	Type CommandType `json:"type"`
	Data CommandData `json:"data"`
}
