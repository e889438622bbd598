package binance

// AccountResponse is the subset of the account endpoint the bot consumes.
type AccountResponse struct {
	Balances []Balance `json:"balances"`
}

// Balance is a single asset balance.
type Balance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// ExchangeInfoResponse carries per-symbol trading rules.
type ExchangeInfoResponse struct {
	Symbols []SymbolInfo `json:"symbols"`
}

// SymbolInfo describes one tradable symbol and its filters.
type SymbolInfo struct {
	Symbol     string   `json:"symbol"`
	BaseAsset  string   `json:"baseAsset"`
	QuoteAsset string   `json:"quoteAsset"`
	Filters    []Filter `json:"filters"`
}

// Filter is a raw exchange filter entry; only LOT_SIZE and NOTIONAL
// (or the legacy MIN_NOTIONAL) are interpreted.
type Filter struct {
	FilterType  string `json:"filterType"`
	StepSize    string `json:"stepSize"`
	MinQty      string `json:"minQty"`
	MinNotional string `json:"minNotional"`
}

// OrderResponse is the exchange's acknowledgement of a placed order.
type OrderResponse struct {
	Symbol              string      `json:"symbol"`
	OrderID             int64       `json:"orderId"`
	ClientOrderID       string      `json:"clientOrderId"`
	Status              string      `json:"status"`
	ExecutedQty         string      `json:"executedQty"`
	CummulativeQuoteQty string      `json:"cummulativeQuoteQty"`
	Fills               []OrderFill `json:"fills"`
}

// OrderFill is one partial execution of an order.
type OrderFill struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

// apiError is the error payload returned by the exchange on failures.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

// miniTicker is one entry of the miniticker stream payload.
type miniTicker struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	LastPrice string `json:"c"`
}
