package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/your-org/momentum-growth-bot/internal/exchange/binance"
	"github.com/your-org/momentum-growth-bot/pkg/logger"
)

// ExecutionEngine places entry and exit orders for one symbol.
type ExecutionEngine interface {
	// Buy opens a long position sized off the distance between entry and
	// stop, returning the actual fill.
	Buy(ctx context.Context, symbol string, entry, stop float64) (*binance.Fill, error)
	// Sell liquidates quantity of the symbol's base asset at market,
	// returning the actual fill.
	Sell(ctx context.Context, symbol string, quantity float64) (*binance.Fill, error)
	// Live reports whether fills are real exchange executions.
	Live() bool
}

// LiveExecutionEngine executes real orders through the exchange client.
type LiveExecutionEngine struct {
	client     *binance.Client
	sizer      *Sizer
	quoteAsset string
}

// NewLiveExecutionEngine creates an engine funding orders from quoteAsset.
func NewLiveExecutionEngine(client *binance.Client, sizer *Sizer, quoteAsset string) *LiveExecutionEngine {
	return &LiveExecutionEngine{client: client, sizer: sizer, quoteAsset: quoteAsset}
}

// Live reports that this engine places real orders.
func (e *LiveExecutionEngine) Live() bool { return true }

// Buy sizes and places a market buy. The returned fill carries the executed
// quantity and volume-weighted price, which may differ from the request.
func (e *LiveExecutionEngine) Buy(ctx context.Context, symbol string, entry, stop float64) (*binance.Fill, error) {
	balance, err := e.client.GetFreeBalance(ctx, e.quoteAsset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s balance: %w", e.quoteAsset, err)
	}
	filters, err := e.client.GetSymbolFilters(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch filters for %s: %w", symbol, err)
	}
	qty, err := e.sizer.ComputeQuantity(balance, entry, stop, filters)
	if err != nil {
		return nil, err
	}
	return e.client.PlaceMarketOrder(ctx, symbol, "BUY", qty)
}

// Sell liquidates the position at market. The quantity is capped at the
// free base-asset balance and aligned down to the symbol's lot step, since
// fees taken in the base asset leave less than the recorded fill.
func (e *LiveExecutionEngine) Sell(ctx context.Context, symbol string, quantity float64) (*binance.Fill, error) {
	filters, err := e.client.GetSymbolFilters(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch filters for %s: %w", symbol, err)
	}
	free, err := e.client.GetFreeBalance(ctx, filters.BaseAsset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s balance: %w", filters.BaseAsset, err)
	}
	if free < quantity {
		quantity = free
	}
	qty := AlignQuantity(quantity, filters.StepSize)
	if qty <= 0 {
		return nil, fmt.Errorf("quantity %v aligns to zero for %s, nothing to sell", quantity, symbol)
	}
	return e.client.PlaceMarketOrder(ctx, symbol, "SELL", qty)
}

// PriceFunc returns the latest known price for a symbol.
type PriceFunc func(symbol string) (float64, bool)

// PaperExecutionEngine simulates fills against a virtual quote balance using
// live market prices. It never touches the exchange.
type PaperExecutionEngine struct {
	sizer       *Sizer
	price       PriceFunc
	balance     float64
	nextOrderID atomic.Int64
}

// NewPaperExecutionEngine creates a simulated engine with the given virtual
// quote balance.
func NewPaperExecutionEngine(sizer *Sizer, price PriceFunc, balance float64) *PaperExecutionEngine {
	return &PaperExecutionEngine{sizer: sizer, price: price, balance: balance}
}

// Live reports that this engine only simulates fills.
func (e *PaperExecutionEngine) Live() bool { return false }

// Buy simulates a fill at the requested entry price.
func (e *PaperExecutionEngine) Buy(ctx context.Context, symbol string, entry, stop float64) (*binance.Fill, error) {
	qty, err := e.sizer.ComputeQuantity(e.balance, entry, stop, binance.SymbolFilters{})
	if err != nil {
		return nil, err
	}
	fill := &binance.Fill{OrderID: e.nextOrderID.Add(1), Quantity: qty, Price: entry}
	logger.Infof("[Paper] Simulated BUY for %s: quantity=%v price=%v", symbol, fill.Quantity, fill.Price)
	return fill, nil
}

// Sell simulates a fill at the latest cached price.
func (e *PaperExecutionEngine) Sell(ctx context.Context, symbol string, quantity float64) (*binance.Fill, error) {
	price, ok := e.price(symbol)
	if !ok {
		return nil, fmt.Errorf("no price available for %s, cannot simulate sell", symbol)
	}
	fill := &binance.Fill{OrderID: e.nextOrderID.Add(1), Quantity: quantity, Price: price}
	logger.Infof("[Paper] Simulated SELL for %s: quantity=%v price=%v", symbol, fill.Quantity, fill.Price)
	return fill, nil
}
