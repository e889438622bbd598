// Package binance handles interactions with the Binance exchange.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/your-org/momentum-growth-bot/pkg/logger"
)

var (
	// defaultBaseURL can be overridden for testing.
	defaultBaseURL = "https://api.binance.com"
)

// GetBaseURL returns the current base URL used by the client.
func GetBaseURL() string {
	return defaultBaseURL
}

// SetBaseURL sets the base URL for the client.
// This is intended for use in tests to redirect requests to a mock server.
func SetBaseURL(u string) {
	defaultBaseURL = u
}

// SymbolFilters are the exchange-imposed trading constraints for a symbol.
type SymbolFilters struct {
	BaseAsset   string
	StepSize    decimal.Decimal
	MinQty      decimal.Decimal
	MinNotional decimal.Decimal
}

// Client provides methods to interact with the Binance REST API.
type Client struct {
	apiKey     string
	secretKey  string
	httpClient *http.Client

	filterMu    sync.Mutex
	filterCache map[string]SymbolFilters
}

// NewClient creates a new Binance API client.
func NewClient(apiKey, secretKey string) *Client {
	return &Client{
		apiKey:      apiKey,
		secretKey:   secretKey,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		filterCache: make(map[string]SymbolFilters),
	}
}

func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) doSigned(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	query := params.Encode()
	query += "&signature=" + c.sign(query)

	req, err := http.NewRequestWithContext(ctx, method, defaultBaseURL+endpoint+"?"+query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	return c.do(req)
}

func (c *Client) doPublic(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := defaultBaseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request to %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s (status %d): %w", req.URL.Path, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("binance API error on %s: %d %s", req.URL.Path, apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("binance API returned status %d on %s: %s", resp.StatusCode, req.URL.Path, body)
	}
	return body, nil
}

// GetFreeBalance returns the tradable balance of a single asset.
func (c *Client) GetFreeBalance(ctx context.Context, asset string) (float64, error) {
	body, err := c.doSigned(ctx, http.MethodGet, "/api/v3/account", nil)
	if err != nil {
		return 0, err
	}
	var acct AccountResponse
	if err := json.Unmarshal(body, &acct); err != nil {
		return 0, fmt.Errorf("failed to decode account response: %w", err)
	}
	for _, b := range acct.Balances {
		if b.Asset == asset {
			free, err := strconv.ParseFloat(b.Free, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid free balance %q for asset %s: %w", b.Free, asset, err)
			}
			return free, nil
		}
	}
	return 0, nil
}

// GetSymbolFilters returns the lot-size and minimum-notional constraints for
// a symbol. Results are cached for the lifetime of the client; exchange
// filters change rarely enough that a restart picks up revisions.
func (c *Client) GetSymbolFilters(ctx context.Context, symbol string) (SymbolFilters, error) {
	c.filterMu.Lock()
	if f, ok := c.filterCache[symbol]; ok {
		c.filterMu.Unlock()
		return f, nil
	}
	c.filterMu.Unlock()

	params := url.Values{}
	params.Set("symbol", symbol)
	body, err := c.doPublic(ctx, "/api/v3/exchangeInfo", params)
	if err != nil {
		return SymbolFilters{}, err
	}

	var info ExchangeInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return SymbolFilters{}, fmt.Errorf("failed to decode exchange info: %w", err)
	}
	if len(info.Symbols) == 0 {
		return SymbolFilters{}, fmt.Errorf("symbol %s not found in exchange info", symbol)
	}

	filters, err := parseFilters(info.Symbols[0])
	if err != nil {
		return SymbolFilters{}, err
	}

	c.filterMu.Lock()
	c.filterCache[symbol] = filters
	c.filterMu.Unlock()
	return filters, nil
}

func parseFilters(s SymbolInfo) (SymbolFilters, error) {
	out := SymbolFilters{BaseAsset: s.BaseAsset}
	for _, f := range s.Filters {
		switch f.FilterType {
		case "LOT_SIZE":
			step, err := decimal.NewFromString(f.StepSize)
			if err != nil {
				return out, fmt.Errorf("invalid stepSize %q for %s: %w", f.StepSize, s.Symbol, err)
			}
			minQty, err := decimal.NewFromString(f.MinQty)
			if err != nil {
				return out, fmt.Errorf("invalid minQty %q for %s: %w", f.MinQty, s.Symbol, err)
			}
			out.StepSize = step
			out.MinQty = minQty
		case "NOTIONAL", "MIN_NOTIONAL":
			minNotional, err := decimal.NewFromString(f.MinNotional)
			if err != nil {
				return out, fmt.Errorf("invalid minNotional %q for %s: %w", f.MinNotional, s.Symbol, err)
			}
			out.MinNotional = minNotional
		}
	}
	if out.StepSize.IsZero() {
		return out, fmt.Errorf("symbol %s has no LOT_SIZE filter", s.Symbol)
	}
	return out, nil
}

// Fill summarizes the actual execution of a market order. Quantity and Price
// may differ from the request; callers must persist these values.
type Fill struct {
	OrderID  int64
	Quantity float64
	Price    float64
}

// PlaceMarketOrder issues a market order and returns the actual filled
// quantity and volume-weighted average price.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol, side string, quantity float64) (*Fill, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	params.Set("quantity", strconv.FormatFloat(quantity, 'f', -1, 64))
	params.Set("newClientOrderId", "mgb-"+uuid.NewString())
	params.Set("newOrderRespType", "FULL")

	logger.Infof("[Live] Placing market %s for %s: quantity=%v", side, symbol, quantity)
	body, err := c.doSigned(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return nil, err
	}

	var resp OrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	if resp.Status != "FILLED" && resp.Status != "PARTIALLY_FILLED" {
		return nil, fmt.Errorf("market order for %s not filled, status: %s", symbol, resp.Status)
	}

	executed, err := strconv.ParseFloat(resp.ExecutedQty, 64)
	if err != nil || executed <= 0 {
		return nil, fmt.Errorf("market order for %s reported invalid executed quantity %q", symbol, resp.ExecutedQty)
	}
	quoteQty, err := strconv.ParseFloat(resp.CummulativeQuoteQty, 64)
	if err != nil {
		return nil, fmt.Errorf("market order for %s reported invalid quote quantity %q", symbol, resp.CummulativeQuoteQty)
	}

	fill := &Fill{OrderID: resp.OrderID, Quantity: executed, Price: quoteQty / executed}
	logger.Infof("[Live] Market %s for %s filled: quantity=%v avgPrice=%v", side, symbol, fill.Quantity, fill.Price)
	return fill, nil
}
