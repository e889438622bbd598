// Package handler exposes the bot's HTTP surface: health, status, and the
// position intake API used by the signal source.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/your-org/momentum-growth-bot/internal/closer"
	"github.com/your-org/momentum-growth-bot/internal/config"
	"github.com/your-org/momentum-growth-bot/internal/engine"
	"github.com/your-org/momentum-growth-bot/internal/position"
	"github.com/your-org/momentum-growth-bot/internal/pricecache"
	"github.com/your-org/momentum-growth-bot/internal/store"
	"github.com/your-org/momentum-growth-bot/pkg/logger"
)

// closeRequester is the slice of the closure coordinator the handler needs.
type closeRequester interface {
	RequestClose(snapshot position.Position, reason position.CloseReason, boundaryPrice float64) error
}

// openNotifier announces newly opened positions. Satisfied by the alert
// dispatcher; nil disables announcements.
type openNotifier interface {
	PositionOpened(p *position.Position)
}

// PositionHandler serves the position lifecycle API.
type PositionHandler struct {
	registry *position.Registry
	gateway  store.Gateway
	exec     engine.ExecutionEngine
	closer   closeRequester
	prices   *pricecache.Cache
	alerts   openNotifier

	liveToggle    *config.Toggle
	maxOpen       int
	reinforceGain float64

	openMu sync.Mutex
}

// NewPositionHandler creates the handler. exec may be nil when no execution
// engine is configured; live opens are then rejected.
func NewPositionHandler(registry *position.Registry, gateway store.Gateway, exec engine.ExecutionEngine, c closeRequester, prices *pricecache.Cache, alerts openNotifier, liveToggle *config.Toggle, maxOpen int, reinforceGain float64) *PositionHandler {
	return &PositionHandler{
		registry:      registry,
		gateway:       gateway,
		exec:          exec,
		closer:        c,
		prices:        prices,
		alerts:        alerts,
		liveToggle:    liveToggle,
		maxOpen:       maxOpen,
		reinforceGain: reinforceGain,
	}
}

// RegisterRoutes registers the position API on the chi router.
func (h *PositionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.GetStatus)
	r.Get("/positions", h.ListPositions)
	r.Post("/positions", h.OpenPosition)
	r.Post("/positions/{id}/close", h.ClosePosition)
	r.Post("/positions/{id}/reinforce", h.ReinforcePosition)
	r.Post("/live", h.SetLiveTrading)
}

type positionView struct {
	ID             int64           `json:"id"`
	Symbol         string          `json:"symbol"`
	EntryPrice     float64         `json:"entry_price"`
	Quantity       float64         `json:"quantity,omitempty"`
	IsLive         bool            `json:"is_live"`
	TargetPrice    float64         `json:"target_price"`
	StopLoss       float64         `json:"stop_loss"`
	TrailingActive bool            `json:"trailing_active"`
	TrailingPeak   float64         `json:"trailing_peak,omitempty"`
	TrailingStop   float64         `json:"trailing_stop,omitempty"`
	Status         position.Status `json:"status"`
	Confidence     float64         `json:"confidence"`
	NeedsReconcile bool            `json:"needs_reconciliation,omitempty"`
	CurrentPrice   float64         `json:"current_price,omitempty"`
	OpenedAt       time.Time       `json:"opened_at"`
}

func toView(p position.Position) positionView {
	return positionView{
		ID:             p.ID,
		Symbol:         p.Symbol,
		EntryPrice:     p.EntryPrice,
		Quantity:       p.Quantity,
		IsLive:         p.IsLive,
		TargetPrice:    p.TargetPrice,
		StopLoss:       p.StopLoss,
		TrailingActive: p.TrailingActive,
		TrailingPeak:   p.TrailingPeak,
		TrailingStop:   p.TrailingStop,
		Status:         p.Status,
		Confidence:     p.Confidence,
		NeedsReconcile: p.NeedsReconciliation,
		OpenedAt:       p.OpenedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("[HTTP] Failed to encode response: %v", err)
	}
}

// GetStatus reports mode and counters for the operator.
func (h *PositionHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"live_trading":   h.liveToggle.Enabled(),
		"open_positions": h.registry.Len(),
		"prices_tracked": h.prices.Len(),
	})
}

// ListPositions returns every tracked position with its latest cached price.
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	open := h.registry.ListOpen()
	symbols := make([]string, 0, len(open))
	for _, p := range open {
		symbols = append(symbols, p.Symbol)
	}
	latest := h.prices.GetMany(symbols)

	views := make([]positionView, 0, len(open))
	for _, p := range open {
		v := toView(p)
		v.CurrentPrice = latest[p.Symbol]
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

type openRequest struct {
	Symbol           string          `json:"symbol"`
	EntryPrice       float64         `json:"entry_price"`
	TargetPrice      float64         `json:"target_price"`
	StopLoss         float64         `json:"stop_loss"`
	Confidence       float64         `json:"confidence"`
	StrategyMetadata json.RawMessage `json:"strategy_metadata,omitempty"`
}

// OpenPosition accepts a new signal, executes the entry when live trading is
// on, and registers the position for monitoring.
func (h *PositionHandler) OpenPosition(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p := position.Position{
		Symbol:           req.Symbol,
		EntryPrice:       req.EntryPrice,
		TargetPrice:      req.TargetPrice,
		StopLoss:         req.StopLoss,
		Confidence:       req.Confidence,
		StrategyMetadata: req.StrategyMetadata,
		Status:           position.StatusOpen,
		OpenedAt:         time.Now().UTC(),
	}
	if err := p.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Serialized so the cap check and the exchange entry cannot interleave
	// across concurrent signals.
	h.openMu.Lock()
	defer h.openMu.Unlock()

	if h.maxOpen > 0 && h.registry.Len() >= h.maxOpen {
		http.Error(w, fmt.Sprintf("open position limit %d reached", h.maxOpen), http.StatusConflict)
		return
	}

	if h.liveToggle.Enabled() {
		if h.exec == nil {
			http.Error(w, "live trading enabled but no execution engine configured", http.StatusServiceUnavailable)
			return
		}
		fill, err := h.exec.Buy(r.Context(), p.Symbol, p.EntryPrice, p.StopLoss)
		if err != nil {
			logger.Errorf("[HTTP] Entry order for %s failed: %v", p.Symbol, err)
			http.Error(w, fmt.Sprintf("entry order failed: %v", err), http.StatusBadGateway)
			return
		}
		p.IsLive = h.exec.Live()
		p.Quantity = fill.Quantity
		p.EntryPrice = fill.Price
	}

	id, err := h.gateway.Insert(r.Context(), &p)
	if err != nil {
		logger.Errorf("[HTTP] Failed to persist position for %s: %v", p.Symbol, err)
		http.Error(w, "failed to persist position", http.StatusInternalServerError)
		return
	}
	p.ID = id

	if err := h.registry.Add(p); err != nil {
		logger.Errorf("[HTTP] Persisted position %d could not be registered: %v", id, err)
		http.Error(w, "failed to register position", http.StatusInternalServerError)
		return
	}

	logger.Infof("[HTTP] Opened position %d: %s entry=%v target=%v stop=%v live=%v",
		id, p.Symbol, p.EntryPrice, p.TargetPrice, p.StopLoss, p.IsLive)
	if h.alerts != nil {
		h.alerts.PositionOpened(&p)
	}
	writeJSON(w, http.StatusCreated, toView(p))
}

// ClosePosition requests a manual close at the latest cached price.
func (h *PositionHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid position id", http.StatusBadRequest)
		return
	}

	snap, ok := h.registry.Get(id)
	if !ok {
		http.Error(w, "position not found", http.StatusNotFound)
		return
	}
	price, ok := h.prices.Get(snap.Symbol)
	if !ok {
		http.Error(w, fmt.Sprintf("no price available for %s yet", snap.Symbol), http.StatusConflict)
		return
	}

	if err := h.closer.RequestClose(snap, position.ReasonManualClose, price); err != nil {
		if errors.Is(err, closer.ErrAlreadyClosing) {
			http.Error(w, "closure already in progress", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type reinforceRequest struct {
	TargetPrice float64 `json:"target_price"`
	StopLoss    float64 `json:"stop_loss"`
	Confidence  float64 `json:"confidence"`
}

// ReinforcePosition revises target/stop for a stronger signal on the same
// symbol, gated on the confidence margin.
func (h *PositionHandler) ReinforcePosition(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid position id", http.StatusBadRequest)
		return
	}
	var req reinforceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.registry.Reinforce(id, req.TargetPrice, req.StopLoss, req.Confidence, h.reinforceGain); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	snap, _ := h.registry.Get(id)
	if err := h.gateway.UpdateLevels(r.Context(), id, snap.TargetPrice, snap.StopLoss, snap.Confidence); err != nil {
		logger.Errorf("[HTTP] Failed to persist reinforced levels for position %d: %v", id, err)
	}
	writeJSON(w, http.StatusOK, toView(snap))
}

type liveRequest struct {
	Enabled bool `json:"enabled"`
}

// SetLiveTrading flips the live-trading toggle at runtime.
func (h *PositionHandler) SetLiveTrading(w http.ResponseWriter, r *http.Request) {
	var req liveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Enabled && h.exec == nil {
		http.Error(w, "cannot enable trading without an execution engine", http.StatusConflict)
		return
	}
	h.liveToggle.Set(req.Enabled)
	if req.Enabled && !h.exec.Live() {
		logger.Warn("[HTTP] Trading enabled with simulated execution, fills are paper only")
	} else {
		logger.Warnf("[HTTP] Live trading set to %v", req.Enabled)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"live_trading": req.Enabled})
}
