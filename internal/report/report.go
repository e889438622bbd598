// Package report analyzes closed positions into a performance summary.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/your-org/momentum-growth-bot/internal/position"
)

// ErrNoClosedTrades indicates there is nothing to analyze yet.
var ErrNoClosedTrades = errors.New("no closed trades to analyze")

// ClosedTrade is one terminal position row.
type ClosedTrade struct {
	ID                 int64
	Symbol             string
	Reason             position.CloseReason
	EntryPrice         float64
	ClosingPrice       float64
	Quantity           float64
	ProfitPct          float64
	ProfitableStopLoss bool
	IsLive             bool
	OpenedAt           time.Time
	ClosedAt           time.Time
}

// Report holds the aggregate performance of a set of closed trades.
type Report struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	TotalClosed   int     `json:"total_closed"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`

	TargetHits         int `json:"target_hits"`
	StopOuts           int `json:"stop_outs"`
	ProfitableStopOuts int `json:"profitable_stop_outs"`
	ManualCloses       int `json:"manual_closes"`

	TotalProfitPct   float64         `json:"total_profit_pct"`
	AverageProfitPct float64         `json:"average_profit_pct"`
	AverageWinPct    float64         `json:"average_win_pct"`
	AverageLossPct   float64         `json:"average_loss_pct"`
	ProfitFactor     float64         `json:"profit_factor"`
	LiveQuotePnL     decimal.Decimal `json:"live_quote_pnl"`

	MaxConsecutiveWins   int `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int `json:"max_consecutive_losses"`

	AverageHoldingSeconds float64 `json:"average_holding_seconds"`
}

// Service fetches closed positions for analysis.
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a report service on an existing pool.
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// FetchClosedTrades returns closed positions since the given time, oldest
// first.
func (s *Service) FetchClosedTrades(ctx context.Context, since time.Time) ([]ClosedTrade, error) {
	query := `SELECT id, symbol, closing_reason, entry_price, closing_price, quantity,
	                 profit_pct, profitable_stop_loss, is_live, opened_at, closed_at
	          FROM positions
	          WHERE status = 'closed' AND closed_at >= $1
	          ORDER BY closed_at ASC`
	rows, err := s.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed positions: %w", err)
	}
	defer rows.Close()

	var out []ClosedTrade
	for rows.Next() {
		var t ClosedTrade
		var reason string
		if err := rows.Scan(&t.ID, &t.Symbol, &reason, &t.EntryPrice, &t.ClosingPrice,
			&t.Quantity, &t.ProfitPct, &t.ProfitableStopLoss, &t.IsLive,
			&t.OpenedAt, &t.ClosedAt); err != nil {
			return nil, fmt.Errorf("failed to scan closed position: %w", err)
		}
		t.Reason = position.CloseReason(reason)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Analyze aggregates closed trades into a Report.
func Analyze(trades []ClosedTrade) (Report, error) {
	if len(trades) == 0 {
		return Report{}, ErrNoClosedTrades
	}

	r := Report{
		StartDate:    trades[0].ClosedAt,
		EndDate:      trades[len(trades)-1].ClosedAt,
		TotalClosed:  len(trades),
		LiveQuotePnL: decimal.Zero,
	}

	var winSum, lossSum float64
	var curWins, curLosses int
	var holdingSum float64

	for _, t := range trades {
		switch t.Reason {
		case position.ReasonTargetHit:
			r.TargetHits++
		case position.ReasonStopLossHit:
			r.StopOuts++
			if t.ProfitableStopLoss {
				r.ProfitableStopOuts++
			}
		case position.ReasonManualClose:
			r.ManualCloses++
		}

		r.TotalProfitPct += t.ProfitPct
		if t.ProfitPct >= 0 {
			r.WinningTrades++
			winSum += t.ProfitPct
			curWins++
			curLosses = 0
		} else {
			r.LosingTrades++
			lossSum += -t.ProfitPct
			curLosses++
			curWins = 0
		}
		if curWins > r.MaxConsecutiveWins {
			r.MaxConsecutiveWins = curWins
		}
		if curLosses > r.MaxConsecutiveLosses {
			r.MaxConsecutiveLosses = curLosses
		}

		if t.IsLive {
			pnl := decimal.NewFromFloat(t.Quantity).
				Mul(decimal.NewFromFloat(t.ClosingPrice).Sub(decimal.NewFromFloat(t.EntryPrice)))
			r.LiveQuotePnL = r.LiveQuotePnL.Add(pnl)
		}

		holdingSum += t.ClosedAt.Sub(t.OpenedAt).Seconds()
	}

	r.WinRate = float64(r.WinningTrades) / float64(r.TotalClosed)
	r.AverageProfitPct = r.TotalProfitPct / float64(r.TotalClosed)
	if r.WinningTrades > 0 {
		r.AverageWinPct = winSum / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AverageLossPct = lossSum / float64(r.LosingTrades)
	}
	if lossSum > 0 {
		r.ProfitFactor = winSum / lossSum
	}
	r.AverageHoldingSeconds = holdingSum / float64(r.TotalClosed)
	return r, nil
}
