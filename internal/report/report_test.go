package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/momentum-growth-bot/internal/position"
)

func closedTrade(reason position.CloseReason, profitPct float64, closedAt time.Time) ClosedTrade {
	return ClosedTrade{
		Symbol:       "BTCUSDT",
		Reason:       reason,
		EntryPrice:   100,
		ClosingPrice: 100 * (1 + profitPct/100),
		ProfitPct:    profitPct,
		OpenedAt:     closedAt.Add(-10 * time.Minute),
		ClosedAt:     closedAt,
	}
}

func TestAnalyze_Empty(t *testing.T) {
	_, err := Analyze(nil)
	assert.ErrorIs(t, err, ErrNoClosedTrades)
}

func TestAnalyze(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	trades := []ClosedTrade{
		closedTrade(position.ReasonTargetHit, 4.0, base),
		closedTrade(position.ReasonTargetHit, 4.0, base.Add(time.Hour)),
		closedTrade(position.ReasonStopLossHit, -3.0, base.Add(2*time.Hour)),
		closedTrade(position.ReasonStopLossHit, 0.192, base.Add(3*time.Hour)),
		closedTrade(position.ReasonManualClose, -1.0, base.Add(4*time.Hour)),
	}
	trades[3].ProfitableStopLoss = true

	r, err := Analyze(trades)
	require.NoError(t, err)

	assert.Equal(t, 5, r.TotalClosed)
	assert.Equal(t, 2, r.TargetHits)
	assert.Equal(t, 2, r.StopOuts)
	assert.Equal(t, 1, r.ProfitableStopOuts)
	assert.Equal(t, 1, r.ManualCloses)

	assert.Equal(t, 3, r.WinningTrades)
	assert.Equal(t, 2, r.LosingTrades)
	assert.InDelta(t, 0.6, r.WinRate, 1e-9)
	assert.InDelta(t, 4.192, r.TotalProfitPct, 1e-9)
	assert.InDelta(t, 8.192/4.0, r.ProfitFactor, 1e-9)

	assert.Equal(t, 2, r.MaxConsecutiveWins)
	assert.Equal(t, 1, r.MaxConsecutiveLosses)
	assert.InDelta(t, 600.0, r.AverageHoldingSeconds, 1e-9)
	assert.Equal(t, base, r.StartDate)
	assert.Equal(t, base.Add(4*time.Hour), r.EndDate)
}

func TestAnalyze_LiveQuotePnL(t *testing.T) {
	base := time.Now().UTC()
	win := closedTrade(position.ReasonTargetHit, 4.0, base)
	win.IsLive = true
	win.Quantity = 0.5 // 0.5 * (104 - 100) = 2

	loss := closedTrade(position.ReasonStopLossHit, -3.0, base.Add(time.Minute))
	loss.IsLive = true
	loss.Quantity = 1.0 // 1.0 * (97 - 100) = -3

	paper := closedTrade(position.ReasonTargetHit, 4.0, base.Add(2*time.Minute))

	r, err := Analyze([]ClosedTrade{win, loss, paper})
	require.NoError(t, err)
	assert.Equal(t, "-1", r.LiveQuotePnL.String(), "paper trades never touch the quote PnL")
}
