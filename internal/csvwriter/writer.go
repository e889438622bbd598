// Package csvwriter writes trade-history exports.
package csvwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/your-org/momentum-growth-bot/internal/report"
)

var header = []string{
	"id", "symbol", "reason", "is_live", "entry_price", "closing_price",
	"quantity", "profit_pct", "profitable_stop_loss", "opened_at", "closed_at",
}

// Writer streams closed trades as CSV rows.
type Writer struct {
	writer *csv.Writer
	logger *zap.Logger
	mu     sync.Mutex
}

// NewWriter creates a Writer on top of w and emits the header row.
func NewWriter(w io.Writer, logger *zap.Logger) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return &Writer{writer: cw, logger: logger}, nil
}

// WriteTrade appends one closed trade.
func (w *Writer) WriteTrade(t report.ClosedTrade) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	record := []string{
		strconv.FormatInt(t.ID, 10),
		t.Symbol,
		string(t.Reason),
		strconv.FormatBool(t.IsLive),
		strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
		strconv.FormatFloat(t.ClosingPrice, 'f', -1, 64),
		strconv.FormatFloat(t.Quantity, 'f', -1, 64),
		strconv.FormatFloat(t.ProfitPct, 'f', 6, 64),
		strconv.FormatBool(t.ProfitableStopLoss),
		t.OpenedAt.UTC().Format("2006-01-02 15:04:05.999999"),
		t.ClosedAt.UTC().Format("2006-01-02 15:04:05.999999"),
	}
	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write trade %d: %w", t.ID, err)
	}
	w.logger.Debug("exported trade", zap.Int64("id", t.ID), zap.String("symbol", t.Symbol))
	return nil
}

// Flush flushes buffered rows and reports any pending write error.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writer.Flush()
	return w.writer.Error()
}
