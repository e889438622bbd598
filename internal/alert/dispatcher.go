package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/your-org/momentum-growth-bot/internal/position"
	"github.com/your-org/momentum-growth-bot/pkg/logger"
)

const sendTimeout = 10 * time.Second

// Dispatcher fans messages out to a Notifier from a background goroutine so
// the trading path never blocks on notification delivery. When the buffer is
// full, new messages are dropped with a warning.
type Dispatcher struct {
	notifier Notifier
	queue    chan string
	wg       sync.WaitGroup
}

// NewDispatcher starts a dispatcher with the given buffer size.
func NewDispatcher(notifier Notifier, bufferSize int) *Dispatcher {
	d := &Dispatcher{
		notifier: notifier,
		queue:    make(chan string, bufferSize),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := d.notifier.Send(ctx, msg); err != nil {
			logger.Warnf("[Alert] Failed to deliver notification: %v", err)
		}
		cancel()
	}
}

// Notify enqueues a message without blocking.
func (d *Dispatcher) Notify(message string) {
	select {
	case d.queue <- message:
	default:
		logger.Warnf("[Alert] Notification buffer full, dropping: %s", message)
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	close(d.queue)
	d.wg.Wait()
}

// PositionOpened formats an open notification.
func (d *Dispatcher) PositionOpened(p *position.Position) {
	mode := "PAPER"
	if p.IsLive {
		mode = "LIVE"
	}
	d.Notify(fmt.Sprintf("🟢 [%s] Opened %s @ %v\nTarget: %v | Stop: %v | Confidence: %.2f",
		mode, p.Symbol, p.EntryPrice, p.TargetPrice, p.StopLoss, p.Confidence))
}

// PositionClosed formats a closure notification.
func (d *Dispatcher) PositionClosed(p *position.Position, reason position.CloseReason, closingPrice, profitPct float64) {
	icon := "🔴"
	if profitPct >= 0 {
		icon = "✅"
	}
	d.Notify(fmt.Sprintf("%s Closed %s @ %v (%s)\nEntry: %v | P/L: %+.2f%%",
		icon, p.Symbol, closingPrice, reason, p.EntryPrice, profitPct))
}

// TrailingActivated formats a trailing-stop activation notification.
func (d *Dispatcher) TrailingActivated(p *position.Position, peak, stop float64) {
	d.Notify(fmt.Sprintf("📈 Trailing stop active for %s\nPeak: %v | Stop: %v", p.Symbol, peak, stop))
}

// Critical formats an operator-attention failure notification.
func (d *Dispatcher) Critical(format string, args ...interface{}) {
	d.Notify("🚨 CRITICAL: " + fmt.Sprintf(format, args...))
}
