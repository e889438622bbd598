package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/momentum-growth-bot/internal/position"
)

func TestNoOpNotifier(t *testing.T) {
	assert.NoError(t, NewNoOpNotifier().Send(context.Background(), "anything"))
}

func TestTelegramNotifier_Send(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	old := telegramAPIBase
	SetTelegramAPIBase(srv.URL)
	defer SetTelegramAPIBase(old)

	n := NewTelegramNotifier("bot-token", "12345")
	require.NoError(t, n.Send(context.Background(), "position closed"))

	assert.Equal(t, "/botbot-token/sendMessage", gotPath)
	assert.Equal(t, "12345", gotBody["chat_id"])
	assert.Equal(t, "position closed", gotBody["text"])
}

func TestTelegramNotifier_SendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	old := telegramAPIBase
	SetTelegramAPIBase(srv.URL)
	defer SetTelegramAPIBase(old)

	err := NewTelegramNotifier("t", "c").Send(context.Background(), "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

type captureNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (c *captureNotifier) Send(ctx context.Context, message string) error {
	c.mu.Lock()
	c.msgs = append(c.msgs, message)
	c.mu.Unlock()
	return nil
}

func (c *captureNotifier) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

func TestDispatcher_DeliversAsync(t *testing.T) {
	capture := &captureNotifier{}
	d := NewDispatcher(capture, 8)

	p := &position.Position{Symbol: "BTCUSDT", EntryPrice: 100, TargetPrice: 104, StopLoss: 97}
	d.PositionOpened(p)
	d.PositionClosed(p, position.ReasonTargetHit, 104, 4.0)
	d.TrailingActivated(p, 101, 100.192)
	d.Critical("sell failed for %s", "BTCUSDT")
	d.Close()

	msgs := capture.all()
	require.Len(t, msgs, 4)
	assert.Contains(t, msgs[0], "Opened BTCUSDT")
	assert.Contains(t, msgs[1], "target_hit")
	assert.Contains(t, msgs[1], "+4.00%")
	assert.Contains(t, msgs[2], "Trailing")
	assert.Contains(t, msgs[3], "CRITICAL")
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	slow := notifierFunc(func(ctx context.Context, msg string) error {
		<-block
		return nil
	})
	d := NewDispatcher(slow, 1)

	// One message in flight, one buffered; the rest are dropped without
	// blocking the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Notify("msg")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full buffer")
	}
	close(block)
	d.Close()
}

type notifierFunc func(ctx context.Context, message string) error

func (f notifierFunc) Send(ctx context.Context, message string) error { return f(ctx, message) }
