package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/momentum-growth-bot/internal/alert"
	"github.com/your-org/momentum-growth-bot/internal/position"
	"github.com/your-org/momentum-growth-bot/internal/store"
)

func newTrailingFixture(t *testing.T, cooldown time.Duration) (*TrailingController, *position.Registry, *store.InMemStore) {
	t.Helper()
	reg := position.NewRegistry(0)
	require.NoError(t, reg.Add(testPosition(1, "BTCUSDT")))

	gw := store.NewInMemStore()
	alerts := alert.NewDispatcher(alert.NewNoOpNotifier(), 8)
	t.Cleanup(alerts.Close)

	return NewTrailingController(reg, gw, alerts, 0.01, 0.008, cooldown), reg, gw
}

func TestTrailingController_ActivationAndRatchet(t *testing.T) {
	trailing, reg, _ := newTrailingFixture(t, time.Hour)
	snap, _ := reg.Get(1)

	// Below the +1% activation level nothing changes.
	snap = trailing.Observe(snap, 100.9)
	assert.False(t, snap.TrailingActive)

	// At 101 trailing activates: stop = 101 * (1 - 0.008).
	snap = trailing.Observe(snap, 101)
	require.True(t, snap.TrailingActive)
	assert.Equal(t, 101.0, snap.TrailingPeak)
	assert.InDelta(t, 100.192, snap.TrailingStop, 1e-9)

	// New peak at 110 ratchets the stop to 109.12.
	snap = trailing.Observe(snap, 110)
	assert.Equal(t, 110.0, snap.TrailingPeak)
	assert.InDelta(t, 109.12, snap.TrailingStop, 1e-9)

	// Retrace: peak and stop never move down.
	snap = trailing.Observe(snap, 105)
	assert.Equal(t, 110.0, snap.TrailingPeak)
	assert.InDelta(t, 109.12, snap.TrailingStop, 1e-9)

	// The registry copy carries the same state.
	stored, _ := reg.Get(1)
	assert.Equal(t, snap.TrailingPeak, stored.TrailingPeak)
	assert.Equal(t, snap.TrailingStop, stored.TrailingStop)
}

func TestTrailingController_EffectiveStopUsesRatchet(t *testing.T) {
	trailing, reg, _ := newTrailingFixture(t, time.Hour)
	snap, _ := reg.Get(1)

	snap = trailing.Observe(snap, 110)
	assert.InDelta(t, 109.12, snap.EffectiveStop(), 1e-9,
		"the ratcheted stop supersedes the original 97 stop")
}

func TestTrailingController_PersistCooldown(t *testing.T) {
	trailing, reg, gw := newTrailingFixture(t, time.Hour)
	snap, _ := reg.Get(1)

	// Activation always persists.
	snap = trailing.Observe(snap, 101)
	require.Eventually(t, func() bool { return gw.TrailingWrites() == 1 },
		time.Second, 10*time.Millisecond)

	// Ratchets inside the cooldown window stay in memory only.
	snap = trailing.Observe(snap, 102)
	snap = trailing.Observe(snap, 103)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, gw.TrailingWrites())

	stored, _ := reg.Get(1)
	assert.InDelta(t, 103*(1-0.008), stored.TrailingStop, 1e-9,
		"the in-memory stop stays current even when the write is skipped")
}

func TestTrailingController_PersistsAfterCooldown(t *testing.T) {
	trailing, reg, gw := newTrailingFixture(t, 0)
	snap, _ := reg.Get(1)

	snap = trailing.Observe(snap, 101)
	snap = trailing.Observe(snap, 102)
	trailing.Observe(snap, 103)

	require.Eventually(t, func() bool { return gw.TrailingWrites() == 3 },
		time.Second, 10*time.Millisecond)
}

func TestTrailingController_UntrackedPositionIsIgnored(t *testing.T) {
	trailing, reg, gw := newTrailingFixture(t, time.Hour)
	snap, _ := reg.Get(1)
	reg.Remove(1)

	out := trailing.Observe(snap, 110)
	assert.False(t, out.TrailingActive, "a position that left the registry must not be revived")
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, gw.TrailingWrites())
}
