package position

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPosition_Validate(t *testing.T) {
	valid := Position{Symbol: "BTCUSDT", EntryPrice: 100, StopLoss: 97, TargetPrice: 104}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name string
		p    Position
	}{
		{"empty symbol", Position{EntryPrice: 100, StopLoss: 97, TargetPrice: 104}},
		{"zero entry", Position{Symbol: "BTCUSDT", StopLoss: 97, TargetPrice: 104}},
		{"stop above entry", Position{Symbol: "BTCUSDT", EntryPrice: 100, StopLoss: 101, TargetPrice: 104}},
		{"target below entry", Position{Symbol: "BTCUSDT", EntryPrice: 100, StopLoss: 97, TargetPrice: 99}},
		{"stop equals entry", Position{Symbol: "BTCUSDT", EntryPrice: 100, StopLoss: 100, TargetPrice: 104}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.p.Validate())
		})
	}
}

func TestPosition_EffectiveStop(t *testing.T) {
	p := Position{Symbol: "BTCUSDT", EntryPrice: 100, StopLoss: 97, TargetPrice: 104}
	assert.Equal(t, 97.0, p.EffectiveStop(), "inactive trailing falls back to the original stop")

	p.TrailingActive = true
	p.TrailingStop = 101.5
	assert.Equal(t, 101.5, p.EffectiveStop(), "ratcheted trailing stop takes precedence")

	p.TrailingStop = 90.0
	assert.Equal(t, 97.0, p.EffectiveStop(), "trailing stop never weakens the original stop")
}

func TestPosition_CloneIsDeep(t *testing.T) {
	p := Position{
		Symbol:           "BTCUSDT",
		EntryPrice:       100,
		StopLoss:         97,
		TargetPrice:      104,
		StrategyMetadata: json.RawMessage(`{"source":"breakout"}`),
	}
	cp := p.Clone()
	cp.StrategyMetadata[2] = 'X'
	assert.Equal(t, json.RawMessage(`{"source":"breakout"}`), p.StrategyMetadata)
}
