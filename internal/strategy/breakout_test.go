package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(t *testing.T, s Session, hhmm string) time.Time {
	t.Helper()
	clock, err := time.Parse("15:04", hhmm)
	require.NoError(t, err)
	return time.Date(2024, 3, 4, clock.Hour(), clock.Minute(), 0, 0, s.Location)
}

func TestTargetPriceScenario(t *testing.T) {
	b := New(DefaultSession())
	assert.InDelta(t, 30_250, b.TargetPrice(29_500, 30_500, 29_000, 0.5), 1e-9)
}

func TestTargetPriceNeverBelowOpen(t *testing.T) {
	b := New(DefaultSession())
	for _, tc := range []struct{ open, high, low, k float64 }{
		{100, 100, 100, 0.5},
		{29_500, 30_500, 29_000, 0},
		{10, 20, 0, 1},
		{5_000, 5_100, 4_900, 0.3},
	} {
		assert.GreaterOrEqual(t, b.TargetPrice(tc.open, tc.high, tc.low, tc.k), tc.open)
	}
}

func TestShouldEnter(t *testing.T) {
	s := DefaultSession()
	b := New(s)

	tests := []struct {
		name    string
		current float64
		now     string
		skip    bool
		want    bool
	}{
		{"breakout inside window", 30_260, "10:00", false, true},
		{"window start inclusive", 30_250, "09:05", false, true},
		{"window end inclusive", 30_300, "15:00", false, true},
		{"below target", 30_249, "10:00", false, false},
		{"before window", 40_000, "09:04", false, false},
		{"after window", 40_000, "15:01", false, false},
		{"after window skip check", 40_000, "15:30", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := b.ShouldEnter(tt.current, 30_250, at(t, s, tt.now), tt.skip)
			assert.Equal(t, tt.want, got)
			if got {
				assert.Contains(t, reason, "breakout")
			}
		})
	}
}

func TestShouldEnterUsesExchangeTimezone(t *testing.T) {
	s := DefaultSession()
	b := New(s)
	// 01:00 UTC is 10:00 in Seoul.
	now := time.Date(2024, 3, 4, 1, 0, 0, 0, time.UTC)
	ok, _ := b.ShouldEnter(30_260, 30_250, now, false)
	assert.True(t, ok)
}

func TestShouldExitStopLossScenario(t *testing.T) {
	s := DefaultSession()
	b := New(s)
	ok, reason := b.ShouldExit(30_000, 29_000, -0.03, 0.05, at(t, s, "10:00"))
	assert.True(t, ok)
	assert.Contains(t, reason, "stop-loss")
}

func TestShouldExitPriority(t *testing.T) {
	s := DefaultSession()
	b := New(s)

	// A degenerate configuration where a -4% return breaches both thresholds.
	ok, reason := b.ShouldExit(100, 96, -0.03, -0.05, at(t, s, "15:30"))
	assert.True(t, ok)
	assert.Contains(t, reason, "stop-loss")

	ok, reason = b.ShouldExit(100, 106, -0.03, 0.05, at(t, s, "15:30"))
	assert.True(t, ok)
	assert.Contains(t, reason, "take-profit")

	ok, reason = b.ShouldExit(100, 101, -0.03, 0.05, at(t, s, "15:20"))
	assert.True(t, ok)
	assert.Contains(t, reason, "session close")

	ok, _ = b.ShouldExit(100, 101, -0.03, 0.05, at(t, s, "15:19"))
	assert.False(t, ok)
}

func TestPositionSize(t *testing.T) {
	assert.Equal(t, 3, PositionSize(1_000_000, 30_260, 0.10))
	assert.Equal(t, 0, PositionSize(1_000, 30_260, 0.10))
	assert.Equal(t, 0, PositionSize(1_000_000, 0, 0.10))

	prev := 0
	for capital := 0.0; capital <= 2_000_000; capital += 50_000 {
		q := PositionSize(capital, 30_000, 0.1)
		assert.GreaterOrEqual(t, q, prev, "monotone in capital")
		prev = q
	}

	prev = PositionSize(1_000_000, 1_000, 0.1)
	for price := 1_000.0; price <= 100_000; price += 1_000 {
		q := PositionSize(1_000_000, price, 0.1)
		assert.LessOrEqual(t, q, prev, "non-increasing in price")
		prev = q
	}
}

func TestValidateBreakout(t *testing.T) {
	b := New(DefaultSession())

	ok, reason := b.ValidateBreakout(30_000, 30_250, 500_000, 100_000)
	assert.False(t, ok)
	assert.Equal(t, "target not reached", reason)

	ok, reason = b.ValidateBreakout(30_600, 30_250, 50_000, 100_000)
	assert.False(t, ok)
	assert.Contains(t, reason, "insufficient volume")

	ok, reason = b.ValidateBreakout(30_260, 30_250, 500_000, 100_000)
	assert.False(t, ok)
	assert.Contains(t, reason, "weak breakout")

	ok, _ = b.ValidateBreakout(30_600, 30_250, 500_000, 100_000)
	assert.True(t, ok)
}

func TestTrailingStopHit(t *testing.T) {
	ok, _ := TrailingStopHit(31_000, 30_500, 0.02)
	assert.False(t, ok)

	ok, reason := TrailingStopHit(31_000, 30_300, 0.02)
	assert.True(t, ok)
	assert.Contains(t, reason, "trailing stop")

	ok, _ = TrailingStopHit(0, 10, 0.02)
	assert.False(t, ok)
}
