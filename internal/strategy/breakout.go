package strategy

import (
	"fmt"
	"math"
	"time"

	"breakout-trading-bot/internal/store"
)

const minBreakoutStrength = 0.01

// Session is the daily trading schedule in exchange-local time.
type Session struct {
	Location   *time.Location
	EntryStart store.Clock
	EntryEnd   store.Clock
	ForceExit  store.Clock
}

// DefaultSession is 09:05-15:00 entries with a 15:20 forced close in Asia/Seoul.
func DefaultSession() Session {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.FixedZone("KST", 9*3600)
	}
	return Session{
		Location:   loc,
		EntryStart: store.MustClock("09:05"),
		EntryEnd:   store.MustClock("15:00"),
		ForceExit:  store.MustClock("15:20"),
	}
}

// SessionFromConfig builds the session from validated configuration.
func SessionFromConfig(cfg *store.Config) Session {
	return Session{
		Location:   cfg.Location(),
		EntryStart: store.MustClock(cfg.Session.EntryStart),
		EntryEnd:   store.MustClock(cfg.Session.EntryEnd),
		ForceExit:  store.MustClock(cfg.Session.ForceExit),
	}
}

func (s Session) minuteOfDay(now time.Time) int {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return local.Hour()*60 + local.Minute()
}

// InEntryWindow reports whether now falls within [EntryStart, EntryEnd].
func (s Session) InEntryWindow(now time.Time) bool {
	m := s.minuteOfDay(now)
	return m >= s.EntryStart.Minutes() && m <= s.EntryEnd.Minutes()
}

// PastForceExit reports whether now is at or after the forced close.
func (s Session) PastForceExit(now time.Time) bool {
	return s.minuteOfDay(now) >= s.ForceExit.Minutes()
}

// Breakout is the volatility breakout strategy. It holds only the session
// schedule and is safe for concurrent use.
type Breakout struct {
	session Session
}

func New(session Session) *Breakout {
	return &Breakout{session: session}
}

func (b *Breakout) Session() Session {
	return b.session
}

// TargetPrice returns open + (prevHigh - prevLow) * k. k is not clamped.
func (b *Breakout) TargetPrice(open, prevHigh, prevLow, k float64) float64 {
	return open + (prevHigh-prevLow)*k
}

// ShouldEnter reports a breakout entry when the price reaches the target
// inside the entry window. skipTimeCheck ignores the window.
func (b *Breakout) ShouldEnter(current, target float64, now time.Time, skipTimeCheck bool) (bool, string) {
	if !skipTimeCheck && !b.session.InEntryWindow(now) {
		return false, "outside entry window"
	}
	if current >= target {
		return true, fmt.Sprintf("target breakout (current %.0f, target %.0f, margin %.0f)", current, target, current-target)
	}
	return false, ""
}

// ShouldExit evaluates the exit rules in priority order:
// stop-loss, take-profit, then the forced session close.
func (b *Breakout) ShouldExit(entry, current, stopLossPct, takeProfitPct float64, now time.Time) (bool, string) {
	if entry <= 0 {
		return false, ""
	}
	ret := (current - entry) / entry

	switch {
	case ret <= stopLossPct:
		return true, fmt.Sprintf("stop-loss (entry %.0f, current %.0f, return %.2f%%)", entry, current, ret*100)
	case ret >= takeProfitPct:
		return true, fmt.Sprintf("take-profit (entry %.0f, current %.0f, return %.2f%%)", entry, current, ret*100)
	case b.session.PastForceExit(now):
		return true, fmt.Sprintf("session close (entry %.0f, current %.0f, return %.2f%%)", entry, current, ret*100)
	}
	return false, ""
}

// ValidateBreakout is a stricter secondary filter: the target must be
// breached on at least minVolume shares and by at least 1%.
func (b *Breakout) ValidateBreakout(current, target float64, volume, minVolume int64) (bool, string) {
	if current < target {
		return false, "target not reached"
	}
	if volume < minVolume {
		return false, fmt.Sprintf("insufficient volume (current %d, minimum %d)", volume, minVolume)
	}
	if target <= 0 {
		return false, "invalid target price"
	}
	strength := (current - target) / target
	if strength < minBreakoutStrength {
		return false, fmt.Sprintf("weak breakout (%.2f%%)", strength*100)
	}
	return true, "valid breakout"
}

// PositionSize returns floor(capital * ratio / price). Never rounds up.
func PositionSize(capital, price, ratio float64) int {
	if price <= 0 || capital <= 0 || ratio <= 0 {
		return 0
	}
	return int(math.Floor(capital * ratio / price))
}

// TrailingStopHit reports an exit once price has fallen ratio below the
// high watermark of the open position.
func TrailingStopHit(high, current, ratio float64) (bool, string) {
	if high <= 0 || ratio <= 0 {
		return false, ""
	}
	stop := high * (1 - ratio)
	if current <= stop {
		return true, fmt.Sprintf("trailing stop (high %.0f, stop %.0f, current %.0f)", high, stop, current)
	}
	return false, ""
}
