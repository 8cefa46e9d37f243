package kite

import (
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"breakout-trading-bot/internal/ticksize"
	"breakout-trading-bot/internal/types"
)

const staticBase = 30_000.0

// staticFeed generates synthetic sessions for offline runs. Each (symbol,
// day) bar is derived from a fixed seed so repeated calls agree; only the
// intraday price moves between quotes.
type staticFeed struct {
	mu    sync.Mutex
	rng   *rand.Rand
	ticks ticksize.Table
}

func newStaticFeed(seed int64, ticks ticksize.Table) *staticFeed {
	return &staticFeed{rng: rand.New(rand.NewSource(seed)), ticks: ticks}
}

func sessionSeed(symbol string, day time.Time) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	_, _ = h.Write([]byte(day.Format(time.DateOnly)))
	return int64(h.Sum64())
}

func (f *staticFeed) session(symbol string, day time.Time) types.DailyBar {
	r := rand.New(rand.NewSource(sessionSeed(symbol, day)))
	open := staticBase * (1 + (r.Float64()-0.5)*0.02)
	high := open * (1 + r.Float64()*0.02)
	low := open * (1 - r.Float64()*0.02)
	closePx := low + (high-low)*r.Float64()
	y, m, d := day.Date()
	return types.DailyBar{
		Date:   time.Date(y, m, d, 0, 0, 0, 0, day.Location()),
		Open:   f.ticks.Round(open),
		High:   f.ticks.Round(high),
		Low:    f.ticks.Round(low),
		Close:  f.ticks.Round(closePx),
		Volume: 500_000 + r.Int63n(1_000_000),
	}
}

// dailyBars walks back over weekdays from now, most recent first.
func (f *staticFeed) dailyBars(symbol string, count int, now time.Time) []types.DailyBar {
	bars := make([]types.DailyBar, 0, count)
	for day := now; len(bars) < count; day = day.AddDate(0, 0, -1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		bars = append(bars, f.session(symbol, day))
	}
	return bars
}

func (f *staticFeed) quote(symbol string, now time.Time) types.Quote {
	today := f.session(symbol, now)

	f.mu.Lock()
	// Widen the range a little so some sessions break out.
	price := today.Low + (today.High-today.Low)*(f.rng.Float64()*1.2)
	f.mu.Unlock()

	price = f.ticks.Round(price)
	q := types.Quote{
		Name:   symbol,
		Price:  price,
		Open:   today.Open,
		High:   max(today.High, price),
		Low:    min(today.Low, price),
		Volume: today.Volume,
		Change: price - today.Open,
	}
	if today.Open != 0 {
		q.ChangePct = (price - today.Open) / today.Open
	}
	return q
}
