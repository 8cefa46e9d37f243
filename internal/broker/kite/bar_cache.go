package kite

import (
	"sync"
	"time"

	"breakout-trading-bot/internal/types"
)

// barCache keeps the most recent daily bars per symbol for the calendar day
// they were fetched on, so repeated cycles do not hit the historical API.
type barCache struct {
	mu      sync.RWMutex
	entries map[string]barEntry
}

type barEntry struct {
	day  string
	bars []types.DailyBar
}

func newBarCache() *barCache {
	return &barCache{entries: make(map[string]barEntry)}
}

func (bc *barCache) put(symbol string, at time.Time, bars []types.DailyBar) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	bc.entries[symbol] = barEntry{day: at.Format(time.DateOnly), bars: append([]types.DailyBar(nil), bars...)}
}

// get returns the first n cached bars when the cache is from the same day
// and holds at least n of them.
func (bc *barCache) get(symbol string, at time.Time, n int) ([]types.DailyBar, bool) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	e, ok := bc.entries[symbol]
	if !ok || e.day != at.Format(time.DateOnly) || len(e.bars) < n {
		return nil, false
	}
	return append([]types.DailyBar(nil), e.bars[:n]...), true
}
