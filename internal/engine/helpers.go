package engine

import (
	"time"

	"breakout-trading-bot/internal/types"
)

// selectYesterday picks the prior session from a most-recent-first list.
// With a single bar it is reused and degraded is true.
func selectYesterday(bars []types.DailyBar) (bar types.DailyBar, degraded bool, err error) {
	switch {
	case len(bars) >= 2:
		return bars[1], false, nil
	case len(bars) == 1:
		return bars[0], true, nil
	}
	return types.DailyBar{}, false, types.ErrNoDailyBars
}

func barOHLCV(b types.DailyBar) types.OHLCV {
	return types.OHLCV{Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
}

func tradingDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}

// tradingMonth is the YYYY-MM prefix of a trading day.
func tradingMonth(day string) string {
	if len(day) < 7 {
		return day
	}
	return day[:7]
}
