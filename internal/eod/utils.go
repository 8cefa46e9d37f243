package eod

import (
	"path/filepath"
	"time"

	"breakout-trading-bot/internal/store"
	"breakout-trading-bot/internal/tradelog"
)

func exchangeNow() time.Time {
	return time.Now().In(tradelog.Location())
}

func eodCSVPath(t time.Time) string {
	dateStr := t.In(tradelog.Location()).Format("2006-01-02")
	return filepath.Join(tradelog.LogDir(), "eod", dateStr+".csv")
}

func marketCloseTime(t time.Time, cutoff store.Clock) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), cutoff.Hour, cutoff.Minute, 0, 0, t.Location())
}
