package eod

import (
	"time"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/store"
)

var defaultSummarizer interfaces.EodSummarizer = NewSummarizer(DefaultCutoff)

func SetDefaultSummarizer(summarizer interfaces.EodSummarizer) {
	defaultSummarizer = summarizer
}

func NewSummarizer(cutoff store.Clock) interfaces.EodSummarizer {
	return &eodSummarizer{cutoff: cutoff, now: exchangeNow}
}

func SummarizeDay(t time.Time) (string, error) {
	return defaultSummarizer.SummarizeDay(t)
}

func SummarizeToday() (string, error) {
	return defaultSummarizer.SummarizeToday()
}

func ShouldRunNow() (bool, string) {
	return defaultSummarizer.ShouldRunNow()
}
