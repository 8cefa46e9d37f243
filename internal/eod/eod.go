package eod

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/store"
	"breakout-trading-bot/internal/tradelog"
)

// DefaultCutoff is when the day's summary becomes due, exchange time.
var DefaultCutoff = store.MustClock("15:40")

type eodSummarizer struct {
	cutoff store.Clock
	now    func() time.Time
}

var _ interfaces.EodSummarizer = (*eodSummarizer)(nil)

func (s *eodSummarizer) SummarizeDay(t time.Time) (string, error) {
	entries, err := tradelog.ReadDay(t)
	if err != nil {
		return "", fmt.Errorf("read trade log: %w", err)
	}
	if len(entries) == 0 {
		return "", nil
	}

	aggs := aggregate(entries)
	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := eodCSVPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	headers := []string{"symbol", "buy_qty", "buy_avg", "sell_qty", "sell_avg", "realized_pnl",
		"trades", "wins", "losses", "win_rate", "gross_buy_value", "gross_sell_value"}
	if err := w.Write(headers); err != nil {
		return "", err
	}

	total := aggRow{Symbol: "TOTAL"}
	for _, k := range keys {
		r := aggs[k]
		if err := w.Write(record(r)); err != nil {
			return "", err
		}
		total.BuyValue += r.BuyValue
		total.SellValue += r.SellValue
		total.RealizedPnL += r.RealizedPnL
		total.Trades += r.Trades
		total.Wins += r.Wins
		total.Losses += r.Losses
	}
	if err := w.Write([]string{"TOTAL", "", "", "", "",
		fmt.Sprintf("%.2f", total.RealizedPnL),
		strconv.Itoa(total.Trades), strconv.Itoa(total.Wins), strconv.Itoa(total.Losses),
		fmt.Sprintf("%.2f", total.WinRate()*100),
		fmt.Sprintf("%.2f", total.BuyValue), fmt.Sprintf("%.2f", total.SellValue)}); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return outPath, nil
}

func aggregate(entries []tradelog.Entry) map[string]*aggRow {
	aggs := map[string]*aggRow{}
	for _, e := range entries {
		row := aggs[e.Symbol]
		if row == nil {
			row = &aggRow{Symbol: e.Symbol}
			aggs[e.Symbol] = row
		}
		switch e.Side {
		case "BUY":
			row.BuyQty += e.Qty
			row.BuyValue += float64(e.Qty) * e.Price
		case "SELL":
			row.SellQty += e.Qty
			row.SellValue += float64(e.Qty) * e.Price
			row.RealizedPnL += e.PnL
			row.Trades++
			if e.PnL > 0 {
				row.Wins++
			} else {
				row.Losses++
			}
		}
	}
	return aggs
}

func record(r *aggRow) []string {
	var buyAvg, sellAvg float64
	if r.BuyQty > 0 {
		buyAvg = r.BuyValue / float64(r.BuyQty)
	}
	if r.SellQty > 0 {
		sellAvg = r.SellValue / float64(r.SellQty)
	}
	return []string{
		r.Symbol,
		strconv.Itoa(r.BuyQty), fmt.Sprintf("%.4f", buyAvg),
		strconv.Itoa(r.SellQty), fmt.Sprintf("%.4f", sellAvg),
		fmt.Sprintf("%.2f", r.RealizedPnL),
		strconv.Itoa(r.Trades), strconv.Itoa(r.Wins), strconv.Itoa(r.Losses),
		fmt.Sprintf("%.2f", r.WinRate()*100),
		fmt.Sprintf("%.2f", r.BuyValue), fmt.Sprintf("%.2f", r.SellValue),
	}
}

func (s *eodSummarizer) SummarizeToday() (string, error) {
	return s.SummarizeDay(s.now())
}

// ShouldRunNow reports whether the cutoff has passed and today's CSV has
// not been written yet.
func (s *eodSummarizer) ShouldRunNow() (bool, string) {
	now := s.now()
	outPath := eodCSVPath(now)
	if now.After(marketCloseTime(now, s.cutoff)) {
		if _, err := os.Stat(outPath); errors.Is(err, os.ErrNotExist) {
			return true, outPath
		}
	}
	return false, outPath
}
