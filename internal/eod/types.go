package eod

// aggRow is the day's activity for one symbol. Realized P&L and the
// win/loss counts come from the sell fills, which carry the P&L of the
// round trip they closed.
type aggRow struct {
	Symbol      string
	BuyQty      int
	BuyValue    float64
	SellQty     int
	SellValue   float64
	RealizedPnL float64
	Trades      int
	Wins        int
	Losses      int
}

// WinRate is wins over closed trades, 0 when nothing closed.
func (r *aggRow) WinRate() float64 {
	if r.Trades == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Trades)
}
