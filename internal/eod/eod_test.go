package eod

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakout-trading-bot/internal/store"
	"breakout-trading-bot/internal/tradelog"
)

var kst = time.FixedZone("KST", 9*3600)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestSummarizeDayWithWinRate(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	day := time.Date(2024, 3, 4, 10, 0, 0, 0, kst)

	fills := []tradelog.Entry{
		{At: day, Symbol: "069500", Side: "BUY", Qty: 3, Price: 30_000},
		{At: day.Add(time.Hour), Symbol: "069500", Side: "SELL", Qty: 3, Price: 29_000, PnL: -3_000},
		{At: day.Add(2 * time.Hour), Symbol: "069500", Side: "BUY", Qty: 2, Price: 29_000},
		{At: day.Add(3 * time.Hour), Symbol: "069500", Side: "SELL", Qty: 2, Price: 30_000, PnL: 2_000},
	}
	for _, e := range fills {
		require.NoError(t, tradelog.Append(e))
	}

	path, err := NewSummarizer(DefaultCutoff).SummarizeDay(day)
	require.NoError(t, err)
	require.NotEmpty(t, path)

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "win_rate", rows[0][9])

	sym := rows[1]
	assert.Equal(t, "069500", sym[0])
	assert.Equal(t, "5", sym[1])
	assert.Equal(t, "-1000.00", sym[5])
	assert.Equal(t, "2", sym[6])
	assert.Equal(t, "1", sym[7])
	assert.Equal(t, "1", sym[8])
	assert.Equal(t, "50.00", sym[9])

	assert.Equal(t, "TOTAL", rows[2][0])
	assert.Equal(t, "50.00", rows[2][9])
}

func TestSummarizeDayOpenPositionOnlyHasZeroWinRate(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	day := time.Date(2024, 3, 4, 10, 0, 0, 0, kst)
	require.NoError(t, tradelog.Append(tradelog.Entry{At: day, Symbol: "069500", Side: "BUY", Qty: 3, Price: 30_260}))

	path, err := NewSummarizer(DefaultCutoff).SummarizeDay(day)
	require.NoError(t, err)
	rows := readCSV(t, path)
	assert.Equal(t, "0", rows[1][6])
	assert.Equal(t, "0.00", rows[1][9])
}

func TestSummarizeDayWithoutFills(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())

	path, err := NewSummarizer(DefaultCutoff).SummarizeDay(time.Date(2024, 3, 4, 10, 0, 0, 0, kst))
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestShouldRunNow(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())

	s := &eodSummarizer{cutoff: store.MustClock("15:40")}

	s.now = func() time.Time { return time.Date(2024, 3, 4, 15, 0, 0, 0, kst) }
	run, _ := s.ShouldRunNow()
	assert.False(t, run)

	s.now = func() time.Time { return time.Date(2024, 3, 4, 16, 0, 0, 0, kst) }
	run, path := s.ShouldRunNow()
	assert.True(t, run)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("symbol\n"), 0o644))
	run, _ = s.ShouldRunNow()
	assert.False(t, run, "already written")
}
