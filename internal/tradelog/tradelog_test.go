package tradelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndReadDay(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)

	at := time.Date(2024, 3, 4, 10, 0, 0, 0, loc)
	require.NoError(t, Append(Entry{At: at, Symbol: "069500", Side: "BUY", Qty: 3, Price: 30_260, OrderID: "A1"}))
	require.NoError(t, Append(Entry{At: at.Add(time.Hour), Symbol: "069500", Side: "SELL", Qty: 3, Price: 31_000, OrderID: "A2", PnL: 2_220}))

	raw, err := os.ReadFile(filepath.Join(dir, "2024-03-04.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], `"level"`)
	assert.Contains(t, lines[0], `"order_id":"A1"`)

	got, err := ReadDay(at)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "SELL", got[1].Side)
	assert.InDelta(t, 2_220, got[1].PnL, 1e-9)
	assert.Equal(t, "2024-03-04 11:00:00", got[1].Time)
}

func TestReadDayMissingFile(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	got, err := ReadDay(time.Now())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAppendSignal(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)

	at := time.Date(2024, 3, 4, 10, 0, 0, 0, loc)
	require.NoError(t, AppendSignal(SignalEntry{At: at, Symbol: "069500", Side: "BUY", Reason: "breakout", Approved: false, Blocked: "daily loss limit exceeded"}))

	raw, err := os.ReadFile(filepath.Join(dir, "signals", "2024-03-04.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"blocked":"daily loss limit exceeded"`)
	assert.Contains(t, string(raw), `"approved":false`)
}

func TestCompressOlder(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)

	old := filepath.Join(dir, "2020-01-01.txt")
	require.NoError(t, os.WriteFile(old, []byte("{}\n"), 0o644))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))

	fresh := filepath.Join(dir, "today.txt")
	require.NoError(t, os.WriteFile(fresh, []byte("{}\n"), 0o644))

	require.NoError(t, CompressOlder(7))

	_, err := os.Stat(old + ".gz")
	assert.NoError(t, err)
	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}
