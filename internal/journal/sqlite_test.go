package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakout-trading-bot/internal/types"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func cycle(id string, at time.Time, order types.OrderTrace) *types.StepResult {
	st := types.NewTradingCycleState("069500", types.ModePaper, 1_000_000, types.StrategyParams{K: 0.5}, types.RiskLimits{})
	st.Timestamp = at
	st.Iteration = 1
	st.CurrentPrice = 30_260
	st.LastOrder = order
	return &types.StepResult{CycleID: id, Success: true, Message: "no signal", State: st}
}

func TestSchemaCreated(t *testing.T) {
	t.Parallel()
	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('cycles','fills')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())
	assert.True(t, found["cycles"])
	assert.True(t, found["fills"])
}

func TestPublishAndRecentCycles(t *testing.T) {
	t.Parallel()
	j, _ := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 4, 1, 0, 0, 0, time.UTC)

	require.NoError(t, j.Publish(ctx, cycle("c1", base, types.OrderTrace{})))
	require.NoError(t, j.Publish(ctx, cycle("c2", base.Add(time.Minute), types.OrderTrace{})))
	// Duplicate ids are ignored.
	require.NoError(t, j.Publish(ctx, cycle("c2", base.Add(time.Minute), types.OrderTrace{})))
	require.NoError(t, j.Publish(ctx, nil))

	got, err := j.RecentCycles(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[0].CycleID)
	assert.Equal(t, "c1", got[1].CycleID)
	require.NotNil(t, got[0].State)
	assert.Equal(t, "069500", got[0].State.Symbol)
	assert.Equal(t, types.StatusIdle, got[0].State.Position.Status)
	assert.Equal(t, 30_260.0, got[0].State.CurrentPrice)
}

func TestPublishRecordsFills(t *testing.T) {
	t.Parallel()
	j, _ := newTestSQLite(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 4, 1, 0, 0, 0, time.UTC)

	filled := types.OrderTrace{ID: "ORD-1", Status: "FILLED", Side: types.SideBuy, Qty: 3, Price: 30_260}
	require.NoError(t, j.Publish(ctx, cycle("c1", at, filled)))
	// The same order seen again on a later cycle is not a new fill.
	require.NoError(t, j.Publish(ctx, cycle("c2", at.Add(time.Minute), filled)))
	require.NoError(t, j.Publish(ctx, cycle("c3", at.Add(2*time.Minute), types.OrderTrace{Status: "REJECTED", Side: types.SideSell})))

	fills, err := j.FillsBetween(ctx, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, fills, 1)
	assert.Equal(t, "ORD-1", fills[0].OrderID)
	assert.Equal(t, "c1", fills[0].CycleID)
	assert.Equal(t, types.SideBuy, fills[0].Side)
	assert.Equal(t, 3, fills[0].Qty)
	assert.True(t, fills[0].Time.Equal(at))

	none, err := j.FillsBetween(ctx, at.Add(time.Hour), at.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)
}
