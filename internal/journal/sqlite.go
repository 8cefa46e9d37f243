// Package journal persists every published cycle record, and the fills
// they carry, to SQLite.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/types"
)

const filledStatus = "FILLED"

type SQLite struct {
	db *sql.DB
}

var _ interfaces.Publisher = (*SQLite)(nil)

// Fill is one executed order as journaled.
type Fill struct {
	OrderID string
	CycleID string
	Time    time.Time
	Symbol  string
	Side    types.Side
	Qty     int
	Price   float64
}

func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Publish records the cycle and, when it filled an order, the fill. A
// cycle id already journaled is ignored.
func (j *SQLite) Publish(ctx context.Context, res *types.StepResult) error {
	if res == nil || res.State == nil {
		return nil
	}
	st := res.State
	blob, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	at := st.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO cycles
		(cycle_id, time, symbol, mode, iteration, success, message, stop_reason, price, target,
		 position_status, cash, total_asset, drawdown, realized_pnl, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.CycleID, at.UTC(), st.Symbol, string(st.Mode), st.Iteration, res.Success, res.Message, res.StopReason,
		st.CurrentPrice, st.Params.TargetPrice, string(st.Position.Status),
		st.Account.Cash, st.Account.TotalAsset, st.Account.Drawdown, st.PnL.Realized, string(blob),
	); err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}

	if o := st.LastOrder; o.Status == filledStatus && o.ID != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO fills (order_id, cycle_id, time, symbol, side, qty, price)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.ID, res.CycleID, at.UTC(), st.Symbol, string(o.Side), o.Qty, o.Price,
		); err != nil {
			return fmt.Errorf("insert fill: %w", err)
		}
	}
	return tx.Commit()
}

// RecentCycles returns up to limit cycle records, newest first.
func (j *SQLite) RecentCycles(ctx context.Context, limit int) ([]*types.StepResult, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT cycle_id, success, message, stop_reason, state
		FROM cycles
		ORDER BY time DESC, cycle_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.StepResult
	for rows.Next() {
		var (
			res  types.StepResult
			blob string
		)
		if err := rows.Scan(&res.CycleID, &res.Success, &res.Message, &res.StopReason, &blob); err != nil {
			return nil, err
		}
		res.State = &types.TradingCycleState{}
		if err := json.Unmarshal([]byte(blob), res.State); err != nil {
			return nil, fmt.Errorf("decode state of cycle %s: %w", res.CycleID, err)
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}

// FillsBetween returns fills whose time is within [start, end), oldest first.
func (j *SQLite) FillsBetween(ctx context.Context, start, end time.Time) ([]Fill, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT order_id, cycle_id, time, symbol, side, qty, price
		FROM fills
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Fill
	for rows.Next() {
		var (
			f    Fill
			side string
		)
		if err := rows.Scan(&f.OrderID, &f.CycleID, &f.Time, &f.Symbol, &side, &f.Qty, &f.Price); err != nil {
			return nil, err
		}
		f.Side = types.Side(side)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
