package journal

const Schema = `
CREATE TABLE IF NOT EXISTS cycles (
	cycle_id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	mode TEXT NOT NULL,
	iteration INTEGER NOT NULL,
	success INTEGER NOT NULL,
	message TEXT NOT NULL,
	stop_reason TEXT NOT NULL,
	price REAL NOT NULL,
	target REAL NOT NULL,
	position_status TEXT NOT NULL,
	cash REAL NOT NULL,
	total_asset REAL NOT NULL,
	drawdown REAL NOT NULL,
	realized_pnl REAL NOT NULL,
	state TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_time ON cycles(time);

CREATE TABLE IF NOT EXISTS fills (
	order_id TEXT PRIMARY KEY,
	cycle_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	qty INTEGER NOT NULL,
	price REAL NOT NULL
);
`
