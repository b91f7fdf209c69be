// journal/schema.go
package journal

// Schema is the SQLite schema. time_in_position is stored in seconds.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME NOT NULL,
	side TEXT NOT NULL,
	commission REAL NOT NULL,
	realized_pl REAL NOT NULL,
	entry_order_id TEXT NOT NULL,
	exit_order_id TEXT NOT NULL,
	time_in_position REAL NOT NULL,
	comment TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
CREATE INDEX IF NOT EXISTS idx_trades_account ON trades(user_id, account_id);

CREATE TABLE IF NOT EXISTS open_positions (
	user_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	entry_price REAL NOT NULL,
	entry_time DATETIME NOT NULL,
	commission REAL NOT NULL,
	order_ids TEXT NOT NULL,
	PRIMARY KEY (user_id, account_id, instrument)
);

CREATE TABLE IF NOT EXISTS contract_specs (
	symbol TEXT PRIMARY KEY,
	tick_size REAL NOT NULL,
	tick_value REAL NOT NULL
);
`

// PostgresSchema mirrors Schema with Postgres types.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	quantity BIGINT NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	exit_price DOUBLE PRECISION NOT NULL,
	entry_time TIMESTAMPTZ NOT NULL,
	exit_time TIMESTAMPTZ NOT NULL,
	side TEXT NOT NULL,
	commission DOUBLE PRECISION NOT NULL,
	realized_pl DOUBLE PRECISION NOT NULL,
	entry_order_id TEXT NOT NULL,
	exit_order_id TEXT NOT NULL,
	time_in_position DOUBLE PRECISION NOT NULL,
	comment TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades(exit_time);
CREATE INDEX IF NOT EXISTS idx_trades_account ON trades(user_id, account_id);

CREATE TABLE IF NOT EXISTS open_positions (
	user_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity BIGINT NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	entry_time TIMESTAMPTZ NOT NULL,
	commission DOUBLE PRECISION NOT NULL,
	order_ids TEXT NOT NULL,
	PRIMARY KEY (user_id, account_id, instrument)
);

CREATE TABLE IF NOT EXISTS contract_specs (
	symbol TEXT PRIMARY KEY,
	tick_size DOUBLE PRECISION NOT NULL,
	tick_value DOUBLE PRECISION NOT NULL
);
`

const tradeColumns = `trade_id, user_id, account_id, instrument, quantity, entry_price, exit_price,
	entry_time, exit_time, side, commission, realized_pl, entry_order_id, exit_order_id,
	time_in_position, comment, created_at`

const openColumns = `account_id, instrument, side, quantity, entry_price, entry_time, commission, order_ids`
