package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/tradesync/market"
	"github.com/rustyeddy/tradesync/recon"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

var _ Journal = (*SQLite)(nil)
var _ SpecSource = (*SQLite)(nil)

func (j *SQLite) RecordTrades(ctx context.Context, trades []recon.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	inserted := 0
	err := j.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO trades (`+tradeColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range trades {
			res, err := stmt.ExecContext(ctx, tradeArgs(t)...)
			if err != nil {
				return fmt.Errorf("insert trade %s: %w", t.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (j *SQLite) RecordOpenPositions(ctx context.Context, userID string, accounts []string, positions []recon.OpenPosition) error {
	return j.inTx(ctx, func(tx *sql.Tx) error {
		for _, acct := range accounts {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM open_positions WHERE user_id = ? AND account_id = ?`, userID, acct); err != nil {
				return fmt.Errorf("clear open positions %s: %w", acct, err)
			}
		}
		for _, p := range positions {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO open_positions (user_id, `+openColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				userID, p.AccountID, p.Instrument, string(p.Side), p.Quantity,
				p.EntryPrice, p.EntryTime.UTC(), p.Commission, p.OrderIDs,
			)
			if err != nil {
				return fmt.Errorf("insert open position %s/%s: %w", p.AccountID, p.Instrument, err)
			}
		}
		return nil
	})
}

// PutContractSpec inserts or replaces the spec for its normalized symbol.
func (j *SQLite) PutContractSpec(ctx context.Context, s market.ContractSpec) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO contract_specs (symbol, tick_size, tick_value) VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET tick_size = excluded.tick_size, tick_value = excluded.tick_value`,
		market.Normalize(s.Symbol), s.TickSize, s.TickValue,
	)
	return err
}

func (j *SQLite) ContractSpecs(ctx context.Context) (market.SpecTable, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT symbol, tick_size, tick_value FROM contract_specs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := market.SpecTable{}
	for rows.Next() {
		var s market.ContractSpec
		if err := rows.Scan(&s.Symbol, &s.TickSize, &s.TickValue); err != nil {
			return nil, err
		}
		table.Put(s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

func (j *SQLite) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func tradeArgs(t recon.Trade) []any {
	return []any{
		t.ID, t.UserID, t.AccountID, t.Instrument, t.Quantity,
		t.EntryPrice, t.ExitPrice, t.EntryTime.UTC(), t.ExitTime.UTC(),
		string(t.Side), t.Commission, t.PnL, t.EntryOrderID, t.ExitOrderID,
		t.TimeInPosition.Seconds(), t.Comment, t.CreatedAt.UTC(),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (recon.Trade, error) {
	var (
		t       recon.Trade
		side    string
		seconds float64
	)
	err := s.Scan(
		&t.ID, &t.UserID, &t.AccountID, &t.Instrument, &t.Quantity,
		&t.EntryPrice, &t.ExitPrice, &t.EntryTime, &t.ExitTime,
		&side, &t.Commission, &t.PnL, &t.EntryOrderID, &t.ExitOrderID,
		&seconds, &t.Comment, &t.CreatedAt,
	)
	if err != nil {
		return recon.Trade{}, err
	}
	t.Side = recon.PositionSide(side)
	t.TimeInPosition = time.Duration(seconds * float64(time.Second))
	return t, nil
}

func scanOpenPosition(s scanner) (recon.OpenPosition, error) {
	var (
		p    recon.OpenPosition
		side string
	)
	err := s.Scan(&p.AccountID, &p.Instrument, &side, &p.Quantity,
		&p.EntryPrice, &p.EntryTime, &p.Commission, &p.OrderIDs)
	if err != nil {
		return recon.OpenPosition{}, err
	}
	p.Side = recon.PositionSide(side)
	return p, nil
}
