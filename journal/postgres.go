package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rustyeddy/tradesync/market"
	"github.com/rustyeddy/tradesync/recon"
)

// Postgres is the shared-database journal. Every instance pointed at the
// same database sees one trade table, so ids written by one process are
// skipped by the next.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn, pings the server and applies PostgresSchema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, PostgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

var _ Journal = (*Postgres)(nil)
var _ SpecSource = (*Postgres)(nil)

const pgInsertTrade = `INSERT INTO trades (` + tradeColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	ON CONFLICT (trade_id) DO NOTHING`

func (j *Postgres) RecordTrades(ctx context.Context, trades []recon.Trade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	inserted := 0
	err := j.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, t := range trades {
			batch.Queue(pgInsertTrade, tradeArgs(t)...)
		}

		br := tx.SendBatch(ctx, batch)
		for _, t := range trades {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("insert trade %s: %w", t.ID, err)
			}
			inserted += int(tag.RowsAffected())
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (j *Postgres) RecordOpenPositions(ctx context.Context, userID string, accounts []string, positions []recon.OpenPosition) error {
	return j.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if len(accounts) > 0 {
			if _, err := tx.Exec(ctx,
				`DELETE FROM open_positions WHERE user_id = $1 AND account_id = ANY($2)`, userID, accounts); err != nil {
				return fmt.Errorf("clear open positions: %w", err)
			}
		}
		for _, p := range positions {
			_, err := tx.Exec(ctx, `
				INSERT INTO open_positions (user_id, `+openColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (user_id, account_id, instrument) DO UPDATE SET
					side = excluded.side, quantity = excluded.quantity, entry_price = excluded.entry_price,
					entry_time = excluded.entry_time, commission = excluded.commission, order_ids = excluded.order_ids`,
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

func (j *Postgres) PutContractSpec(ctx context.Context, s market.ContractSpec) error {
	_, err := j.pool.Exec(ctx, `
		INSERT INTO contract_specs (symbol, tick_size, tick_value) VALUES ($1, $2, $3)
		ON CONFLICT (symbol) DO UPDATE SET tick_size = excluded.tick_size, tick_value = excluded.tick_value`,
		market.Normalize(s.Symbol), s.TickSize, s.TickValue,
	)
	return err
}

func (j *Postgres) ContractSpecs(ctx context.Context) (market.SpecTable, error) {
	rows, err := j.pool.Query(ctx, `SELECT symbol, tick_size, tick_value FROM contract_specs`)
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
	return table, rows.Err()
}

func (j *Postgres) GetTrade(ctx context.Context, tradeID string) (recon.Trade, error) {
	row := j.pool.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trades WHERE trade_id = $1`, tradeID)
	t, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return recon.Trade{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
		}
		return recon.Trade{}, err
	}
	return t, nil
}

func (j *Postgres) ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]recon.Trade, error) {
	rows, err := j.pool.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE exit_time >= $1 AND exit_time < $2
		ORDER BY exit_time ASC, trade_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []recon.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *Postgres) ListOpenPositions(ctx context.Context, userID string) ([]recon.OpenPosition, error) {
	rows, err := j.pool.Query(ctx, `
		SELECT `+openColumns+`
		FROM open_positions
		WHERE user_id = $1
		ORDER BY account_id, instrument`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []recon.OpenPosition
	for rows.Next() {
		p, err := scanOpenPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (j *Postgres) Close() error {
	j.pool.Close()
	return nil
}

// inTx runs fn in a read-committed transaction. A panic inside fn rolls
// back and is re-raised.
func (j *Postgres) inTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	tx, err := j.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	return fn(ctx, tx)
}
