package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/tradesync/recon"
)

// GetTrade returns a single trade by ID.
func (j *SQLite) GetTrade(ctx context.Context, tradeID string) (recon.Trade, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE trade_id = ?`, tradeID)

	t, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return recon.Trade{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
		}
		return recon.Trade{}, err
	}
	return t, nil
}

// ListTradesClosedBetween returns trades whose exit_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]recon.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE exit_time >= ? AND exit_time < ?
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

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListOpenPositions returns the stored snapshot for userID.
func (j *SQLite) ListOpenPositions(ctx context.Context, userID string) ([]recon.OpenPosition, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT `+openColumns+`
		FROM open_positions
		WHERE user_id = ?
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Summary aggregates realized results over a set of trades.
type Summary struct {
	Trades       int
	Wins         int
	Losses       int
	GrossProfit  float64
	GrossLoss    float64
	Commission   float64
	NetPL        float64
	WinRate      float64
	ProfitFactor float64
}

// Summarize computes win rate and profit factor. Commission is subtracted
// from NetPL only.
func Summarize(trades []recon.Trade) Summary {
	var s Summary
	for _, t := range trades {
		s.Trades++
		s.Commission += t.Commission
		switch {
		case t.PnL > 0:
			s.Wins++
			s.GrossProfit += t.PnL
		case t.PnL < 0:
			s.Losses++
			s.GrossLoss -= t.PnL
		}
	}
	s.NetPL = s.GrossProfit - s.GrossLoss - s.Commission
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades)
	}
	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	}
	return s
}
