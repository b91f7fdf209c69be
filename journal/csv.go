package journal

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rustyeddy/tradesync/recon"
)

var (
	tradeHeader = []string{"trade_id", "user_id", "account_id", "instrument", "quantity", "entry_price", "exit_price",
		"entry_time", "exit_time", "side", "commission", "realized_pl", "entry_order_id", "exit_order_id",
		"time_in_position", "comment", "created_at"}
	openHeader = []string{"user_id", "account_id", "instrument", "side", "quantity", "entry_price",
		"entry_time", "commission", "order_ids"}
)

// CSV appends trades to one file and keeps the open-position snapshot in
// another. Trade ids already in the trades file are remembered, so
// recording them again writes nothing.
type CSV struct {
	mu       sync.Mutex
	trades   *csv.Writer
	tf       *os.File
	openPath string
	seen     map[string]struct{}
	open     map[openKey]openRow
}

type openKey struct {
	user, account, instrument string
}

type openRow struct {
	user string
	pos  recon.OpenPosition
}

func NewCSV(tradesPath, openPath string) (*CSV, error) {
	seen, err := readTradeIDs(tradesPath)
	if err != nil {
		return nil, err
	}
	open, err := readOpenPositions(openPath)
	if err != nil {
		return nil, err
	}

	tf, err := os.OpenFile(tradesPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	tw := csv.NewWriter(tf)

	st, err := tf.Stat()
	if err != nil {
		_ = tf.Close()
		return nil, err
	}
	if st.Size() == 0 {
		if err := tw.Write(tradeHeader); err != nil {
			_ = tf.Close()
			return nil, err
		}
		tw.Flush()
		if err := tw.Error(); err != nil {
			_ = tf.Close()
			return nil, err
		}
	}

	j := &CSV{trades: tw, tf: tf, openPath: openPath, seen: seen, open: open}
	if err := j.writeOpen(); err != nil {
		_ = tf.Close()
		return nil, err
	}
	return j, nil
}

var _ Journal = (*CSV)(nil)

func (j *CSV) RecordTrades(ctx context.Context, trades []recon.Trade) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	inserted := 0
	for _, t := range trades {
		if _, ok := j.seen[t.ID]; ok {
			continue
		}
		err := j.trades.Write([]string{
			t.ID,
			t.UserID,
			t.AccountID,
			t.Instrument,
			strconv.FormatInt(t.Quantity, 10),
			f(t.EntryPrice),
			f(t.ExitPrice),
			t.EntryTime.UTC().Format(time.RFC3339),
			t.ExitTime.UTC().Format(time.RFC3339),
			string(t.Side),
			f(t.Commission),
			f(t.PnL),
			t.EntryOrderID,
			t.ExitOrderID,
			f(t.TimeInPosition.Seconds()),
			t.Comment,
			t.CreatedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return inserted, err
		}
		j.seen[t.ID] = struct{}{}
		inserted++
	}

	j.trades.Flush()
	return inserted, j.trades.Error()
}

func (j *CSV) RecordOpenPositions(ctx context.Context, userID string, accounts []string, positions []recon.OpenPosition) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	replace := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		replace[a] = true
	}
	for k := range j.open {
		if k.user == userID && replace[k.account] {
			delete(j.open, k)
		}
	}
	for _, p := range positions {
		j.open[openKey{userID, p.AccountID, p.Instrument}] = openRow{user: userID, pos: p}
	}
	return j.writeOpen()
}

// OpenPositions returns the current snapshot for userID.
func (j *CSV) OpenPositions(userID string) []recon.OpenPosition {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []recon.OpenPosition
	for _, r := range j.sortedOpen() {
		if r.user == userID {
			out = append(out, r.pos)
		}
	}
	return out
}

func (j *CSV) sortedOpen() []openRow {
	rows := make([]openRow, 0, len(j.open))
	for _, r := range j.open {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(a, b int) bool {
		if rows[a].user != rows[b].user {
			return rows[a].user < rows[b].user
		}
		if rows[a].pos.AccountID != rows[b].pos.AccountID {
			return rows[a].pos.AccountID < rows[b].pos.AccountID
		}
		return rows[a].pos.Instrument < rows[b].pos.Instrument
	})
	return rows
}

// writeOpen rewrites the snapshot file through a temp file and rename.
func (j *CSV) writeOpen() error {
	tmp := j.openPath + ".tmp"
	of, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := csv.NewWriter(of)
	if err := w.Write(openHeader); err != nil {
		_ = of.Close()
		return err
	}
	for _, r := range j.sortedOpen() {
		p := r.pos
		err := w.Write([]string{
			r.user,
			p.AccountID,
			p.Instrument,
			string(p.Side),
			strconv.FormatInt(p.Quantity, 10),
			f(p.EntryPrice),
			p.EntryTime.UTC().Format(time.RFC3339),
			f(p.Commission),
			p.OrderIDs,
		})
		if err != nil {
			_ = of.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = of.Close()
		return err
	}
	if err := of.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, j.openPath)
}

func (j *CSV) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	return j.tf.Close()
}

func readTradeIDs(path string) (map[string]struct{}, error) {
	seen := make(map[string]struct{})
	err := eachRow(path, func(row []string) error {
		if len(row) > 0 {
			seen[row[0]] = struct{}{}
		}
		return nil
	})
	return seen, err
}

func readOpenPositions(path string) (map[openKey]openRow, error) {
	open := make(map[openKey]openRow)
	err := eachRow(path, func(row []string) error {
		if len(row) != len(openHeader) {
			return fmt.Errorf("open positions: want %d columns, got %d", len(openHeader), len(row))
		}
		qty, err := strconv.ParseInt(row[4], 10, 64)
		if err != nil {
			return err
		}
		price, err := strconv.ParseFloat(row[5], 64)
		if err != nil {
			return err
		}
		at, err := time.Parse(time.RFC3339, row[6])
		if err != nil {
			return err
		}
		commission, err := strconv.ParseFloat(row[7], 64)
		if err != nil {
			return err
		}
		p := recon.OpenPosition{
			AccountID:  row[1],
			Instrument: row[2],
			Side:       recon.PositionSide(row[3]),
			Quantity:   qty,
			EntryPrice: price,
			EntryTime:  at,
			Commission: commission,
			OrderIDs:   row[8],
		}
		open[openKey{row[0], p.AccountID, p.Instrument}] = openRow{user: row[0], pos: p}
		return nil
	})
	return open, err
}

// eachRow calls fn for every data row of an existing CSV file. A missing
// file has no rows.
func eachRow(path string, fn func([]string) error) error {
	fh, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.FieldsPerRecord = -1
	if _, err := r.Read(); err != nil { // header
		if err == io.EOF {
			return nil
		}
		return err
	}
	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
