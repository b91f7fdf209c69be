package recon

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/tradesync/market"
	"go.uber.org/zap"
)

// IsMetadataKey reports whether an account-map key is a status marker
// rather than an account id. Upstream payloads mix them in.
func IsMetadataKey(k string) bool {
	return k == "status" || k == "timestamp"
}

// Engine matches fills into trades with FIFO lot accounting. An Engine
// holds no per-pass state, so one value can serve concurrent passes for
// different accounts.
type Engine struct {
	specs market.SpecProvider
	log   *zap.Logger
	now   func() time.Time
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock sets the source of Trade.CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(specs market.SpecProvider, opts ...Option) *Engine {
	e := &Engine{
		specs: specs,
		log:   zap.NewNop(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Reconcile runs a single pass with default options and returns only the
// trades and open positions.
func Reconcile(fillsByAccount map[string][]Fill, userID string, specs market.SpecProvider) ([]Trade, []OpenPosition) {
	res := NewEngine(specs).Run(fillsByAccount, userID)
	return res.Trades, res.OpenPositions
}

// Run reconciles fillsByAccount for userID. Accounts are processed in
// lexical order and an order id is matched at most once per call, even if
// it shows up under several accounts. A failing account is skipped
// without affecting the others.
func (e *Engine) Run(fillsByAccount map[string][]Fill, userID string) Result {
	var res Result
	if len(fillsByAccount) == 0 {
		return res
	}

	p := &pass{
		userID:  userID,
		created: e.now(),
		log:     e.log.With(zap.String("user_id", userID)),
		ledger:  NewLedger(),
		calc:    NewCalculator(e.specs, e.log),
		seen:    make(map[string]struct{}),
	}

	accounts := make([]string, 0, len(fillsByAccount))
	for k := range fillsByAccount {
		if IsMetadataKey(k) {
			continue
		}
		accounts = append(accounts, k)
	}
	sort.Strings(accounts)

	for _, acct := range accounts {
		trades, err := p.account(acct, fillsByAccount[acct])
		if err != nil {
			p.log.Error("skipping account", zap.String("account_id", acct), zap.Error(err))
			p.ledger.DropAccount(acct)
			res.Failures = append(res.Failures, &Error{Kind: KindAccount, AccountID: acct, Err: err})
			continue
		}
		res.Trades = append(res.Trades, trades...)
		res.Accounts = append(res.Accounts, acct)
	}

	res.OpenPositions = OpenPositions(p.ledger)
	res.Warnings = p.calc.Warnings()
	res.Dropped = p.dropped

	p.log.Info("reconciled",
		zap.Int("accounts", len(res.Accounts)),
		zap.Int("trades", len(res.Trades)),
		zap.Int("open_positions", len(res.OpenPositions)),
		zap.Int("dropped", len(res.Dropped)),
		zap.Int("failed_accounts", len(res.Failures)),
	)
	return res
}

// pass is the mutable state of one Run call.
type pass struct {
	userID  string
	created time.Time
	log     *zap.Logger
	ledger  *Ledger
	calc    *Calculator
	seen    map[string]struct{}
	dropped []*Error
}

type sequenced struct {
	Fill
	seq int
}

func (p *pass) account(accountID string, fills []Fill) (trades []Trade, err error) {
	defer func() {
		if r := recover(); r != nil {
			trades = nil
			err = fmt.Errorf("matching aborted: %v", r)
		}
	}()

	ordered := p.order(accountID, fills)

	var commission float64
	for _, f := range ordered {
		commission += f.Commission
	}
	p.log.Debug("matching account",
		zap.String("account_id", accountID),
		zap.Int("fills", len(ordered)),
		zap.Float64("commission", commission),
	)

	for _, f := range ordered {
		trades = p.apply(accountID, f.Fill, trades)
	}
	return trades, nil
}

// order validates, sorts and dedups one account's fills. Ties on time are
// broken by order id, then by input position. Duplicates are resolved
// after sorting, so the earliest copy of an order id wins.
func (p *pass) order(accountID string, fills []Fill) []sequenced {
	valid := make([]sequenced, 0, len(fills))
	for i, f := range fills {
		f.AccountID = accountID
		if err := f.Validate(); err != nil {
			p.log.Warn("dropping fill", zap.String("account_id", accountID), zap.Error(err))
			p.dropped = append(p.dropped, &Error{Kind: KindFill, AccountID: accountID, OrderID: f.OrderID, Err: err})
			continue
		}
		valid = append(valid, sequenced{Fill: f, seq: i})
	}

	sort.SliceStable(valid, func(i, j int) bool {
		a, b := valid[i], valid[j]
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		if c := compareOrderIDs(a.OrderID, b.OrderID); c != 0 {
			return c < 0
		}
		return a.seq < b.seq
	})

	out := valid[:0]
	for _, f := range valid {
		if _, dup := p.seen[f.OrderID]; dup {
			p.log.Debug("duplicate fill", zap.String("account_id", accountID), zap.String("order_id", f.OrderID))
			continue
		}
		p.seen[f.OrderID] = struct{}{}
		out = append(out, f)
	}
	return out
}

// compareOrderIDs compares numerically when both ids are integers, since
// brokers hand out increasing numeric ids, and lexically otherwise.
func compareOrderIDs(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

func (p *pass) apply(accountID string, f Fill, trades []Trade) []Trade {
	pos := p.ledger.Position(accountID, f.Instrument())
	lot := newLot(f)

	if pos.Side == Flat || pos.Side == lot.Side {
		pos.push(lot)
		return trades
	}

	for !pos.Empty() && lot.Remaining > 0 {
		head := pos.Head()
		qty := min(head.Remaining, lot.Remaining)
		trades = append(trades, p.match(pos, head, lot, qty))

		head.Remaining -= qty
		lot.Remaining -= qty
		if head.Remaining == 0 {
			pos.pop()
		}
	}

	// Whatever is left flips the position.
	if lot.Remaining > 0 {
		pos.push(lot)
	}
	return trades
}

func (p *pass) match(pos *Position, entry, exit *QueuedLot, qty int64) Trade {
	entryCommission := entry.Commission * float64(qty) / float64(entry.Quantity)
	exitCommission := exit.Commission * float64(qty) / float64(exit.Quantity)

	return Trade{
		ID:             TradeID(p.userID, pos.AccountID, pos.Instrument, entry.OrderID, exit.OrderID, qty),
		UserID:         p.userID,
		AccountID:      pos.AccountID,
		Instrument:     pos.Instrument,
		Quantity:       qty,
		EntryPrice:     entry.Price,
		ExitPrice:      exit.Price,
		EntryTime:      entry.Time,
		ExitTime:       exit.Time,
		Side:           pos.Side,
		Commission:     entryCommission + exitCommission,
		PnL:            p.calc.PnL(pos.Side, qty, entry.Price, exit.Price, pos.Instrument),
		EntryOrderID:   entry.OrderID,
		ExitOrderID:    exit.OrderID,
		TimeInPosition: exit.Time.Sub(entry.Time),
		CreatedAt:      p.created,
	}
}
