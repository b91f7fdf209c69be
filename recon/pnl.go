package recon

import (
	"math"

	"github.com/rustyeddy/tradesync/market"
	"go.uber.org/zap"
)

// RealizedPnL converts a price move into account currency. The move is
// rounded to whole ticks (half to even) before scaling, and the result to
// cents. Shorts gain when price falls.
func RealizedPnL(side PositionSide, quantity int64, entry, exit float64, spec market.ContractSpec) float64 {
	ticks := math.RoundToEven((exit - entry) / spec.TickSize)
	pnl := ticks * spec.TickValue * float64(quantity)
	if side == Short {
		pnl = -pnl
	}
	return roundCents(pnl)
}

func roundCents(x float64) float64 {
	r := math.RoundToEven(x*100) / 100
	if r == 0 {
		return 0 // no -0 in reports
	}
	return r
}

// Warning is a data-quality note raised while reconciling. It never stops
// a pass.
type Warning struct {
	Instrument string `json:"instrument"`
	Message    string `json:"message"`
}

// Calculator resolves contract specs for a single pass and prices matches.
// Missing specs fall back to market defaults and are reported once per
// instrument.
type Calculator struct {
	specs    market.SpecProvider
	log      *zap.Logger
	resolved map[string]market.ContractSpec
	warnings []Warning
}

func NewCalculator(specs market.SpecProvider, log *zap.Logger) *Calculator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Calculator{
		specs:    specs,
		log:      log,
		resolved: make(map[string]market.ContractSpec),
	}
}

// Spec returns the spec used for instrument.
func (c *Calculator) Spec(instrument string) market.ContractSpec {
	if s, ok := c.resolved[instrument]; ok {
		return s
	}

	var (
		spec market.ContractSpec
		ok   bool
	)
	if c.specs != nil {
		spec, ok = c.specs.ContractSpec(instrument)
	}

	switch {
	case !ok:
		c.warn(instrument, "no contract spec, using default tick economics")
		spec = market.DefaultSpec(instrument)
	case !spec.Valid():
		c.warn(instrument, "unusable contract spec, using default tick economics")
		spec = market.DefaultSpec(instrument)
	}
	c.resolved[instrument] = spec
	return spec
}

func (c *Calculator) warn(instrument, msg string) {
	c.warnings = append(c.warnings, Warning{Instrument: instrument, Message: msg})
	c.log.Warn(msg,
		zap.String("instrument", instrument),
		zap.Float64("tick_size", market.DefaultTickSize),
		zap.Float64("tick_value", market.DefaultTickValue),
	)
}

// PnL prices a match of quantity between entry and exit.
func (c *Calculator) PnL(side PositionSide, quantity int64, entry, exit float64, instrument string) float64 {
	return RealizedPnL(side, quantity, entry, exit, c.Spec(instrument))
}

// Warnings returns the data-quality warnings raised so far.
func (c *Calculator) Warnings() []Warning {
	return c.warnings
}
