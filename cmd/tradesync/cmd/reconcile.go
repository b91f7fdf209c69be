package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rustyeddy/tradesync/ingest"
	"github.com/rustyeddy/tradesync/journal"
	"github.com/rustyeddy/tradesync/market"
	"github.com/rustyeddy/tradesync/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile an order-history file into the journal",
	Long: `Read an order-history export, match its fills into trades and record
them in the configured journal. Trades and the open-position book are
printed as Org-mode.

The file is a JSON object keyed by account id, each holding a list of
orders. "status" and "timestamp" keys are ignored, as are malformed orders.

Example:
  tradesync reconcile --fills orders.json --user u1 --rate ES=2.10 --rate NQ=2.10`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

var (
	reconcileFills string
	reconcileRates map[string]string
)

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&reconcileFills, "fills", "f", "", "order-history JSON file (required)")
	reconcileCmd.Flags().StringToStringVar(&reconcileRates, "rate", nil, "per-contract commission by product, e.g. ES=2.10")
	reconcileCmd.MarkFlagRequired("fills")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	user, err := a.user()
	if err != nil {
		return err
	}
	rates, err := parseRates(reconcileRates)
	if err != nil {
		return err
	}

	fills, err := readFills(a, reconcileFills, rates)
	if err != nil {
		return err
	}

	res := a.rec.Run(ctx, service.Request{UserID: user, Fills: fills})
	if res.Failure != nil {
		return res.Failure
	}

	out := cmd.OutOrStdout()
	if len(res.Trades) > 0 {
		fmt.Fprintln(out, journal.FormatTradesOrg(res.Trades))
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, journal.FormatOpenPositionsOrg(res.OpenPositions))

	s := journal.Summarize(res.Trades)
	fmt.Fprintf(out, "✓ %d trades (%d new), %d open positions, net P/L %.2f\n",
		s.Trades, res.Inserted, len(res.OpenPositions), s.NetPL)
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w.Message)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(out, "  skipped account: %v\n", f)
	}
	if len(res.Dropped) > 0 {
		fmt.Fprintf(out, "  dropped %d invalid fills\n", len(res.Dropped))
	}
	return nil
}

// readFills decodes the file, logging what had to be skipped. Only a
// file with nothing usable is an error.
func readFills(a *app, path string, rates ingest.CommissionRates) (ingest.StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fills: %w", err)
	}
	fills, err := ingest.DecodeAccounts(data, rates)
	if err != nil {
		if len(fills) == 0 {
			return nil, err
		}
		a.log.Warn("skipped malformed orders", zap.String("file", path), zap.Error(err))
	}
	return ingest.StaticSource(fills), nil
}

func parseRates(in map[string]string) (ingest.CommissionRates, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(ingest.CommissionRates, len(in))
	for sym, v := range in {
		rate, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || rate < 0 {
			return nil, fmt.Errorf("rate %s=%q: want a non-negative number", sym, v)
		}
		out[market.Normalize(strings.ToUpper(sym))] = rate
	}
	return out, nil
}
