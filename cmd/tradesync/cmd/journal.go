package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rustyeddy/tradesync/journal"
	"github.com/rustyeddy/tradesync/market"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display records from the configured journal.

Subcommands:
  trade  - Get details of a specific trade by ID
  today  - List trades closed today
  day    - List trades closed on a specific day
  open   - Show the stored open-position book
  spec   - Store a contract spec used for P&L

Examples:
  tradesync journal trade <trade-id>
  tradesync journal today
  tradesync journal day 2024-01-15
  tradesync journal spec ZN 0.015625 15.625`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Show open positions for the user",
	Args:  cobra.NoArgs,
	RunE:  runJournalOpen,
}

var journalSpecCmd = &cobra.Command{
	Use:   "spec <symbol> <tick-size> <tick-value>",
	Short: "Store a contract spec",
	Args:  cobra.ExactArgs(3),
	RunE:  runJournalSpec,
}

var journalUTC bool

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalOpenCmd)
	journalCmd.AddCommand(journalSpecCmd)

	journalCmd.PersistentFlags().BoolVar(&journalUTC, "utc", false, "use UTC day boundaries instead of local time")
}

func withQuerier(cmd *cobra.Command, fn func(ctx context.Context, a *app, q journal.Querier) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	q, err := a.querier()
	if err != nil {
		return err
	}
	return fn(ctx, a, q)
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	return withQuerier(cmd, func(ctx context.Context, a *app, q journal.Querier) error {
		t, err := q.GetTrade(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get trade: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(t))
		return nil
	})
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	loc := journalLocation()
	return listDay(cmd, time.Now().In(loc).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listDay(cmd, args[0])
}

func listDay(cmd *cobra.Command, day string) error {
	start, end, err := dayBounds(journalLocation(), day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	return withQuerier(cmd, func(ctx context.Context, a *app, q journal.Querier) error {
		trades, err := q.ListTradesClosedBetween(ctx, start, end)
		if err != nil {
			return fmt.Errorf("query trades: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(trades) == 0 {
			fmt.Fprintf(out, "no trades closed on %s\n", day)
			return nil
		}
		fmt.Fprintln(out, journal.FormatTradesOrg(trades))
		s := journal.Summarize(trades)
		fmt.Fprintf(out, "\n%d trades, %d wins, %d losses, win rate %.0f%%, net P/L %.2f\n",
			s.Trades, s.Wins, s.Losses, s.WinRate*100, s.NetPL)
		return nil
	})
}

func runJournalOpen(cmd *cobra.Command, args []string) error {
	return withQuerier(cmd, func(ctx context.Context, a *app, q journal.Querier) error {
		user, err := a.user()
		if err != nil {
			return err
		}
		positions, err := q.ListOpenPositions(ctx, user)
		if err != nil {
			return fmt.Errorf("query open positions: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), journal.FormatOpenPositionsOrg(positions))
		return nil
	})
}

func runJournalSpec(cmd *cobra.Command, args []string) error {
	size, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("tick size: %w", err)
	}
	value, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("tick value: %w", err)
	}
	spec := market.ContractSpec{Symbol: market.Normalize(args[0]), TickSize: size, TickValue: value}
	if spec.Symbol == "" || !spec.Valid() {
		return fmt.Errorf("spec %s: symbol, tick size and tick value are required and must be positive", args[0])
	}

	return withQuerier(cmd, func(ctx context.Context, a *app, q journal.Querier) error {
		w, ok := q.(journal.SpecWriter)
		if !ok {
			return fmt.Errorf("journal type %q cannot store contract specs", a.cfg.Journal.Type)
		}
		if err := w.PutContractSpec(ctx, spec); err != nil {
			return fmt.Errorf("store spec: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s tick size %g, tick value %g\n", spec.Symbol, spec.TickSize, spec.TickValue)
		return nil
	})
}

func journalLocation() *time.Location {
	if journalUTC {
		return time.UTC
	}
	return time.Local
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
