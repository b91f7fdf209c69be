package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradesync",
	Short: "Reconcile broker fills into a trade journal",
	Long: `tradesync turns the raw fills a broker reports into round-trip trades.

Fills are matched per account and instrument in FIFO order. Every closed
lot becomes a trade with realized P&L, prorated commission and a
deterministic ID, so the same fills can be reconciled any number of times
without duplicating journal rows. Whatever is left open is reported as the
current open-position book.

It provides tools for:
  - Reconciling an order-history export
  - Staging manually uploaded orders and processing them later
  - Querying the trade journal
  - Managing configuration and contract specs`,
	SilenceUsage: true,
}

var (
	cfgFile string
	userID  string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user id (overrides config and "+envUser+")")
}
