package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rustyeddy/tradesync/ingest"
	"github.com/rustyeddy/tradesync/journal"
	"github.com/spf13/cobra"
)

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Stage manual order uploads and process them",
	Long: `Manual uploads are staged as batches and reconciled on request.
Batches only survive between runs with the pebble staging store.

Subcommands:
  add     - Stage a file of manual orders as a new batch
  list    - List the user's batches
  process - Reconcile a staged batch
  delete  - Remove a batch

Examples:
  tradesync stage add --orders manual.json
  tradesync stage add --orders manual.json --process
  tradesync stage process 01HZX3...`,
}

var stageAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Stage a file of manual orders",
	Args:  cobra.NoArgs,
	RunE:  runStageAdd,
}

var stageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List staged batches",
	Args:  cobra.NoArgs,
	RunE:  runStageList,
}

var stageProcessCmd = &cobra.Command{
	Use:   "process <batch-id>",
	Short: "Reconcile a staged batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runStageProcess,
}

var stageDeleteCmd = &cobra.Command{
	Use:   "delete <batch-id>",
	Short: "Delete a staged batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runStageDelete,
}

var (
	stageOrders  string
	stageProcess bool
)

func init() {
	rootCmd.AddCommand(stageCmd)
	stageCmd.AddCommand(stageAddCmd)
	stageCmd.AddCommand(stageListCmd)
	stageCmd.AddCommand(stageProcessCmd)
	stageCmd.AddCommand(stageDeleteCmd)

	stageAddCmd.Flags().StringVarP(&stageOrders, "orders", "o", "", "manual orders JSON file (required)")
	stageAddCmd.Flags().BoolVar(&stageProcess, "process", false, "process the batch right after staging it")
	stageAddCmd.MarkFlagRequired("orders")
}

func withUser(cmd *cobra.Command, fn func(ctx context.Context, a *app, user string) error) error {
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
	return fn(ctx, a, user)
}

func runStageAdd(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(stageOrders)
	if err != nil {
		return fmt.Errorf("read orders: %w", err)
	}
	orders, err := ingest.DecodeManualOrders(data)
	if err != nil {
		return err
	}

	return withUser(cmd, func(ctx context.Context, a *app, user string) error {
		batch, err := a.batches.Stage(ctx, user, orders)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ staged batch %s (%d orders)\n", batch.ID, len(batch.Orders))
		if !stageProcess {
			return nil
		}
		return processBatch(ctx, cmd, a, user, batch.ID)
	})
}

func runStageList(cmd *cobra.Command, args []string) error {
	return withUser(cmd, func(ctx context.Context, a *app, user string) error {
		batches, err := a.batches.List(ctx, user)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(batches) == 0 {
			fmt.Fprintln(out, "no staged batches")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BATCH\tSTATUS\tORDERS\tUPDATED\tMESSAGE")
		for _, b := range batches {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				b.ID, b.Status, len(b.Orders), b.UpdatedAt.Format("2006-01-02 15:04:05"), b.Message)
		}
		return w.Flush()
	})
}

func runStageProcess(cmd *cobra.Command, args []string) error {
	return withUser(cmd, func(ctx context.Context, a *app, user string) error {
		return processBatch(ctx, cmd, a, user, args[0])
	})
}

func processBatch(ctx context.Context, cmd *cobra.Command, a *app, user, batchID string) error {
	res := a.batches.Process(ctx, user, batchID)
	if res.Failure != nil {
		return res.Failure
	}

	out := cmd.OutOrStdout()
	if len(res.Trades) > 0 {
		fmt.Fprintln(out, journal.FormatTradesOrg(res.Trades))
		fmt.Fprintln(out)
	}
	fmt.Fprint(out, journal.FormatOpenPositionsOrg(res.OpenPositions))
	fmt.Fprintf(out, "✓ batch %s: %d trades (%d new), %d open positions\n",
		batchID, len(res.Trades), res.Inserted, len(res.OpenPositions))
	return nil
}

func runStageDelete(cmd *cobra.Command, args []string) error {
	return withUser(cmd, func(ctx context.Context, a *app, user string) error {
		if err := a.batches.Delete(ctx, user, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ deleted batch %s\n", args[0])
		return nil
	})
}
