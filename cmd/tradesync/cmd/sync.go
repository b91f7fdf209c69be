package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rustyeddy/tradesync/ingest"
	"github.com/rustyeddy/tradesync/notify"
	"github.com/rustyeddy/tradesync/recon"
	"github.com/rustyeddy/tradesync/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const sourceTimeout = 5 * time.Minute

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a reconciliation job over an order-history file or stream",
	Long: `Submit a background job that reads fills, optionally narrowed to some
accounts and a start date, reconciles them and records the result. The
command waits for the job and prints its final state as JSON.

With --stream the input is newline-delimited broker orders, one JSON
object per line carrying its own account_id, as a live session emits them.
Use "-" to read the stream from stdin.

Examples:
  tradesync sync --fills orders.json --account APEX-1 --since 2024-05-01
  tail -n +1 session.jsonl | tradesync sync --stream --fills - --follow`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var (
	syncFills    string
	syncAccounts []string
	syncSince    string
	syncRates    map[string]string
	syncTimeout  time.Duration
	syncStream   bool
	syncFollow   bool
)

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVarP(&syncFills, "fills", "f", "", "order-history JSON file, or order stream with --stream (required)")
	syncCmd.Flags().StringSliceVar(&syncAccounts, "account", nil, "only these accounts (repeatable)")
	syncCmd.Flags().StringVar(&syncSince, "since", "", "drop fills before this date (YYYY-MM-DD, UTC)")
	syncCmd.Flags().StringToStringVar(&syncRates, "rate", nil, "per-contract commission by product, e.g. ES=2.10")
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", sourceTimeout, "how long to wait for the source")
	syncCmd.Flags().BoolVar(&syncStream, "stream", false, "read newline-delimited orders through a live collector")
	syncCmd.Flags().BoolVar(&syncFollow, "follow", false, "print progress events to stderr while the job runs")
	syncCmd.MarkFlagRequired("fills")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var since time.Time
	if syncSince != "" {
		t, err := time.Parse("2006-01-02", syncSince)
		if err != nil {
			return fmt.Errorf("since: %w", err)
		}
		since = t
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
	rates, err := parseRates(syncRates)
	if err != nil {
		return err
	}

	var src ingest.Source
	if syncStream {
		src, err = collectStream(ctx, cmd, a, syncFills, rates)
		if err != nil {
			return err
		}
	} else {
		path := syncFills
		src = ingest.SourceFunc(func(ctx context.Context, userID string, accounts []string, since time.Time) (map[string][]recon.Fill, error) {
			fills, err := readFills(a, path, rates)
			if err != nil {
				return nil, err
			}
			return fills.Fetch(ctx, userID, accounts, since)
		})
	}

	if syncFollow {
		stop := follow(a.hub, cmd.ErrOrStderr())
		defer stop()
	}

	jobs := service.NewJobs(a.rec, service.NewMemoryJobStore(), a.pub, a.log, syncTimeout)
	defer jobs.Close()

	jobID, err := jobs.Submit(ctx, user, src, syncAccounts, since)
	if err != nil {
		return err
	}
	job, err := jobs.Wait(ctx, jobID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(job); err != nil {
		return err
	}
	if job.Status == service.JobFailed {
		return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
	}
	return nil
}

// collectStream feeds an order stream through a live collector. Skipped
// lines are logged; a stream with no usable orders is an error.
func collectStream(ctx context.Context, cmd *cobra.Command, a *app, path string, rates ingest.CommissionRates) (*ingest.Collector, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open stream: %w", err)
		}
		defer fh.Close()
		r = fh
	}

	c := ingest.NewCollector(rates)
	added, err := ingest.ReadOrderStream(ctx, r, c)
	if err != nil {
		if c.Len() == 0 {
			return nil, err
		}
		a.log.Warn("skipped stream orders", zap.String("source", path), zap.Error(err))
	}
	a.log.Info("collected orders", zap.Int("fills", added))
	return c, nil
}

// follow prints hub events to w until the returned func is called.
func follow(hub *notify.Hub, w io.Writer) func() {
	events, unsubscribe := hub.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range events {
			fmt.Fprintf(w, "[%s] %s\n", e.Type, e.Message)
		}
	}()
	return func() {
		unsubscribe()
		<-done
	}
}
