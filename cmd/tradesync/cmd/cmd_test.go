package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/rustyeddy/tradesync/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and stderr
// together.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, errOut, err := executeWithInput(t, "", args...)
	return out + errOut, err
}

// executeWithInput runs the root command with stdin set to input. Flag
// variables outlive a run, so they are reset first.
func executeWithInput(t *testing.T, input string, args ...string) (string, string, error) {
	t.Helper()

	cfgFile, userID = "", ""
	reconcileFills, syncFills, syncSince = "", "", ""
	reconcileRates, syncRates = map[string]string{}, map[string]string{}
	syncAccounts = nil
	syncStream, syncFollow = false, false
	stageOrders, stageProcess = "", false
	journalUTC = false

	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Journal.DBPath = filepath.Join(dir, "journal.sqlite")
	cfg.Staging = config.StagingConfig{Type: "pebble", Path: filepath.Join(dir, "staging")}
	cfg.Notify = config.NotifyConfig{Type: "none"}

	path := filepath.Join(dir, "tradesync.yaml")
	require.NoError(t, cfg.SaveToFile(path))
	return path
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// 2024-06-03 16:00:00 UTC and one minute later.
const roundTripOrders = `{
  "status": "ok",
  "timestamp": 1717430500,
  "A1": [
    {"order_id": "101", "symbol": "ESM4", "side": "B", "status": "Filled",
     "quantity": 2, "filled_quantity": 2, "price": 5000, "timestamp": 1717430400},
    {"order_id": "102", "symbol": "ESM4", "side": "S", "status": "Filled",
     "quantity": 2, "filled_quantity": 2, "price": 5001, "timestamp": 1717430460},
    {"order_id": "103", "symbol": "ESM4", "side": "B", "status": "Cancelled",
     "quantity": 1, "filled_quantity": 0, "price": 4990, "timestamp": 1717430470}
  ]
}`

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tradesync version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated.yaml")

	out, err := execute(t, "config", "init", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")
	assert.FileExists(t, path)

	out, err = execute(t, "config", "validate", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "Journal: sqlite")
	assert.Contains(t, out, "Staging: memory")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	path := writeFile(t, "bad.yaml", "journal:\n  type: nosuch\n")
	_, err := execute(t, "config", "validate", "--file", path)
	assert.Error(t, err)
}

func TestReconcileIsIdempotent(t *testing.T) {
	cfg := writeConfig(t)
	orders := writeFile(t, "orders.json", roundTripOrders)

	out, err := execute(t, "reconcile", "-c", cfg, "-u", "u1", "-f", orders, "--rate", "ES=2")
	require.NoError(t, err)
	assert.Contains(t, out, "** Trade: ES Long")
	assert.Contains(t, out, ":ORDERS: 101 -> 102")
	assert.Contains(t, out, "- flat")
	assert.Contains(t, out, "1 trades (1 new), 0 open positions, net P/L 92.00")

	out, err = execute(t, "reconcile", "-c", cfg, "-u", "u1", "-f", orders)
	require.NoError(t, err)
	assert.Contains(t, out, "1 trades (0 new)")

	out, err = execute(t, "journal", "day", "2024-06-03", "--utc", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "** Trade: ES Long")
	assert.Contains(t, out, "1 trades, 1 wins, 0 losses")

	out, err = execute(t, "journal", "day", "2024-06-04", "--utc", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "no trades closed on 2024-06-04")
}

func TestReconcileNeedsUser(t *testing.T) {
	t.Setenv(envUser, "")
	cfg := writeConfig(t)
	orders := writeFile(t, "orders.json", roundTripOrders)

	_, err := execute(t, "reconcile", "-c", cfg, "-f", orders)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no user id")
}

func TestReconcileRejectsUnreadableFile(t *testing.T) {
	cfg := writeConfig(t)
	orders := writeFile(t, "orders.json", "[not an object")

	_, err := execute(t, "reconcile", "-c", cfg, "-u", "u1", "-f", orders)
	assert.Error(t, err)
}

func TestJournalSpecAndOpen(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "journal", "spec", "ZNU4", "0.015625", "15.625", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ ZN tick size 0.015625, tick value 15.625")

	_, err = execute(t, "journal", "spec", "ZN", "0", "15.625", "-c", cfg)
	assert.Error(t, err)

	out, err = execute(t, "journal", "open", "-c", cfg, "-u", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "- flat")

	_, err = execute(t, "journal", "trade", "missing", "-c", cfg)
	assert.Error(t, err)
}

func TestSyncRunsJob(t *testing.T) {
	cfg := writeConfig(t)
	orders := writeFile(t, "orders.json", `{
  "A1": [{"order_id": "1", "symbol": "NQM4", "side": "B", "filled_quantity": 1, "price": 18000, "timestamp": 1717430400}],
  "B2": [{"order_id": "2", "symbol": "NQM4", "side": "S", "filled_quantity": 1, "price": 18000, "timestamp": 1717430400}]
}`)

	out, err := execute(t, "sync", "-c", cfg, "-u", "u1", "-f", orders, "--account", "A1")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "completed"`)
	assert.Contains(t, out, `"open_positions_count": 1`)

	out, err = execute(t, "journal", "open", "-c", cfg, "-u", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "| A1 | NQ | Long | 1 |")
	assert.NotContains(t, out, "B2")
}

func TestSyncStreamFollow(t *testing.T) {
	cfg := writeConfig(t)
	stream := strings.Join([]string{
		`{"order_id": "11", "account_id": "L1", "symbol": "ESM4", "side": "B", "filled_quantity": 1, "price": 5000, "timestamp": 1717430400}`,
		`{"order_id": "12", "account_id": "L1", "symbol": "ESM4", "side": "S", "filled_quantity": 1, "price": 5002, "timestamp": 1717430460}`,
		`{"order_id": "12", "account_id": "L1", "symbol": "ESM4", "side": "S", "filled_quantity": 1, "price": 5002, "timestamp": 1717430460}`,
		`garbage`,
	}, "\n")

	out, errOut, err := executeWithInput(t, stream,
		"sync", "-c", cfg, "-u", "u1", "--stream", "--fills", "-", "--follow")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "completed"`)
	assert.Contains(t, out, `"trades_count": 1`)
	assert.Contains(t, errOut, "[trades_processed] processed 1 trades and found 0 open positions")
	assert.Contains(t, errOut, "[complete]")

	out, err = execute(t, "journal", "day", "2024-06-03", "--utc", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, ":ORDERS: 11 -> 12")
}

func TestSyncStreamWithoutOrders(t *testing.T) {
	cfg := writeConfig(t)
	_, _, err := executeWithInput(t, "garbage\n", "sync", "-c", cfg, "-u", "u1", "--stream", "--fills", "-")
	assert.Error(t, err)
}

func TestSyncFailedSource(t *testing.T) {
	cfg := writeConfig(t)
	out, err := execute(t, "sync", "-c", cfg, "-u", "u1", "--fills", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, out, `"status": "failed"`)
}

func TestStageLifecycle(t *testing.T) {
	cfg := writeConfig(t)
	orders := writeFile(t, "manual.json", `[
  {"AccountId": "M1", "OrderId": "m1", "OrderState": "Filled", "OrderAction": "BUY", "Quantity": 1,
   "AverageFilledPrice": 5000, "Time": "2024-06-03T16:00:00Z", "Instrument": {"Symbol": "MESM4"}},
  {"AccountId": "M1", "OrderId": "m2", "OrderState": "Filled", "OrderAction": "SELL", "Quantity": 1,
   "AverageFilledPrice": 5002, "Time": "2024-06-03T16:05:00Z", "Instrument": {"Symbol": "MESM4"}},
  {"AccountId": "M1", "OrderId": "m3", "OrderState": "Cancelled", "OrderAction": "BUY", "Quantity": 1,
   "AverageFilledPrice": 0, "Time": "2024-06-03T16:06:00Z", "Instrument": {"Symbol": "MESM4"}}
]`)

	out, err := execute(t, "stage", "add", "-c", cfg, "-u", "u1", "--orders", orders)
	require.NoError(t, err)
	m := regexp.MustCompile(`staged batch (\S+) \(3 orders\)`).FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	batchID := m[1]

	out, err = execute(t, "stage", "list", "-c", cfg, "-u", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, batchID)
	assert.Contains(t, out, "pending")

	out, err = execute(t, "stage", "process", batchID, "-c", cfg, "-u", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "** Trade: MES Long")
	assert.Contains(t, out, ":REALIZED_PL: 10.00")
	assert.Contains(t, out, "1 trades (1 new), 0 open positions")

	out, err = execute(t, "stage", "list", "-c", cfg, "-u", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")

	out, err = execute(t, "stage", "delete", batchID, "-c", cfg, "-u", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted batch "+batchID)

	out, err = execute(t, "stage", "list", "-c", cfg, "-u", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "no staged batches")

	_, err = execute(t, "stage", "process", batchID, "-c", cfg, "-u", "u1")
	assert.Error(t, err)
}
