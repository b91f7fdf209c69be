//go:build blackbox

package blackbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func contains(s, sub string) bool { return strings.Contains(s, sub) }

// writeConfig writes a sqlite-backed config into dir and returns its path
// and the journal path.
func writeConfig(t *testing.T, dir string) (string, string) {
	t.Helper()
	dbPath := filepath.Join(dir, "journal.sqlite")
	cfg := fmt.Sprintf(`log:
  level: error
  format: console
journal:
  type: sqlite
  db_path: %s
staging:
  type: pebble
  path: %s
notify:
  type: none
contracts:
  - symbol: ES
    tick_size: 0.25
    tick_value: 12.5
`, dbPath, filepath.Join(dir, "staging"))

	path := filepath.Join(dir, "tradesync.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return path, dbPath
}

type order struct {
	id    string
	side  string
	qty   int64
	price float64
	ts    int64
}

// writeOrders writes a broker order-history export for one account.
func writeOrders(t *testing.T, path, account, symbol string, orders []order) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, `{"status": "ok", "timestamp": 0, %q: [`, account)
	for i, o := range orders {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"order_id": %q, "symbol": %q, "side": %q, "quantity": %d, "filled_quantity": %d, "price": %s, "timestamp": %d}`,
			o.id, symbol, o.side, o.qty, o.qty, f64(o.price), o.ts)
	}
	b.WriteString("]}")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
}

func f64(x float64) string {
	// stable formatting, enough precision for tick prices
	return fmt.Sprintf("%.6f", x)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}
