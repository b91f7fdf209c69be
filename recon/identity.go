package recon

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// TradeNamespace is the UUIDv5 namespace for trade ids. Changing it
// changes every id ever written, so it is fixed.
var TradeNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// TradeID derives the id of a match from the fields that identify it.
// The same match always hashes to the same id, which is what lets the
// journal ignore re-recorded trades.
func TradeID(userID, accountID, instrument, entryOrderID, exitOrderID string, quantity int64) string {
	key := strings.Join([]string{
		userID,
		accountID,
		instrument,
		entryOrderID,
		exitOrderID,
		strconv.FormatInt(quantity, 10),
	}, "|")
	return uuid.NewSHA1(TradeNamespace, []byte(key)).String()
}
