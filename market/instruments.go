// market/instruments.go
package market

import "strings"

// Normalize maps a raw contract symbol to its root symbol. Futures
// contracts carry a month code and a year digit ("ESZ4" -> "ES"), so when
// the last character is a digit the trailing two characters are dropped.
// Anything else is returned unchanged.
func Normalize(symbol string) string {
	s := strings.TrimSpace(symbol)
	if len(s) < 2 {
		return s
	}
	last := s[len(s)-1]
	if last < '0' || last > '9' {
		return s
	}
	return s[:len(s)-2]
}
