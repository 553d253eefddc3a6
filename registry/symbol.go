// Package registry implements the global symbol catalog (canonical form
// to numeric id) and the per-session u16 symbol-id aliasing scheme the
// DTC wire format requires.
package registry

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SymbolInfo describes one tradable instrument known to the bridge.
type SymbolInfo struct {
	NumericID      uint32
	Canonical      string // "BTC-USD"
	Display        string
	Base           string
	Quote          string
	Exchange       string
	Active         bool
	PriceIncrement decimal.Decimal
	SizeIncrement  decimal.Decimal
}

// Normalize converts an exchange-wire symbol ("BTC-USD") to the
// slash-delimited form ("BTC/USD").
func Normalize(exchangeSymbol string) string {
	return strings.ReplaceAll(exchangeSymbol, "-", "/")
}

// ExchangeFormat converts a canonical symbol ("BTC-USD" or "BTC/USD") to
// the dash-delimited canonical wire form ("BTC-USD").
func ExchangeFormat(canonical string) string {
	return strings.ReplaceAll(canonical, "/", "-")
}

// SplitPair splits a canonical or normalized symbol into base and quote
// legs. It accepts either delimiter.
func SplitPair(symbol string) (base, quote string, ok bool) {
	for _, sep := range []string{"-", "/"} {
		if idx := strings.Index(symbol, sep); idx > 0 {
			return symbol[:idx], symbol[idx+len(sep):], true
		}
	}
	return "", "", false
}
