package registry

import "github.com/shopspring/decimal"

// DefaultSeed is the small default catalog the bridge is seeded with at
// startup, numeric ids 1-9, matching the original deployment's pairs.
func DefaultSeed() []SymbolInfo {
	seed := []struct {
		canonical      string
		priceIncrement string
		sizeIncrement  string
	}{
		{"STRK-USDC", "0.0001", "0.01"},
		{"USDC-EUR", "0.0001", "0.01"},
		{"SOL-USDC", "0.01", "0.001"},
		{"BTC-USDC", "0.01", "0.00000001"},
		{"ETH-USDC", "0.01", "0.0000001"},
		{"LTC-USDC", "0.01", "0.0001"},
		{"LINK-USDC", "0.001", "0.01"},
		{"XRP-USDC", "0.0001", "1"},
		{"ADA-USDC", "0.0001", "1"},
	}

	out := make([]SymbolInfo, 0, len(seed))
	for i, s := range seed {
		base, quote, _ := SplitPair(s.canonical)
		out = append(out, SymbolInfo{
			NumericID:      uint32(i + 1),
			Canonical:      s.canonical,
			Display:        s.canonical,
			Base:           base,
			Quote:          quote,
			Exchange:       "COINBASE",
			Active:         true,
			PriceIncrement: decimal.RequireFromString(s.priceIncrement),
			SizeIncrement:  decimal.RequireFromString(s.sizeIncrement),
		})
	}
	return out
}
