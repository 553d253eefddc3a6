package config

// SupportedExchanges is a lookup table of every feed.Adapter implementation
// the bridge knows how to construct, keyed by the name it is registered
// under in the aggregator.
var SupportedExchanges = map[string]struct{}{
	"COINBASE": {},
	"BINANCE":  {},
}
