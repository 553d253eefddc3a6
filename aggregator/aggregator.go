// Package aggregator owns every feed.Adapter the bridge runs: it starts
// and stops them and reference-counts symbol subscriptions across them.
// Adapters deliver their normalized events to their own sink directly;
// the aggregator does not forward or tag events.
package aggregator

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/coinbase-dtc/bridge/feed"
)

// Aggregator manages N feed adapters. Mutation of the adapter map and the
// subscription counts (AddExchange/RemoveExchange/SubscribeSymbol/
// UnsubscribeSymbol) takes mtx for writing; Status and TotalSubscriptions
// take it for reading.
type Aggregator struct {
	logger zerolog.Logger
	sink   feed.Sink

	mtx       sync.RWMutex
	exchanges map[string]feed.Adapter
	// subscriptions tracks how many sessions want (exchange, symbol), so
	// RemoveExchange / unsubscribe-cascade logic (owned by the session
	// layer) has a single source of truth to consult.
	subscriptions map[string]map[string]int
}

// New builds an empty aggregator. sink is stored on the aggregator but
// never called by it; events reach a sink only through each adapter.
func New(logger zerolog.Logger, sink feed.Sink) *Aggregator {
	return &Aggregator{
		logger:        logger,
		sink:          sink,
		exchanges:     make(map[string]feed.Adapter),
		subscriptions: make(map[string]map[string]int),
	}
}

// AddExchange registers adapter under its own Name() and starts it.
func (a *Aggregator) AddExchange(adapter feed.Adapter) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	name := adapter.Name()
	if _, ok := a.exchanges[name]; ok {
		return ErrExchangeAlreadyExists.Wrapf("%s", name)
	}
	a.exchanges[name] = adapter
	a.subscriptions[name] = make(map[string]int)
	adapter.Start()
	return nil
}

// RemoveExchange stops and unregisters an adapter.
func (a *Aggregator) RemoveExchange(name string) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	adapter, ok := a.exchanges[name]
	if !ok {
		return ErrExchangeNotFound.Wrapf("%s", name)
	}
	adapter.Stop()
	delete(a.exchanges, name)
	delete(a.subscriptions, name)
	return nil
}

// SubscribeSymbol subscribes symbol on exchange, or on every registered
// exchange when exchange is empty (broadcast subscribe). Reference
// counting means the adapter-level subscribe only fires on the first
// caller for a given (exchange, symbol); later callers just bump the
// count.
func (a *Aggregator) SubscribeSymbol(symbol, exchange string) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	targets := a.targetsLocked(exchange)
	if len(targets) == 0 && exchange != "" {
		return ErrExchangeNotFound.Wrapf("%s", exchange)
	}

	for _, name := range targets {
		counts := a.subscriptions[name]
		counts[symbol]++
		if counts[symbol] == 1 {
			if err := a.exchanges[name].Subscribe(symbol); err != nil {
				a.logger.Error().Err(err).Str("exchange", name).Str("symbol", symbol).Msg("subscribe failed")
			}
		}
	}
	return nil
}

// UnsubscribeSymbol decrements the reference count for (exchange, symbol)
// and only unsubscribes on the adapter when no remaining session holds
// it.
func (a *Aggregator) UnsubscribeSymbol(symbol, exchange string) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	targets := a.targetsLocked(exchange)
	for _, name := range targets {
		counts := a.subscriptions[name]
		if counts[symbol] == 0 {
			continue
		}
		counts[symbol]--
		if counts[symbol] == 0 {
			delete(counts, symbol)
			if err := a.exchanges[name].Unsubscribe(symbol); err != nil {
				a.logger.Error().Err(err).Str("exchange", name).Str("symbol", symbol).Msg("unsubscribe failed")
			}
		}
	}
	return nil
}

func (a *Aggregator) targetsLocked(exchange string) []string {
	if exchange != "" {
		if _, ok := a.exchanges[exchange]; !ok {
			return nil
		}
		return []string{exchange}
	}
	names := make([]string, 0, len(a.exchanges))
	for name := range a.exchanges {
		names = append(names, name)
	}
	return names
}

// Status reports the connection state of every registered exchange.
func (a *Aggregator) Status() map[string]feed.ConnectionState {
	a.mtx.RLock()
	defer a.mtx.RUnlock()
	out := make(map[string]feed.ConnectionState, len(a.exchanges))
	for name, adapter := range a.exchanges {
		out[name] = adapter.State()
	}
	return out
}

// TotalSubscriptions sums the distinct (exchange, symbol) pairs with at
// least one subscriber.
func (a *Aggregator) TotalSubscriptions() int {
	a.mtx.RLock()
	defer a.mtx.RUnlock()
	total := 0
	for _, counts := range a.subscriptions {
		total += len(counts)
	}
	return total
}
