package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogRegisterIdempotent(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(SymbolInfo{NumericID: 1, Canonical: "BTC-USD"}))
	require.NoError(t, c.Register(SymbolInfo{NumericID: 1, Canonical: "BTC-USD"}))

	info, ok := c.Lookup("BTC-USD")
	require.True(t, ok)
	require.Equal(t, uint32(1), info.NumericID)
}

func TestCatalogRegisterConflict(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.Register(SymbolInfo{NumericID: 1, Canonical: "BTC-USD"}))
	err := c.Register(SymbolInfo{NumericID: 2, Canonical: "BTC-USD"})
	require.Error(t, err)
}

func TestCatalogAllocateAssignsSequentialIDs(t *testing.T) {
	c := NewCatalog()
	id1 := c.Allocate("BTC-USD")
	id2 := c.Allocate("ETH-USD")
	id3 := c.Allocate("BTC-USD")
	require.NotEqual(t, id1, id2)
	require.Equal(t, id1, id3)
}

func TestDefaultSeedHasNineSymbolsStartingAtOne(t *testing.T) {
	seed := DefaultSeed()
	require.Len(t, seed, 9)
	require.Equal(t, uint32(1), seed[0].NumericID)
	require.Equal(t, uint32(9), seed[8].NumericID)
	require.Equal(t, "STRK-USDC", seed[0].Canonical)
}

func TestNormalizeAndExchangeFormatRoundtrip(t *testing.T) {
	require.Equal(t, "BTC/USD", Normalize("BTC-USD"))
	require.Equal(t, "BTC-USD", ExchangeFormat("BTC/USD"))
}

func TestSessionTableStableAcrossUnsubscribe(t *testing.T) {
	tbl := NewSessionTable()
	id1, err := tbl.IDFor("BTC-USD")
	require.NoError(t, err)
	require.Equal(t, uint16(1), id1)

	// simulate unsubscribe then resubscribe: id must not change or be reused
	id2, err := tbl.IDFor("BTC-USD")
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	otherID, err := tbl.IDFor("ETH-USD")
	require.NoError(t, err)
	require.NotEqual(t, id1, otherID)

	sym, ok := tbl.SymbolFor(id1)
	require.True(t, ok)
	require.Equal(t, "BTC-USD", sym)
}

func TestSessionTableHasDoesNotAllocate(t *testing.T) {
	tbl := NewSessionTable()
	require.False(t, tbl.Has("BTC-USD"))
	_, err := tbl.IDFor("BTC-USD")
	require.NoError(t, err)
	require.True(t, tbl.Has("BTC-USD"))
}
