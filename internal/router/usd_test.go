package router

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/hazeflow/swap-engine/internal/domain"
)

type fixedGasPrice struct {
	price *big.Int
	err   error
}

func (f fixedGasPrice) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return f.price, f.err
}

func newTestPricer(gas GasPriceSource) *USDPricer {
	// 1:1 pool between the native wrapper and the stable; 0.30% fee applies.
	rt := newTestRouter(v2Pool(1, tokenA, tokenB, 1_000_000, 1_000_000))
	natives := map[uint64]domain.Currency{
		testChainID: testToken(tokenA, "WETH"),
	}
	stables := map[uint64]domain.Currency{
		testChainID: domain.NewToken(testChainID, tokenB, 6, "USDC"),
	}
	return NewUSDPricer(rt, gas, natives, stables)
}

func TestTokenValueUSDStableDirect(t *testing.T) {
	p := newTestPricer(nil)
	usdc := domain.NewToken(testChainID, tokenB, 6, "USDC")

	got := p.TokenValueUSD(usdc, big.NewInt(2_500_000))
	if got == nil || got.Cmp(big.NewRat(5, 2)) != 0 {
		t.Fatalf("TokenValueUSD(stable) = %v, want 5/2", got)
	}
}

func TestTokenValueUSDViaRoute(t *testing.T) {
	p := newTestPricer(nil)

	// 1000 in, 1:1 reserves of 1e6: out = floor(1000*997*1e6 / (1e9 + 997000)) = 996.
	got := p.TokenValueUSD(testToken(tokenA, "WETH"), big.NewInt(1000))
	want := big.NewRat(996, 1_000_000)
	if got == nil || got.Cmp(want) != 0 {
		t.Fatalf("TokenValueUSD(route) = %v, want %s", got, want.RatString())
	}
}

func TestTokenValueUSDNoData(t *testing.T) {
	p := newTestPricer(nil)

	foreign := domain.NewToken(8453, tokenA, 18, "WETH")
	if got := p.TokenValueUSD(foreign, big.NewInt(1000)); got != nil {
		t.Fatalf("chain without a stable should price nil, got %v", got)
	}
	if got := p.TokenValueUSD(testToken(tokenA, "WETH"), nil); got != nil {
		t.Fatalf("nil amount should price nil, got %v", got)
	}
	if got := p.TokenValueUSD(testToken(tokenD, "DDD"), big.NewInt(1000)); got != nil {
		t.Fatalf("unroutable token should price nil, got %v", got)
	}

	var nilPricer *USDPricer
	if got := nilPricer.TokenValueUSD(testToken(tokenA, "WETH"), big.NewInt(1000)); got != nil {
		t.Fatalf("nil pricer should price nil, got %v", got)
	}
}

func TestGasCostUSD(t *testing.T) {
	p := newTestPricer(fixedGasPrice{price: big.NewInt(1)})

	// 1000 gas at price 1 is 1000 wei of the native wrapper.
	got := p.GasCostUSD(context.Background(), testChainID, 1000)
	want := big.NewRat(996, 1_000_000)
	if got == nil || got.Cmp(want) != 0 {
		t.Fatalf("GasCostUSD = %v, want %s", got, want.RatString())
	}
}

func TestGasCostUSDUnavailable(t *testing.T) {
	if got := newTestPricer(nil).GasCostUSD(context.Background(), testChainID, 1000); got != nil {
		t.Fatalf("no gas source should price nil, got %v", got)
	}
	failing := newTestPricer(fixedGasPrice{err: errors.New("rpc down")})
	if got := failing.GasCostUSD(context.Background(), testChainID, 1000); got != nil {
		t.Fatalf("gas price error should price nil, got %v", got)
	}
	other := newTestPricer(fixedGasPrice{price: big.NewInt(1)})
	if got := other.GasCostUSD(context.Background(), 8453, 1000); got != nil {
		t.Fatalf("unknown chain should price nil, got %v", got)
	}
}
