package router

import (
	"math/big"
	"testing"

	"github.com/hazeflow/swap-engine/internal/domain"
)

func twoHopTrade(t *testing.T, amountIn int64) *domain.Trade {
	t.Helper()
	poolAB := v2Pool(1, tokenA, tokenB, 1_000_000, 1_000_000)
	poolBC := v2Pool(2, tokenB, tokenC, 1_000_000, 1_000_000)
	route := mustRoute([]*domain.Pool{poolAB, poolBC}, testToken(tokenA, "AAA"), testToken(tokenC, "CCC"))

	swap, err := EvaluateRoute(route, domain.ExactInput, big.NewInt(amountIn))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	trade, err := domain.NewTrade(domain.ExactInput, []domain.RouteSwap{*swap}, big.NewInt(amountIn))
	if err != nil {
		t.Fatalf("trade: %v", err)
	}
	return trade
}

func TestTradeFeeFractionCompounds(t *testing.T) {
	trade := twoHopTrade(t, 1000)

	// Two 0.30% hops compound to 1 - 0.997^2 = 0.005991.
	want := big.NewRat(5991, 1_000_000)
	if got := TradeFeeFraction(trade); got.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want.RatString(), got.RatString())
	}
}

func TestRouteFeeFractionMixedTiers(t *testing.T) {
	poolAB := v2Pool(1, tokenA, tokenB, 1_000_000, 1_000_000)
	poolBC := v3Pool(2, tokenB, tokenC, 500, big.NewInt(1_000_000), nil)
	route := mustRoute([]*domain.Pool{poolAB, poolBC}, testToken(tokenA, "AAA"), testToken(tokenC, "CCC"))

	// 1 - (1 - 0.003)(1 - 0.0005) = 0.0034985
	want := big.NewRat(34985, 10_000_000)
	if got := routeFeeFraction(route); got.Cmp(want) != 0 {
		t.Fatalf("expected %s, got %s", want.RatString(), got.RatString())
	}
}

func TestPriceImpactExcludesFee(t *testing.T) {
	// 1000 in against two 1M pools moves each price by about 0.1%, so the
	// net impact is about 20 bps. Gross shortfall would be near 80 bps, so
	// anything in that region means the fee was not subtracted.
	trade := twoHopTrade(t, 1000)
	impact, severity := PriceImpact(trade)
	if impact < 15 || impact > 25 {
		t.Fatalf("expected ~20 bps net impact, got %d", impact)
	}
	if severity != SeverityNone {
		t.Fatalf("expected none severity, got %s", severity)
	}
}

func TestPriceImpactLargeTrade(t *testing.T) {
	// Swapping 10% of the reserves must register well past the fee.
	pool := v2Pool(1, tokenA, tokenB, 100_000, 100_000)
	route := mustRoute([]*domain.Pool{pool}, testToken(tokenA, "AAA"), testToken(tokenB, "BBB"))
	swap, err := EvaluateRoute(route, domain.ExactInput, big.NewInt(10_000))
	if err != nil {
		t.Fatal(err)
	}
	trade, err := domain.NewTrade(domain.ExactInput, []domain.RouteSwap{*swap}, big.NewInt(10_000))
	if err != nil {
		t.Fatal(err)
	}

	impact, severity := PriceImpact(trade)
	if impact == 0 {
		t.Fatal("expected measurable impact")
	}
	// Pool impact for a 10% trade is roughly 9%, minus the 0.3% fee.
	if impact < 700 || impact > 1000 {
		t.Fatalf("impact %d bps outside expected band", impact)
	}
	if severity != SeverityHigh {
		t.Fatalf("expected high severity, got %s", severity)
	}
}

func TestSeverityLevels(t *testing.T) {
	tests := []struct {
		bps   uint16
		want  PriceImpactSeverity
		level int
	}{
		{0, SeverityNone, 0},
		{99, SeverityNone, 0},
		{100, SeverityLow, 1},
		{299, SeverityLow, 1},
		{300, SeverityModerate, 2},
		{500, SeverityHigh, 3},
		{999, SeverityHigh, 3},
		{1000, SeverityExtreme, 4},
		{65535, SeverityExtreme, 4},
	}
	for _, tt := range tests {
		got := GetPriceImpactSeverity(tt.bps)
		if got != tt.want {
			t.Fatalf("%d bps: expected %s, got %s", tt.bps, tt.want, got)
		}
		if got.Level() != tt.level {
			t.Fatalf("%d bps: expected level %d, got %d", tt.bps, tt.level, got.Level())
		}
	}
}
