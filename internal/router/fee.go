package router

import (
	"math/big"

	"github.com/hazeflow/swap-engine/internal/domain"
)

// Price impact thresholds in basis points.
const (
	PriceImpactLow      uint16 = 100
	PriceImpactModerate uint16 = 300
	PriceImpactHigh     uint16 = 500
	PriceImpactExtreme  uint16 = 1000
)

// PriceImpactSeverity labels how hard a trade moves the pools it touches.
type PriceImpactSeverity string

const (
	SeverityNone     PriceImpactSeverity = "none"     // < 1%
	SeverityLow      PriceImpactSeverity = "low"      // 1-3%
	SeverityModerate PriceImpactSeverity = "moderate" // 3-5%
	SeverityHigh     PriceImpactSeverity = "high"     // 5-10%
	SeverityExtreme  PriceImpactSeverity = "extreme"  // > 10%
)

// Level maps the severity to a numeric tier, none=0 through extreme=4.
func (s PriceImpactSeverity) Level() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityModerate:
		return 2
	case SeverityHigh:
		return 3
	case SeverityExtreme:
		return 4
	}
	return 0
}

// GetPriceImpactSeverity buckets an impact figure into a severity.
func GetPriceImpactSeverity(priceImpactBps uint16) PriceImpactSeverity {
	switch {
	case priceImpactBps < PriceImpactLow:
		return SeverityNone
	case priceImpactBps < PriceImpactModerate:
		return SeverityLow
	case priceImpactBps < PriceImpactHigh:
		return SeverityModerate
	case priceImpactBps < PriceImpactExtreme:
		return SeverityHigh
	default:
		return SeverityExtreme
	}
}

// routeFeeFraction is the compounded LP fee fraction across a route,
// 1 - prod(1 - fee_i).
func routeFeeFraction(route *domain.Route) *big.Rat {
	kept := new(big.Rat).SetInt64(1)
	for _, pool := range route.Pools {
		hopKept := big.NewRat(int64(feeDenominatorPPM-pool.FeePPM), feeDenominatorPPM)
		kept.Mul(kept, hopKept)
	}
	return new(big.Rat).Sub(new(big.Rat).SetInt64(1), kept)
}

// TradeFeeFraction is the realized LP fee fraction of a trade, each swap's
// route fee weighted by its share of the total input.
func TradeFeeFraction(trade *domain.Trade) *big.Rat {
	totalIn := trade.InputAmount()
	if totalIn.Sign() <= 0 {
		return new(big.Rat)
	}
	totalInRat := new(big.Rat).SetInt(totalIn)

	weighted := new(big.Rat)
	for _, swap := range trade.Swaps {
		share := new(big.Rat).SetInt(swap.AmountIn)
		share.Quo(share, totalInRat)
		weighted.Add(weighted, share.Mul(share, routeFeeFraction(swap.Route)))
	}
	return weighted
}

// PriceImpact measures how far the execution price falls short of the
// pools' mid price, net of LP fees, in basis points. Favorable execution
// clamps to zero.
func PriceImpact(trade *domain.Trade) (uint16, PriceImpactSeverity) {
	mid := trade.MidPrice()
	exec := trade.ExecutionPrice()
	if mid == nil || exec == nil || mid.Sign() <= 0 {
		return 0, SeverityNone
	}

	// (mid - exec) / mid
	shortfall := new(big.Rat).Sub(mid, exec)
	shortfall.Quo(shortfall, mid)
	shortfall.Sub(shortfall, TradeFeeFraction(trade))
	if shortfall.Sign() <= 0 {
		return 0, SeverityNone
	}

	bps := new(big.Rat).Mul(shortfall, new(big.Rat).SetInt64(10_000))
	value := new(big.Int).Quo(bps.Num(), bps.Denom())
	if !value.IsUint64() || value.Uint64() > 65535 {
		return 65535, SeverityExtreme
	}
	impact := uint16(value.Uint64())
	return impact, GetPriceImpactSeverity(impact)
}
