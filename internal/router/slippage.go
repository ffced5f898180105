package router

import (
	"math/big"

	"github.com/hazeflow/swap-engine/internal/domain"
)

// Auto-slippage bounds and defaults, all in basis points.
const (
	MinAutoSlippageBps   uint32 = 5    // 0.05%
	MaxAutoSlippageBps   uint32 = 2500 // 25%
	DefaultSlippageBps   uint32 = 50   // 0.50%
	DefaultSlippageL2Bps uint32 = 10   // 0.10%
)

// Gas model for a router swap: a fixed base plus a per-hop increment.
const (
	BaseSwapGas uint64 = 100_000
	PerHopGas   uint64 = 30_000
)

// fastChains are networks with cheap, quick inclusion where the tighter
// default tolerance applies.
var fastChains = map[uint64]bool{
	10:    true, // Optimism
	137:   true, // Polygon
	8453:  true, // Base
	42161: true, // Arbitrum One
}

// DefaultSlippageForChain returns the fallback tolerance when auto
// slippage has no price data to work with.
func DefaultSlippageForChain(chainID uint64) uint32 {
	if fastChains[chainID] {
		return DefaultSlippageL2Bps
	}
	return DefaultSlippageBps
}

// GasForTrade estimates execution gas from the trade's shape. Each split
// leg pays the base cost.
func GasForTrade(trade *domain.Trade) uint64 {
	if trade == nil {
		return BaseSwapGas
	}
	gas := uint64(0)
	for _, swap := range trade.Swaps {
		gas += BaseSwapGas + PerHopGas*uint64(swap.Route.Hops())
	}
	if gas == 0 {
		gas = BaseSwapGas
	}
	return gas
}

// AutoSlippageBps sizes the tolerance to the trade: the gas cost of the
// swap as a fraction of the output value, clamped to [0.05%, 25%]. Without
// usable USD figures the chain default applies.
func AutoSlippageBps(trade *domain.Trade, gasCostUSD, outputUSD *big.Rat) uint32 {
	chainID := uint64(0)
	if trade != nil && len(trade.Swaps) > 0 {
		chainID = trade.Swaps[0].Route.Input.ChainID
	}
	if gasCostUSD == nil || outputUSD == nil || gasCostUSD.Sign() <= 0 || outputUSD.Sign() <= 0 {
		return DefaultSlippageForChain(chainID)
	}

	ratio := new(big.Rat).Quo(gasCostUSD, outputUSD)
	bpsRat := ratio.Mul(ratio, new(big.Rat).SetInt64(10_000))
	bps := new(big.Int).Quo(bpsRat.Num(), bpsRat.Denom())

	switch {
	case !bps.IsUint64() || bps.Uint64() > uint64(MaxAutoSlippageBps):
		return MaxAutoSlippageBps
	case bps.Uint64() < uint64(MinAutoSlippageBps):
		return MinAutoSlippageBps
	default:
		return uint32(bps.Uint64())
	}
}
