package router

import (
	"context"
	"math/big"

	"github.com/hazeflow/swap-engine/internal/domain"
)

// GasPriceSource supplies the chain's current gas price. ethclient
// satisfies it.
type GasPriceSource interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// USDPricer values token amounts in USD by quoting them into a per-chain
// reference stablecoin over the same pool graph trades route through. A nil
// pricer, a chain without a stablecoin, or a failed conversion all yield
// nil, which callers treat as "no price data".
type USDPricer struct {
	router  *Router
	gas     GasPriceSource
	natives map[uint64]domain.Currency
	stables map[uint64]domain.Currency
}

func NewUSDPricer(rt *Router, gas GasPriceSource, natives, stables map[uint64]domain.Currency) *USDPricer {
	return &USDPricer{
		router:  rt,
		gas:     gas,
		natives: natives,
		stables: stables,
	}
}

// TokenValueUSD converts amount of cur to USD through the chain's reference
// stablecoin. Stablecoin amounts convert directly.
func (p *USDPricer) TokenValueUSD(cur domain.Currency, amount *big.Int) *big.Rat {
	if p == nil || amount == nil || amount.Sign() <= 0 {
		return nil
	}
	stable, ok := p.stables[cur.ChainID]
	if !ok {
		return nil
	}
	if stable.Equal(cur) || stable.Address == cur.RoutingAddress() {
		return ratFromUnits(amount, stable.Decimals)
	}
	trade, err := p.router.Quote(cur, stable, domain.ExactInput, amount, AllPools)
	if err != nil {
		return nil
	}
	return ratFromUnits(trade.OutputAmount(), stable.Decimals)
}

// GasCostUSD prices gasUnits of execution at the suggested gas price, in
// the chain's native asset, converted to USD.
func (p *USDPricer) GasCostUSD(ctx context.Context, chainID uint64, gasUnits uint64) *big.Rat {
	if p == nil || p.gas == nil {
		return nil
	}
	native, ok := p.natives[chainID]
	if !ok {
		return nil
	}
	price, err := p.gas.SuggestGasPrice(ctx)
	if err != nil || price == nil || price.Sign() <= 0 {
		return nil
	}
	wei := new(big.Int).Mul(price, new(big.Int).SetUint64(gasUnits))
	return p.TokenValueUSD(native, wei)
}

func ratFromUnits(amount *big.Int, decimals uint8) *big.Rat {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetFrac(new(big.Int).Set(amount), scale)
}
