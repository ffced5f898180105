package domain

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type TradeType uint8

const (
	ExactInput TradeType = iota
	ExactOutput
)

func (t TradeType) String() string {
	if t == ExactOutput {
		return "EXACT_OUTPUT"
	}
	return "EXACT_INPUT"
}

var (
	ErrEmptyRoute       = errors.New("route has no pools")
	ErrRouteDisjoint    = errors.New("adjacent pools share no connecting token")
	ErrRoutePoolReuse   = errors.New("route reuses a pool")
	ErrRouteChainMix    = errors.New("route mixes chain ids")
	ErrTradeNoSwaps     = errors.New("trade has no swaps")
	ErrTradeAmountSplit = errors.New("swap amounts do not partition the trade total")
)

// Route is an ordered sequence of pools connecting an input token to an
// output token. Path is the token path: Path[i] and Path[i+1] are the two
// sides of Pools[i].
type Route struct {
	Pools  []*Pool
	Path   []common.Address
	Input  Currency
	Output Currency
}

// NewRoute validates pool adjacency and builds the token path. The same pool
// may not appear twice.
func NewRoute(pools []*Pool, input, output Currency) (*Route, error) {
	if len(pools) == 0 {
		return nil, ErrEmptyRoute
	}
	chainID := pools[0].ChainID
	path := make([]common.Address, 0, len(pools)+1)
	current := input.RoutingAddress()
	path = append(path, current)

	seen := make(map[common.Address]struct{}, len(pools))
	for _, p := range pools {
		if p.ChainID != chainID {
			return nil, ErrRouteChainMix
		}
		if _, dup := seen[p.Address]; dup {
			return nil, ErrRoutePoolReuse
		}
		seen[p.Address] = struct{}{}
		if !p.Involves(current) {
			return nil, ErrRouteDisjoint
		}
		current = p.Other(current)
		path = append(path, current)
	}
	if current != output.RoutingAddress() {
		return nil, ErrRouteDisjoint
	}
	return &Route{Pools: pools, Path: path, Input: input, Output: output}, nil
}

// Hops returns the number of pools traversed.
func (r *Route) Hops() int {
	return len(r.Pools)
}

// MidPrice is the route's spot price before the trade, output per input, as
// an exact rational: the product of each pool's mid price along the path.
func (r *Route) MidPrice() *big.Rat {
	price := new(big.Rat).SetInt64(1)
	for i, pool := range r.Pools {
		price.Mul(price, poolMidPrice(pool, r.Path[i]))
	}
	return price
}

// x96Squared is 2^192, the denominator of a squared Q64.96 price.
var x96Squared = new(big.Int).Lsh(big.NewInt(1), 192)

// poolMidPrice returns the pool's spot price quoted as "output token per one
// input token" for a swap entering with tokenIn.
func poolMidPrice(pool *Pool, tokenIn common.Address) *big.Rat {
	switch pool.Type {
	case PoolTypeV2:
		rIn := pool.ReserveOf(tokenIn)
		rOut := pool.ReserveOf(pool.Other(tokenIn))
		if rIn == nil || rOut == nil || rIn.Sign() == 0 {
			return new(big.Rat)
		}
		return new(big.Rat).SetFrac(new(big.Int).Set(rOut), new(big.Int).Set(rIn))
	case PoolTypeV3:
		if pool.V3 == nil || pool.V3.SqrtPriceX96 == nil || pool.V3.SqrtPriceX96.Sign() == 0 {
			return new(big.Rat)
		}
		sq := new(big.Int).Mul(pool.V3.SqrtPriceX96, pool.V3.SqrtPriceX96)
		// price of token1 in units of token0 is sqrtP^2 / 2^192
		if tokenIn == pool.Token0 {
			return new(big.Rat).SetFrac(sq, new(big.Int).Set(x96Squared))
		}
		return new(big.Rat).SetFrac(new(big.Int).Set(x96Squared), sq)
	default:
		return new(big.Rat)
	}
}

// RouteSwap is one route of a trade together with the amounts flowing
// through it.
type RouteSwap struct {
	Route     *Route
	AmountIn  *big.Int
	AmountOut *big.Int
}

// Trade is one or more route swaps that together execute a single swap of
// the input currency for the output currency.
type Trade struct {
	Type  TradeType
	Swaps []RouteSwap

	// GasEstimateUSD is set when the trade came from the remote quoting
	// service; zero otherwise.
	GasEstimateUSD *big.Rat
}

// NewTrade validates that the per-swap amounts on the specified side sum to
// the given total.
func NewTrade(tradeType TradeType, swaps []RouteSwap, specifiedTotal *big.Int) (*Trade, error) {
	if len(swaps) == 0 {
		return nil, ErrTradeNoSwaps
	}
	sum := new(big.Int)
	for _, s := range swaps {
		if tradeType == ExactInput {
			sum.Add(sum, s.AmountIn)
		} else {
			sum.Add(sum, s.AmountOut)
		}
	}
	if specifiedTotal != nil && sum.Cmp(specifiedTotal) != 0 {
		return nil, ErrTradeAmountSplit
	}
	return &Trade{Type: tradeType, Swaps: swaps}, nil
}

// InputCurrency returns the trade's input currency.
func (t *Trade) InputCurrency() Currency {
	return t.Swaps[0].Route.Input
}

// OutputCurrency returns the trade's output currency.
func (t *Trade) OutputCurrency() Currency {
	return t.Swaps[0].Route.Output
}

// InputAmount is the total input across all routes.
func (t *Trade) InputAmount() *big.Int {
	total := new(big.Int)
	for _, s := range t.Swaps {
		total.Add(total, s.AmountIn)
	}
	return total
}

// OutputAmount is the total output across all routes.
func (t *Trade) OutputAmount() *big.Int {
	total := new(big.Int)
	for _, s := range t.Swaps {
		total.Add(total, s.AmountOut)
	}
	return total
}

// ExecutionPrice is the realized price of the whole trade, output per input.
func (t *Trade) ExecutionPrice() *big.Rat {
	in := t.InputAmount()
	if in.Sign() == 0 {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac(t.OutputAmount(), in)
}

// MidPrice is the pre-trade spot price, weighted by each route's share of
// the total input.
func (t *Trade) MidPrice() *big.Rat {
	totalIn := t.InputAmount()
	if totalIn.Sign() == 0 {
		return new(big.Rat)
	}
	acc := new(big.Rat)
	for _, s := range t.Swaps {
		w := new(big.Rat).SetFrac(new(big.Int).Set(s.AmountIn), new(big.Int).Set(totalIn))
		acc.Add(acc, w.Mul(w, s.Route.MidPrice()))
	}
	return acc
}

// MaxHops returns the hop count of the longest route in the trade.
func (t *Trade) MaxHops() int {
	max := 0
	for _, s := range t.Swaps {
		if h := s.Route.Hops(); h > max {
			max = h
		}
	}
	return max
}

const bpsDenominator = 10_000

// MinimumAmountOut is the least output acceptable under the slippage
// tolerance: amountOut * (10000 - bps) / 10000. Meaningful for EXACT_INPUT
// trades; for EXACT_OUTPUT the output is fixed and is returned unchanged.
func (t *Trade) MinimumAmountOut(slippageBps uint32) *big.Int {
	out := t.OutputAmount()
	if t.Type == ExactOutput || slippageBps == 0 {
		return out
	}
	if slippageBps >= bpsDenominator {
		return new(big.Int)
	}
	out.Mul(out, big.NewInt(int64(bpsDenominator-slippageBps)))
	return out.Div(out, big.NewInt(bpsDenominator))
}

// MaximumAmountIn is the most input acceptable under the slippage tolerance:
// amountIn * 10000 / (10000 - bps). Dividing by (1 - slippage) rather than
// multiplying by (1 + slippage) matches the router contracts' bound.
func (t *Trade) MaximumAmountIn(slippageBps uint32) *big.Int {
	in := t.InputAmount()
	if t.Type == ExactInput || slippageBps == 0 {
		return in
	}
	if slippageBps >= bpsDenominator {
		return in
	}
	in.Mul(in, big.NewInt(bpsDenominator))
	return in.Div(in, big.NewInt(int64(bpsDenominator-slippageBps)))
}

// PureV2 reports whether every pool in the trade is a V2 pair.
func (t *Trade) PureV2() bool {
	return t.pureType(PoolTypeV2)
}

// PureV3 reports whether every pool in the trade is a V3 pool.
func (t *Trade) PureV3() bool {
	return t.pureType(PoolTypeV3)
}

func (t *Trade) pureType(pt PoolType) bool {
	for _, s := range t.Swaps {
		for _, p := range s.Route.Pools {
			if p.Type != pt {
				return false
			}
		}
	}
	return true
}
