package remote

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hazeflow/swap-engine/internal/domain"
)

// QuoteRequest describes one quote fetch against the routing service.
type QuoteRequest struct {
	TokenIn     domain.Currency
	TokenOut    domain.Currency
	Amount      *big.Int
	TradeType   domain.TradeType
	SlippageBps uint32
}

// Quote is a reconciled remote quote: the trade rebuilt from the service's
// route description plus its execution metadata.
type Quote struct {
	Trade             *domain.Trade
	BlockNumber       uint64
	GasUseEstimate    uint64
	GasUseEstimateUSD *big.Rat
	RouteString       string
}

// Wire format of the routing service.

type tokenRef struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals,string"`
	Symbol   string `json:"symbol"`
}

type reserveRef struct {
	Token    tokenRef `json:"token"`
	Quotient string   `json:"quotient"`
}

type routePool struct {
	Type     string   `json:"type"`
	Address  string   `json:"address"`
	TokenIn  tokenRef `json:"tokenIn"`
	TokenOut tokenRef `json:"tokenOut"`
	Fee      string   `json:"fee"`

	// V3 fields.
	SqrtRatioX96 string `json:"sqrtRatioX96"`
	Liquidity    string `json:"liquidity"`
	TickCurrent  string `json:"tickCurrent"`

	// V2 fields.
	Reserve0 *reserveRef `json:"reserve0"`
	Reserve1 *reserveRef `json:"reserve1"`

	// Set on the first and last pool of each leg.
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`
}

type quoteResponse struct {
	BlockNumber       string        `json:"blockNumber"`
	Amount            string        `json:"amount"`
	Quote             string        `json:"quote"`
	QuoteGasAdjusted  string        `json:"quoteGasAdjusted"`
	GasUseEstimate    string        `json:"gasUseEstimate"`
	GasUseEstimateUSD string        `json:"gasUseEstimateUSD"`
	Route             [][]routePool `json:"route"`
	RouteString       string        `json:"routeString"`
}

func parseBig(s string) *big.Int {
	if s == "" {
		return nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil
	}
	return v
}

// parseRat reads a decimal string like "1.2345" into an exact rational.
func parseRat(s string) *big.Rat {
	if s == "" {
		return nil
	}
	v, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil
	}
	return v
}

// toPool rebuilds a domain pool from one wire pool.
func (p *routePool) toPool(chainID uint64) (*domain.Pool, error) {
	tokenIn := common.HexToAddress(p.TokenIn.Address)
	tokenOut := common.HexToAddress(p.TokenOut.Address)
	token0, token1 := domain.SortTokens(tokenIn, tokenOut)

	pool := &domain.Pool{
		Address: common.HexToAddress(p.Address),
		ChainID: chainID,
		Token0:  token0,
		Token1:  token1,
	}

	fee := parseBig(p.Fee)
	if fee != nil && fee.IsUint64() {
		pool.FeePPM = uint32(fee.Uint64())
	}

	switch strings.ToLower(p.Type) {
	case "v2-pool":
		pool.Type = domain.PoolTypeV2
		if pool.FeePPM == 0 {
			pool.FeePPM = domain.V2FeePPM
		}
		if p.Reserve0 == nil || p.Reserve1 == nil {
			return nil, ErrMalformedRoute
		}
		pool.V2 = &domain.V2State{
			Reserve0: parseBig(p.Reserve0.Quotient),
			Reserve1: parseBig(p.Reserve1.Quotient),
		}
		if pool.V2.Reserve0 == nil || pool.V2.Reserve1 == nil {
			return nil, ErrMalformedRoute
		}
	case "v3-pool":
		pool.Type = domain.PoolTypeV3
		sqrtPrice := parseBig(p.SqrtRatioX96)
		liquidity := parseBig(p.Liquidity)
		tick := parseBig(p.TickCurrent)
		if sqrtPrice == nil || liquidity == nil || tick == nil {
			return nil, ErrMalformedRoute
		}
		pool.V3 = &domain.V3State{
			SqrtPriceX96: sqrtPrice,
			Liquidity:    liquidity,
			Tick:         int32(tick.Int64()),
		}
	default:
		return nil, ErrMalformedRoute
	}
	return pool, nil
}

// toTrade rebuilds the full trade from a response. Each leg becomes one
// route swap; leg amounts come from the first pool's amountIn and the last
// pool's amountOut.
func (r *quoteResponse) toTrade(req QuoteRequest) (*domain.Trade, error) {
	if len(r.Route) == 0 {
		return nil, ErrMalformedRoute
	}
	chainID := req.TokenIn.ChainID

	swaps := make([]domain.RouteSwap, 0, len(r.Route))
	for _, leg := range r.Route {
		if len(leg) == 0 {
			return nil, ErrMalformedRoute
		}
		pools := make([]*domain.Pool, 0, len(leg))
		for i := range leg {
			pool, err := leg[i].toPool(chainID)
			if err != nil {
				return nil, err
			}
			pools = append(pools, pool)
		}
		route, err := domain.NewRoute(pools, req.TokenIn, req.TokenOut)
		if err != nil {
			return nil, err
		}
		amountIn := parseBig(leg[0].AmountIn)
		amountOut := parseBig(leg[len(leg)-1].AmountOut)
		if amountIn == nil || amountOut == nil {
			return nil, ErrMalformedRoute
		}
		swaps = append(swaps, domain.RouteSwap{Route: route, AmountIn: amountIn, AmountOut: amountOut})
	}

	trade, err := domain.NewTrade(req.TradeType, swaps, nil)
	if err != nil {
		return nil, err
	}
	trade.GasEstimateUSD = parseRat(r.GasUseEstimateUSD)
	return trade, nil
}
