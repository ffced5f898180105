package router

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hazeflow/swap-engine/internal/domain"
	"github.com/hazeflow/swap-engine/internal/metrics"
)

// parallelEvalThreshold is the route count above which evaluation fans out
// to goroutines.
const parallelEvalThreshold = 2

// swapPool runs one hop against a pool. tokenIn is the token entering the
// pool for exact-input, and the token that would enter for exact-output
// (amount then denominates the other side).
func swapPool(pool *domain.Pool, tokenIn common.Address, amount *big.Int, exactIn bool) (*big.Int, error) {
	if !pool.Involves(tokenIn) {
		return nil, ErrInvalidPool
	}
	zeroForOne := pool.Token0 == tokenIn
	switch pool.Type {
	case domain.PoolTypeV2:
		return SwapV2(pool, amount, zeroForOne, exactIn)
	case domain.PoolTypeV3:
		return SwapV3(pool, amount, zeroForOne, exactIn)
	}
	return nil, ErrInvalidPool
}

// EvaluateRoute simulates a whole route for the given trade type and
// returns the completed swap. Exact-input walks the hops forward;
// exact-output walks them backward.
func EvaluateRoute(route *domain.Route, tradeType domain.TradeType, amount *big.Int) (*domain.RouteSwap, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}

	if tradeType == domain.ExactInput {
		current := new(big.Int).Set(amount)
		for i, pool := range route.Pools {
			out, err := swapPool(pool, route.Path[i], current, true)
			if err != nil {
				return nil, err
			}
			current = out
		}
		if current.Sign() <= 0 {
			return nil, ErrInsufficientLiquidity
		}
		return &domain.RouteSwap{Route: route, AmountIn: new(big.Int).Set(amount), AmountOut: current}, nil
	}

	current := new(big.Int).Set(amount)
	for i := len(route.Pools) - 1; i >= 0; i-- {
		in, err := swapPool(route.Pools[i], route.Path[i], current, false)
		if err != nil {
			return nil, err
		}
		current = in
	}
	return &domain.RouteSwap{Route: route, AmountIn: current, AmountOut: new(big.Int).Set(amount)}, nil
}

// better reports whether candidate improves on best for the trade type.
// Ties keep the incumbent so the first-found route wins.
func better(best, candidate *domain.RouteSwap, tradeType domain.TradeType) bool {
	if best == nil {
		return true
	}
	if tradeType == domain.ExactInput {
		return candidate.AmountOut.Cmp(best.AmountOut) > 0
	}
	return candidate.AmountIn.Cmp(best.AmountIn) < 0
}

// BestTradeAll evaluates every candidate route, returning results parallel
// to the input. Routes that fail to simulate hold nil. Few candidates
// evaluate sequentially, larger sets fan out.
func BestTradeAll(routes []*domain.Route, tradeType domain.TradeType, amount *big.Int) ([]*domain.RouteSwap, error) {
	if len(routes) == 0 {
		return nil, ErrNoRoute
	}
	swaps := make([]*domain.RouteSwap, len(routes))
	if len(routes) <= parallelEvalThreshold {
		for i, route := range routes {
			if swap, err := EvaluateRoute(route, tradeType, amount); err == nil {
				swaps[i] = swap
			}
		}
	} else {
		var wg sync.WaitGroup
		for i, route := range routes {
			wg.Add(1)
			go func(i int, route *domain.Route) {
				defer wg.Done()
				if swap, err := EvaluateRoute(route, tradeType, amount); err == nil {
					swaps[i] = swap
				}
			}(i, route)
		}
		wg.Wait()
	}
	return swaps, nil
}

// BestTrade evaluates every candidate route and returns a trade over the
// single best one. If no route survives simulation the result is
// ErrNoRoute.
func BestTrade(routes []*domain.Route, tradeType domain.TradeType, amount *big.Int) (*domain.Trade, error) {
	start := time.Now()
	defer func() {
		metrics.RouteEvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	swaps, err := BestTradeAll(routes, tradeType, amount)
	if err != nil {
		return nil, err
	}
	var best *domain.RouteSwap
	for _, swap := range swaps {
		if swap != nil && better(best, swap, tradeType) {
			best = swap
		}
	}
	if best == nil {
		return nil, ErrNoRoute
	}
	return domain.NewTrade(tradeType, []domain.RouteSwap{*best}, amount)
}
