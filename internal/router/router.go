package router

import (
	"math/big"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hazeflow/swap-engine/internal/config"
	"github.com/hazeflow/swap-engine/internal/domain"
	"github.com/hazeflow/swap-engine/internal/metrics"
)

// MinSplitBps is the smallest share of the trade a split leg may carry.
const MinSplitBps = 1000 // 10%

// Router ties enumeration and evaluation together into a quoting engine.
type Router struct {
	graph *Graph
	bases *BaseTokens
	enum  *Enumerator
	cfg   config.RouterConfig
}

func New(graph *Graph, bases *BaseTokens, cfg config.RouterConfig) *Router {
	return &Router{
		graph: graph,
		bases: bases,
		enum:  NewEnumerator(graph, bases, cfg.MaxHops),
		cfg:   cfg,
	}
}

func (r *Router) Graph() *Graph { return r.graph }

// Quote finds the best trade between two tokens. Shorter routes win unless
// a longer one improves the result by more than the hop preference
// threshold; a two-way split across disjoint routes is taken when it beats
// the single best route outright.
func (r *Router) Quote(input, output domain.Currency, tradeType domain.TradeType, amount *big.Int, filter PoolFilter) (*domain.Trade, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if input.Equal(output) || input.RoutingAddress() == output.RoutingAddress() {
		return nil, ErrSameToken
	}

	start := time.Now()
	defer func() {
		metrics.RouteEvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	routes := r.enum.Enumerate(input, output, filter)
	if len(routes) == 0 {
		return nil, ErrNoRoute
	}

	evaluated := r.evaluateAll(routes, tradeType, amount)
	if len(evaluated) == 0 {
		return nil, ErrNoRoute
	}

	best := r.selectWithHopPreference(evaluated, tradeType)

	if tradeType == domain.ExactInput && r.cfg.MaxSplits > 1 {
		if split := r.trySplit(evaluated, best, amount); split != nil {
			return domain.NewTrade(tradeType, split, amount)
		}
	}
	return domain.NewTrade(tradeType, []domain.RouteSwap{*best}, amount)
}

func (r *Router) evaluateAll(routes []*domain.Route, tradeType domain.TradeType, amount *big.Int) []*domain.RouteSwap {
	swaps := make([]*domain.RouteSwap, 0, len(routes))
	results, err := BestTradeAll(routes, tradeType, amount)
	if err != nil {
		return nil
	}
	for _, swap := range results {
		if swap != nil {
			swaps = append(swaps, swap)
		}
	}
	return swaps
}

// selectWithHopPreference picks the best swap, requiring a route with more
// hops than the incumbent to beat it by more than HopPreferenceBps.
func (r *Router) selectWithHopPreference(swaps []*domain.RouteSwap, tradeType domain.TradeType) *domain.RouteSwap {
	ordered := make([]*domain.RouteSwap, len(swaps))
	copy(ordered, swaps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Route.Hops() < ordered[j].Route.Hops()
	})

	pref := int64(r.cfg.HopPreferenceBps)
	var incumbent *domain.RouteSwap
	incumbentHops := 0

	for _, candidate := range ordered {
		if incumbent == nil {
			incumbent = candidate
			incumbentHops = candidate.Route.Hops()
			continue
		}
		if candidate.Route.Hops() <= incumbentHops {
			if better(incumbent, candidate, tradeType) {
				incumbent = candidate
			}
			continue
		}
		if beatsByBps(incumbent, candidate, tradeType, pref) {
			incumbent = candidate
			incumbentHops = candidate.Route.Hops()
		}
	}
	return incumbent
}

// beatsByBps reports whether candidate improves on incumbent by strictly
// more than threshold basis points.
func beatsByBps(incumbent, candidate *domain.RouteSwap, tradeType domain.TradeType, thresholdBps int64) bool {
	if tradeType == domain.ExactInput {
		// candidateOut * 10000 > incumbentOut * (10000 + threshold)
		lhs := new(big.Int).Mul(candidate.AmountOut, big.NewInt(10_000))
		rhs := new(big.Int).Mul(incumbent.AmountOut, big.NewInt(10_000+thresholdBps))
		return lhs.Cmp(rhs) > 0
	}
	// candidateIn * (10000 + threshold) < incumbentIn * 10000
	lhs := new(big.Int).Mul(candidate.AmountIn, big.NewInt(10_000+thresholdBps))
	rhs := new(big.Int).Mul(incumbent.AmountIn, big.NewInt(10_000))
	return lhs.Cmp(rhs) < 0
}

// trySplit searches for a two-way split of an exact-input trade across the
// best route and the best pool-disjoint alternative. Returns nil when no
// split beats the single route.
func (r *Router) trySplit(swaps []*domain.RouteSwap, best *domain.RouteSwap, amount *big.Int) []domain.RouteSwap {
	alt := bestDisjoint(swaps, best)
	if alt == nil {
		return nil
	}

	// Ternary search over the primary route's share in bps. The combined
	// output is unimodal in the split point.
	lo, hi := int64(MinSplitBps), int64(10_000-MinSplitBps)
	for hi-lo > 50 {
		m1 := lo + (hi-lo)/3
		m2 := hi - (hi-lo)/3
		if splitOutput(best.Route, alt.Route, amount, m1).Cmp(splitOutput(best.Route, alt.Route, amount, m2)) < 0 {
			lo = m1
		} else {
			hi = m2
		}
	}
	shareBps := (lo + hi) / 2

	amountA := new(big.Int).Mul(amount, big.NewInt(shareBps))
	amountA.Quo(amountA, big.NewInt(10_000))
	amountB := new(big.Int).Sub(amount, amountA)
	if amountA.Sign() <= 0 || amountB.Sign() <= 0 {
		return nil
	}

	swapA, errA := EvaluateRoute(best.Route, domain.ExactInput, amountA)
	swapB, errB := EvaluateRoute(alt.Route, domain.ExactInput, amountB)
	if errA != nil || errB != nil {
		return nil
	}

	combined := new(big.Int).Add(swapA.AmountOut, swapB.AmountOut)
	if combined.Cmp(best.AmountOut) <= 0 {
		return nil
	}
	log.Debug().
		Int64("share_bps", shareBps).
		Str("combined_out", combined.String()).
		Str("single_out", best.AmountOut.String()).
		Msg("split route improves quote")
	return []domain.RouteSwap{*swapA, *swapB}
}

func splitOutput(primary, secondary *domain.Route, amount *big.Int, shareBps int64) *big.Int {
	amountA := new(big.Int).Mul(amount, big.NewInt(shareBps))
	amountA.Quo(amountA, big.NewInt(10_000))
	amountB := new(big.Int).Sub(amount, amountA)

	total := new(big.Int)
	if swap, err := EvaluateRoute(primary, domain.ExactInput, amountA); err == nil {
		total.Add(total, swap.AmountOut)
	}
	if swap, err := EvaluateRoute(secondary, domain.ExactInput, amountB); err == nil {
		total.Add(total, swap.AmountOut)
	}
	return total
}

// bestDisjoint finds the strongest swap sharing no pool with base.
func bestDisjoint(swaps []*domain.RouteSwap, base *domain.RouteSwap) *domain.RouteSwap {
	used := make(map[string]bool, len(base.Route.Pools))
	for _, p := range base.Route.Pools {
		used[p.Address.Hex()] = true
	}
	var pick *domain.RouteSwap
	for _, swap := range swaps {
		if swap == base {
			continue
		}
		disjoint := true
		for _, p := range swap.Route.Pools {
			if used[p.Address.Hex()] {
				disjoint = false
				break
			}
		}
		if !disjoint {
			continue
		}
		if pick == nil || swap.AmountOut.Cmp(pick.AmountOut) > 0 {
			pick = swap
		}
	}
	return pick
}
