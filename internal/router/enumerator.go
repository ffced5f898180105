package router

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/hazeflow/swap-engine/internal/domain"
)

// PoolFilter restricts which pools route enumeration may traverse.
type PoolFilter uint8

const (
	AllPools PoolFilter = iota
	OnlyV2
	OnlyV3
)

func (f PoolFilter) admits(pool *domain.Pool) bool {
	switch f {
	case OnlyV2:
		return pool.Type == domain.PoolTypeV2
	case OnlyV3:
		return pool.Type == domain.PoolTypeV3
	}
	return true
}

// Enumerator walks the pool graph and produces candidate routes between a
// token pair, bounded by hop count. Pools are drawn from the candidate
// pair set so intermediate hops only pass through routing bases.
type Enumerator struct {
	graph   *Graph
	bases   *BaseTokens
	maxHops int
}

func NewEnumerator(graph *Graph, bases *BaseTokens, maxHops int) *Enumerator {
	if maxHops <= 0 {
		maxHops = 3
	}
	return &Enumerator{graph: graph, bases: bases, maxHops: maxHops}
}

// Enumerate returns every distinct route from input to output within the
// hop bound. A pool appears at most once per route; distinct fee tiers of
// the same pair count as distinct pools.
func (e *Enumerator) Enumerate(input, output domain.Currency, filter PoolFilter) []*domain.Route {
	if input.Equal(output) || input.RoutingAddress() == output.RoutingAddress() {
		return nil
	}

	pairs := e.bases.CandidatePairs(input, output)
	pools := e.graph.PoolsForPairs(pairs)

	adjacency := make(map[common.Address][]*domain.Pool)
	for _, pool := range pools {
		if !filter.admits(pool) {
			continue
		}
		adjacency[pool.Token0] = append(adjacency[pool.Token0], pool)
		adjacency[pool.Token1] = append(adjacency[pool.Token1], pool)
	}

	walk := &routeWalk{
		adjacency:    adjacency,
		target:       output.RoutingAddress(),
		maxHops:      e.maxHops,
		input:        input,
		output:       output,
		usedPools:    make(map[common.Address]bool),
		visitedToken: make(map[common.Address]bool),
	}
	walk.visitedToken[input.RoutingAddress()] = true
	walk.dfs(input.RoutingAddress())
	return walk.routes
}

type routeWalk struct {
	adjacency    map[common.Address][]*domain.Pool
	target       common.Address
	maxHops      int
	input        domain.Currency
	output       domain.Currency
	usedPools    map[common.Address]bool
	visitedToken map[common.Address]bool
	pathPools    []*domain.Pool
	routes       []*domain.Route
}

func (w *routeWalk) dfs(current common.Address) {
	for _, pool := range w.adjacency[current] {
		if w.usedPools[pool.Address] {
			continue
		}
		next := pool.Other(current)

		if next == w.target {
			pools := make([]*domain.Pool, len(w.pathPools)+1)
			copy(pools, w.pathPools)
			pools[len(pools)-1] = pool
			if route, err := domain.NewRoute(pools, w.input, w.output); err == nil {
				w.routes = append(w.routes, route)
			}
			continue
		}
		if len(w.pathPools)+1 >= w.maxHops {
			continue
		}
		if w.visitedToken[next] {
			continue
		}

		w.usedPools[pool.Address] = true
		w.visitedToken[next] = true
		w.pathPools = append(w.pathPools, pool)

		w.dfs(next)

		w.pathPools = w.pathPools[:len(w.pathPools)-1]
		delete(w.visitedToken, next)
		delete(w.usedPools, pool.Address)
	}
}
