package router

import (
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hazeflow/swap-engine/internal/domain"
	"github.com/hazeflow/swap-engine/internal/metrics"
)

// MaxPoolsPerPair limits pools per token pair for faster routing
const MaxPoolsPerPair = 5

type adjMap = map[common.Address]map[common.Address][]*domain.Pool
type poolsMap = map[common.Address]*domain.Pool

// graphSnapshot holds an immutable view of graph data for lock-free reads.
// Adjacency lists contain only ready pools, sorted by output liquidity.
type graphSnapshot struct {
	adj   adjMap
	pools poolsMap
}

// Graph is the token routing graph. Writes take the mutex and rebuild an
// immutable snapshot; reads load the snapshot atomically and never block.
type Graph struct {
	mu sync.Mutex

	snapshot atomic.Value // *graphSnapshot

	adj   adjMap
	pools poolsMap

	poolCount      atomic.Int64
	readyPoolCount atomic.Int64
}

func NewGraph() *Graph {
	g := &Graph{
		adj:   make(adjMap),
		pools: make(poolsMap),
	}
	g.mu.Lock()
	g.rebuildSnapshot()
	g.mu.Unlock()
	return g
}

// rebuildSnapshot creates a new immutable snapshot with pre-filtered ready
// pools. Must be called with mu held.
func (g *Graph) rebuildSnapshot() {
	metrics.GraphSnapshotRebuilds.Inc()

	newAdj := make(adjMap, len(g.adj))
	newPools := make(poolsMap, len(g.pools))
	readyCount := int64(0)

	for addr, pool := range g.pools {
		newPools[addr] = pool
		if pool.Ready() {
			readyCount++
		}
	}

	for tokenA, neighbors := range g.adj {
		newNeighbors := make(map[common.Address][]*domain.Pool, len(neighbors))
		for tokenB, pools := range neighbors {
			readyPools := make([]*domain.Pool, 0, len(pools))
			for _, p := range pools {
				if p.Ready() {
					readyPools = append(readyPools, p)
				}
			}
			if len(readyPools) == 0 {
				continue
			}
			sortPoolsByOutputLiquidity(readyPools, tokenA)
			if len(readyPools) > MaxPoolsPerPair {
				readyPools = readyPools[:MaxPoolsPerPair]
			}
			newNeighbors[tokenB] = readyPools
		}
		if len(newNeighbors) > 0 {
			newAdj[tokenA] = newNeighbors
		}
	}

	g.snapshot.Store(&graphSnapshot{adj: newAdj, pools: newPools})
	g.poolCount.Store(int64(len(g.pools)))
	g.readyPoolCount.Store(readyCount)
	metrics.PoolCount.Set(float64(len(g.pools)))
	metrics.ReadyPoolCount.Set(float64(readyCount))
}

// sortPoolsByOutputLiquidity orders pools by the reserve on the far side of
// inputToken, descending, so the cap keeps the deepest pools. V3 pools sort
// by active liquidity.
func sortPoolsByOutputLiquidity(pools []*domain.Pool, inputToken common.Address) {
	if len(pools) <= 1 {
		return
	}
	sort.Slice(pools, func(i, j int) bool {
		return outputLiquidity(pools[i], inputToken).Cmp(outputLiquidity(pools[j], inputToken)) > 0
	})
}

func outputLiquidity(pool *domain.Pool, inputToken common.Address) *big.Int {
	switch pool.Type {
	case domain.PoolTypeV2:
		if pool.V2 == nil {
			return big.NewInt(0)
		}
		if pool.Token0 == inputToken {
			return pool.V2.Reserve1
		}
		return pool.V2.Reserve0
	case domain.PoolTypeV3:
		if pool.V3 == nil || pool.V3.Liquidity == nil {
			return big.NewInt(0)
		}
		return pool.V3.Liquidity
	}
	return big.NewInt(0)
}

func (g *Graph) getSnapshot() *graphSnapshot {
	return g.snapshot.Load().(*graphSnapshot)
}

// AddPool inserts or updates a pool and rebuilds the snapshot.
func (g *Graph) AddPool(pool *domain.Pool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addPoolLocked(pool)
	g.rebuildSnapshot()
}

// AddPoolsBatch inserts multiple pools with a single snapshot rebuild.
func (g *Graph) AddPoolsBatch(pools []*domain.Pool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, pool := range pools {
		g.addPoolLocked(pool)
	}
	g.rebuildSnapshot()
}

func (g *Graph) addPoolLocked(pool *domain.Pool) {
	if _, exists := g.pools[pool.Address]; exists {
		g.pools[pool.Address] = pool
		g.updateEdge(pool.Token0, pool.Token1, pool)
		g.updateEdge(pool.Token1, pool.Token0, pool)
		return
	}

	g.pools[pool.Address] = pool
	g.addEdge(pool.Token0, pool.Token1, pool)
	g.addEdge(pool.Token1, pool.Token0, pool)
}

func (g *Graph) addEdge(from, to common.Address, pool *domain.Pool) {
	if _, ok := g.adj[from]; !ok {
		g.adj[from] = make(map[common.Address][]*domain.Pool)
	}
	g.adj[from][to] = append(g.adj[from][to], pool)
}

func (g *Graph) updateEdge(from, to common.Address, pool *domain.Pool) {
	if neighbors, ok := g.adj[from]; ok {
		for i, p := range neighbors[to] {
			if p.Address == pool.Address {
				neighbors[to][i] = pool
				return
			}
		}
	}
	g.addEdge(from, to, pool)
}

// RemovePool drops a pool and rebuilds the snapshot.
func (g *Graph) RemovePool(address common.Address) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pool, exists := g.pools[address]
	if !exists {
		return
	}
	delete(g.pools, address)
	g.removeEdge(pool.Token0, pool.Token1, address)
	g.removeEdge(pool.Token1, pool.Token0, address)
	g.rebuildSnapshot()
}

func (g *Graph) removeEdge(from, to, poolAddress common.Address) {
	neighbors, ok := g.adj[from]
	if !ok {
		return
	}
	pools, ok := neighbors[to]
	if !ok {
		return
	}
	kept := make([]*domain.Pool, 0, len(pools))
	for _, p := range pools {
		if p.Address != poolAddress {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		delete(neighbors, to)
	} else {
		neighbors[to] = kept
	}
	if len(neighbors) == 0 {
		delete(g.adj, from)
	}
}

// RefreshSnapshot rebuilds the snapshot after in-place pool state updates.
func (g *Graph) RefreshSnapshot() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rebuildSnapshot()
}

// GetPool returns a pool by address (lock-free).
func (g *Graph) GetPool(address common.Address) *domain.Pool {
	return g.getSnapshot().pools[address]
}

// GetAllPools returns all pools, ready or not (lock-free).
func (g *Graph) GetAllPools() []*domain.Pool {
	snap := g.getSnapshot()
	pools := make([]*domain.Pool, 0, len(snap.pools))
	for _, p := range snap.pools {
		pools = append(pools, p)
	}
	return pools
}

// GetDirectPools returns the ready pools connecting two tokens, deepest
// first (lock-free).
func (g *Graph) GetDirectPools(tokenA, tokenB common.Address) []*domain.Pool {
	snap := g.getSnapshot()
	if neighbors, ok := snap.adj[tokenA]; ok {
		return neighbors[tokenB]
	}
	return nil
}

// PoolsForPairs collects the ready pools for a candidate pair set,
// preserving pair order and skipping empty pairs.
func (g *Graph) PoolsForPairs(pairs []TokenPair) []*domain.Pool {
	snap := g.getSnapshot()
	seen := make(map[common.Address]struct{})
	out := make([]*domain.Pool, 0, len(pairs))
	for _, pair := range pairs {
		neighbors, ok := snap.adj[pair.A.RoutingAddress()]
		if !ok {
			continue
		}
		for _, p := range neighbors[pair.B.RoutingAddress()] {
			if _, dup := seen[p.Address]; dup {
				continue
			}
			seen[p.Address] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func (g *Graph) PoolCount() int      { return int(g.poolCount.Load()) }
func (g *Graph) ReadyPoolCount() int { return int(g.readyPoolCount.Load()) }
