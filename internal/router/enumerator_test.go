package router

import (
	"math/big"
	"testing"

	"github.com/hazeflow/swap-engine/internal/domain"
)

func enumeratorWithPools(pools ...*domain.Pool) *Enumerator {
	graph := NewGraph()
	graph.AddPoolsBatch(pools)
	return NewEnumerator(graph, testBases(), 3)
}

func TestEnumerateDirectAndIndirect(t *testing.T) {
	enum := enumeratorWithPools(
		v2Pool(1, tokenA, tokenC, 10_000, 10_000),
		v2Pool(2, tokenA, tokenB, 10_000, 10_000),
		v2Pool(3, tokenB, tokenC, 10_000, 10_000),
	)

	routes := enum.Enumerate(testToken(tokenA, "AAA"), testToken(tokenC, "CCC"), AllPools)
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	hops := map[int]int{}
	for _, r := range routes {
		hops[r.Hops()]++
	}
	if hops[1] != 1 || hops[2] != 1 {
		t.Fatalf("expected one direct and one 2-hop route, got %v", hops)
	}
}

func TestEnumerateDistinctFeeTiers(t *testing.T) {
	enum := enumeratorWithPools(
		v3Pool(1, tokenA, tokenC, 500, big.NewInt(500_000), nil),
		v3Pool(2, tokenA, tokenC, 3000, big.NewInt(500_000), nil),
		v3Pool(3, tokenA, tokenC, 10000, big.NewInt(500_000), nil),
	)

	routes := enum.Enumerate(testToken(tokenA, "AAA"), testToken(tokenC, "CCC"), OnlyV3)
	if len(routes) != 3 {
		t.Fatalf("each fee tier is a distinct route, expected 3, got %d", len(routes))
	}
}

func TestEnumerateNoPoolReuseOnCycle(t *testing.T) {
	// A-B, B-C, and A-C form a cycle; no route may traverse the same pool
	// twice, and no route may revisit a token.
	enum := enumeratorWithPools(
		v2Pool(1, tokenA, tokenB, 10_000, 10_000),
		v2Pool(2, tokenB, tokenC, 10_000, 10_000),
		v2Pool(3, tokenA, tokenC, 10_000, 10_000),
		v2Pool(4, tokenB, tokenD, 10_000, 10_000),
		v2Pool(5, tokenC, tokenD, 10_000, 10_000),
	)

	routes := enum.Enumerate(testToken(tokenA, "AAA"), testToken(tokenC, "CCC"), AllPools)
	for _, route := range routes {
		seen := map[string]bool{}
		for _, pool := range route.Pools {
			if seen[pool.Address.Hex()] {
				t.Fatalf("route reuses pool %s", pool.Address.Hex())
			}
			seen[pool.Address.Hex()] = true
		}
		tokens := map[string]bool{}
		for _, tokenAddr := range route.Path {
			if tokens[tokenAddr.Hex()] {
				t.Fatalf("route revisits token %s", tokenAddr.Hex())
			}
			tokens[tokenAddr.Hex()] = true
		}
	}
}

func TestEnumerateRespectsMaxHops(t *testing.T) {
	graph := NewGraph()
	graph.AddPoolsBatch([]*domain.Pool{
		v2Pool(1, tokenA, tokenB, 10_000, 10_000),
		v2Pool(2, tokenB, tokenD, 10_000, 10_000),
		v2Pool(3, tokenD, tokenC, 10_000, 10_000),
	})
	enum := NewEnumerator(graph, testBases(), 2)

	routes := enum.Enumerate(testToken(tokenA, "AAA"), testToken(tokenC, "CCC"), AllPools)
	if len(routes) != 0 {
		t.Fatalf("3-hop path must be cut at maxHops 2, got %d routes", len(routes))
	}

	enum = NewEnumerator(graph, testBases(), 3)
	routes = enum.Enumerate(testToken(tokenA, "AAA"), testToken(tokenC, "CCC"), AllPools)
	if len(routes) != 1 {
		t.Fatalf("expected the 3-hop route, got %d", len(routes))
	}
}

func TestEnumerateSameToken(t *testing.T) {
	enum := enumeratorWithPools(v2Pool(1, tokenA, tokenB, 10_000, 10_000))
	if routes := enum.Enumerate(testToken(tokenA, "AAA"), testToken(tokenA, "AAA"), AllPools); routes != nil {
		t.Fatalf("same-token enumeration must be empty, got %d routes", len(routes))
	}
}

func TestEnumeratePoolTypeFilter(t *testing.T) {
	enum := enumeratorWithPools(
		v2Pool(1, tokenA, tokenC, 10_000, 10_000),
		v3Pool(2, tokenA, tokenC, 3000, big.NewInt(500_000), nil),
	)

	v2Routes := enum.Enumerate(testToken(tokenA, "AAA"), testToken(tokenC, "CCC"), OnlyV2)
	v3Routes := enum.Enumerate(testToken(tokenA, "AAA"), testToken(tokenC, "CCC"), OnlyV3)
	all := enum.Enumerate(testToken(tokenA, "AAA"), testToken(tokenC, "CCC"), AllPools)

	if len(v2Routes) != 1 || v2Routes[0].Pools[0].Type != domain.PoolTypeV2 {
		t.Fatalf("v2 filter: got %d routes", len(v2Routes))
	}
	if len(v3Routes) != 1 || v3Routes[0].Pools[0].Type != domain.PoolTypeV3 {
		t.Fatalf("v3 filter: got %d routes", len(v3Routes))
	}
	if len(all) != 2 {
		t.Fatalf("unfiltered: expected 2 routes, got %d", len(all))
	}
}
