package router

import (
	"math/big"
	"sync"
	"testing"

	"github.com/hazeflow/swap-engine/internal/domain"
)

func TestGraphAddRemovePool(t *testing.T) {
	g := NewGraph()
	pool := v2Pool(1, tokenA, tokenB, 10_000, 10_000)
	g.AddPool(pool)

	if g.PoolCount() != 1 || g.ReadyPoolCount() != 1 {
		t.Fatalf("counts: %d/%d", g.PoolCount(), g.ReadyPoolCount())
	}
	if got := g.GetPool(pool.Address); got == nil {
		t.Fatal("pool not found by address")
	}
	if pools := g.GetDirectPools(tokenA, tokenB); len(pools) != 1 {
		t.Fatalf("expected 1 direct pool, got %d", len(pools))
	}
	if pools := g.GetDirectPools(tokenB, tokenA); len(pools) != 1 {
		t.Fatal("adjacency must be bidirectional")
	}

	g.RemovePool(pool.Address)
	if g.PoolCount() != 0 {
		t.Fatal("pool not removed")
	}
	if pools := g.GetDirectPools(tokenA, tokenB); len(pools) != 0 {
		t.Fatal("edge not removed")
	}
}

func TestGraphFiltersUnreadyPools(t *testing.T) {
	g := NewGraph()
	ready := v2Pool(1, tokenA, tokenB, 10_000, 10_000)
	empty := v2Pool(2, tokenA, tokenB, 0, 0)
	g.AddPoolsBatch([]*domain.Pool{ready, empty})

	if g.PoolCount() != 2 {
		t.Fatalf("expected 2 pools, got %d", g.PoolCount())
	}
	if g.ReadyPoolCount() != 1 {
		t.Fatalf("expected 1 ready pool, got %d", g.ReadyPoolCount())
	}
	pools := g.GetDirectPools(tokenA, tokenB)
	if len(pools) != 1 || pools[0].Address != ready.Address {
		t.Fatal("adjacency must only hold ready pools")
	}
}

func TestGraphCapsPoolsPerPair(t *testing.T) {
	g := NewGraph()
	pools := make([]*domain.Pool, 0, MaxPoolsPerPair+3)
	for i := 0; i < MaxPoolsPerPair+3; i++ {
		reserve := int64(10_000 * (i + 1))
		pools = append(pools, v2Pool(byte(i+1), tokenA, tokenB, reserve, reserve))
	}
	g.AddPoolsBatch(pools)

	direct := g.GetDirectPools(tokenA, tokenB)
	if len(direct) != MaxPoolsPerPair {
		t.Fatalf("expected cap of %d, got %d", MaxPoolsPerPair, len(direct))
	}
	// Deepest pools survive the cap, sorted descending.
	for i := 1; i < len(direct); i++ {
		prev := outputLiquidity(direct[i-1], tokenA)
		cur := outputLiquidity(direct[i], tokenA)
		if prev.Cmp(cur) < 0 {
			t.Fatal("pools not sorted by output liquidity")
		}
	}
	if direct[0].V2.Reserve0.Cmp(big.NewInt(10_000*int64(MaxPoolsPerPair+3))) != 0 {
		t.Fatal("deepest pool missing after cap")
	}
}

func TestGraphUpdateExistingPool(t *testing.T) {
	g := NewGraph()
	pool := v2Pool(1, tokenA, tokenB, 10_000, 10_000)
	g.AddPool(pool)

	updated := v2Pool(1, tokenA, tokenB, 99_000, 99_000)
	g.AddPool(updated)

	if g.PoolCount() != 1 {
		t.Fatalf("update must not duplicate, got %d pools", g.PoolCount())
	}
	got := g.GetPool(pool.Address)
	if got.V2.Reserve0.Int64() != 99_000 {
		t.Fatalf("stale reserves after update: %s", got.V2.Reserve0)
	}
}

func TestGraphConcurrentReadsDuringWrites(t *testing.T) {
	g := NewGraph()
	g.AddPool(v2Pool(1, tokenA, tokenB, 10_000, 10_000))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			reserve := int64(10_000 + i)
			g.AddPool(v2Pool(byte(2+i%100), tokenA, tokenC, reserve, reserve))
		}
	}()

	for i := 0; i < 1000; i++ {
		_ = g.GetDirectPools(tokenA, tokenB)
		_ = g.GetAllPools()
		_ = g.PoolCount()
	}
	close(stop)
	wg.Wait()
}
