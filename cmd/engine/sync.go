package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/hazeflow/swap-engine/internal/chain"
	"github.com/hazeflow/swap-engine/internal/domain"
	"github.com/hazeflow/swap-engine/internal/persistence"
	"github.com/hazeflow/swap-engine/internal/router"
)

// poolSync tracks pool data freshness for the reconciler. Ready flips once
// the first refresh completes; Syncing is true while one is in flight.
type poolSync struct {
	ready   atomic.Bool
	syncing atomic.Bool
}

func (p *poolSync) Ready() bool   { return p.ready.Load() }
func (p *poolSync) Syncing() bool { return p.syncing.Load() }

// watchBlocks polls the chain head and refreshes every tracked pool's state
// when a new block lands. A single multicall batch per protocol covers the
// whole graph.
func watchBlocks(ctx context.Context, dispatcher chain.Dispatcher, cache *chain.DataCache, graph *router.Graph, storage *persistence.Storage, src *poolSync, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastBlock uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		block, err := dispatcher.BlockNumber(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("block number poll failed")
			continue
		}
		if block <= lastBlock {
			continue
		}
		lastBlock = block
		cache.Advance(block)

		src.syncing.Store(true)
		if err := refreshPools(ctx, cache, graph); err != nil {
			log.Warn().Err(err).Uint64("block", block).Msg("pool refresh failed")
			src.syncing.Store(false)
			continue
		}
		src.syncing.Store(false)
		src.ready.Store(true)

		if storage != nil {
			if err := storage.SaveLastBlock(cache.ChainID(), block); err != nil {
				log.Warn().Err(err).Msg("failed to persist last block")
			}
		}
		log.Debug().Uint64("block", block).Int("ready", graph.ReadyPoolCount()).Msg("pool state refreshed")
	}
}

// refreshPools re-reads reserves for V2 pairs and slot0/liquidity for V3
// pools, then swaps updated copies into the graph. Loaded tick windows are
// carried over; only the current price and in-range liquidity change.
func refreshPools(ctx context.Context, cache *chain.DataCache, graph *router.Graph) error {
	pools := graph.GetAllPools()
	if len(pools) == 0 {
		return nil
	}

	var v2Pools, v3Pools []*domain.Pool
	var v2Addrs, v3Addrs []common.Address
	for _, p := range pools {
		switch p.Type {
		case domain.PoolTypeV2:
			v2Pools = append(v2Pools, p)
			v2Addrs = append(v2Addrs, p.Address)
		case domain.PoolTypeV3:
			v3Pools = append(v3Pools, p)
			v3Addrs = append(v3Addrs, p.Address)
		}
	}

	block := cache.LatestBlock()
	updated := make([]*domain.Pool, 0, len(pools))

	if len(v2Addrs) > 0 {
		reserves, err := chain.FetchReserves(ctx, cache, v2Addrs)
		if err != nil {
			return err
		}
		for i, r := range reserves {
			if !r.Valid {
				continue
			}
			next := *v2Pools[i]
			next.V2 = &domain.V2State{Reserve0: r.Reserve0, Reserve1: r.Reserve1}
			next.LastUpdatedBlock = block
			updated = append(updated, &next)
		}
	}

	if len(v3Addrs) > 0 {
		states, err := chain.FetchPoolStateV3(ctx, cache, v3Addrs)
		if err != nil {
			return err
		}
		for i, st := range states {
			if !st.Valid {
				continue
			}
			prev := v3Pools[i]
			next := *prev
			state := domain.V3State{
				SqrtPriceX96: st.SqrtPriceX96,
				Liquidity:    st.Liquidity,
				Tick:         st.Tick,
			}
			if prev.V3 != nil {
				state.TickSpacing = prev.V3.TickSpacing
				state.Ticks = prev.V3.Ticks
			}
			next.V3 = &state
			next.LastUpdatedBlock = block
			updated = append(updated, &next)
		}
	}

	if len(updated) > 0 {
		graph.AddPoolsBatch(updated)
	}
	return nil
}
