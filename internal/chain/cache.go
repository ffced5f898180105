package chain

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/hazeflow/swap-engine/internal/metrics"
)

// DataCache coalesces and caches batched on-chain reads. Results are valid
// for exactly one block: the first fetch of a batch at the current block
// dispatches a multicall, concurrent fetches of the same batch wait on that
// round trip, and a block advance invalidates everything at once.
type DataCache struct {
	chainID    uint64
	contract   common.Address
	dispatcher Dispatcher

	mu       sync.Mutex
	active   bool
	latest   uint64
	entries  map[uint64]*cacheEntry
	inflight map[uint64]*flight
}

type cacheEntry struct {
	block   uint64
	results []CallResult
}

type flight struct {
	done    chan struct{}
	results []CallResult
	err     error
}

func NewDataCache(dispatcher Dispatcher, contract common.Address, chainID uint64) *DataCache {
	return &DataCache{
		chainID:    chainID,
		contract:   contract,
		dispatcher: dispatcher,
		active:     true,
		entries:    make(map[uint64]*cacheEntry),
		inflight:   make(map[uint64]*flight),
	}
}

func (c *DataCache) ChainID() uint64 { return c.chainID }

// SetActive flips the whole cache on or off. An inactive cache answers
// every fetch with invalid results and never touches the dispatcher.
func (c *DataCache) SetActive(active bool) {
	c.mu.Lock()
	c.active = active
	c.mu.Unlock()
}

// LatestBlock returns the newest block the cache has observed.
func (c *DataCache) LatestBlock() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Advance moves the cache to block. Stale entries are dropped wholesale.
// Moves backwards are ignored so a lagging RPC node cannot resurrect old
// state.
func (c *DataCache) Advance(block uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if block <= c.latest {
		return
	}
	c.latest = block
	for key, entry := range c.entries {
		if entry.block < block {
			delete(c.entries, key)
		}
	}
}

// Fetch returns one result per call, order-preserving. Calls with a zero
// target come back invalid without being dispatched; failures of individual
// calls inside the batch do not poison their neighbours.
func (c *DataCache) Fetch(ctx context.Context, calls []Call) ([]CallResult, error) {
	if len(calls) == 0 {
		return nil, ErrEmptyBatch
	}

	results := make([]CallResult, len(calls))
	dispatchable := make([]Call, 0, len(calls))
	positions := make([]int, 0, len(calls))
	for i, call := range calls {
		if call.Target == (common.Address{}) {
			continue
		}
		dispatchable = append(dispatchable, call)
		positions = append(positions, i)
	}
	if len(dispatchable) == 0 {
		return results, nil
	}

	batch, err := c.fetchBatch(ctx, dispatchable)
	if err != nil {
		return nil, err
	}
	for j, pos := range positions {
		results[pos] = batch[j]
	}
	return results, nil
}

func (c *DataCache) fetchBatch(ctx context.Context, calls []Call) ([]CallResult, error) {
	key := batchKey(calls)

	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return make([]CallResult, len(calls)), nil
	}
	if entry, ok := c.entries[key]; ok && entry.block >= c.latest {
		results := cloneResults(entry.results)
		c.mu.Unlock()
		metrics.CacheHits.Inc()
		return results, nil
	}
	if fl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		metrics.CacheHits.Inc()
		select {
		case <-fl.done:
			return cloneResults(fl.results), fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	fl := &flight{done: make(chan struct{})}
	c.inflight[key] = fl
	c.mu.Unlock()

	metrics.CacheMisses.Inc()
	block, results, err := Aggregate(ctx, c.dispatcher, c.contract, calls)

	c.mu.Lock()
	delete(c.inflight, key)
	if err == nil {
		if block > c.latest {
			c.latest = block
		}
		c.entries[key] = &cacheEntry{block: block, results: results}
	}
	c.mu.Unlock()

	fl.results = results
	fl.err = err
	close(fl.done)

	if err != nil {
		log.Warn().Err(err).Uint64("chain_id", c.chainID).Int("batch_size", len(calls)).Msg("multicall batch failed")
		return nil, err
	}
	return cloneResults(results), nil
}

// Peek is the non-blocking read. A pending round trip for the batch yields
// loading results; a cold cache yields ok=false.
func (c *DataCache) Peek(calls []Call) ([]CallResult, bool) {
	dispatchable := make([]Call, 0, len(calls))
	positions := make([]int, 0, len(calls))
	for i, call := range calls {
		if call.Target == (common.Address{}) {
			continue
		}
		dispatchable = append(dispatchable, call)
		positions = append(positions, i)
	}
	results := make([]CallResult, len(calls))
	if len(dispatchable) == 0 {
		return results, true
	}
	key := batchKey(dispatchable)

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok && entry.block >= c.latest {
		for j, pos := range positions {
			results[pos] = entry.results[j]
		}
		return results, true
	}
	if _, ok := c.inflight[key]; ok {
		for _, pos := range positions {
			results[pos] = CallResult{Loading: true}
		}
		return results, true
	}
	return nil, false
}

func batchKey(calls []Call) uint64 {
	h := fnv.New64a()
	for _, call := range calls {
		h.Write(call.Target.Bytes())
		h.Write(call.CallData)
	}
	return h.Sum64()
}

func cloneResults(results []CallResult) []CallResult {
	out := make([]CallResult, len(results))
	copy(out, results)
	return out
}
