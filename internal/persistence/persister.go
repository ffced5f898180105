package persistence

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hazeflow/swap-engine/internal/domain"
)

// PoolSource yields the pools worth persisting. The router graph satisfies
// this.
type PoolSource interface {
	GetAllPools() []*domain.Pool
	ReadyPoolCount() int
}

// Persister snapshots the pool set to storage on a fixed interval.
type Persister struct {
	storage  *Storage
	source   PoolSource
	interval time.Duration
}

const DefaultPersistInterval = 5 * time.Minute

func NewPersister(storage *Storage, source PoolSource, interval time.Duration) *Persister {
	if interval <= 0 {
		interval = DefaultPersistInterval
	}
	return &Persister{storage: storage, source: source, interval: interval}
}

// Run persists until ctx is cancelled, then takes one final snapshot so a
// clean shutdown never loses the latest state.
func (p *Persister) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.Snapshot()
			return
		case <-ticker.C:
			p.Snapshot()
		}
	}
}

func (p *Persister) Snapshot() {
	pools := p.source.GetAllPools()
	if len(pools) == 0 {
		return
	}
	if err := p.storage.SavePoolBatch(pools); err != nil {
		log.Error().Err(err).Msg("[storage] periodic snapshot failed")
	}
}
