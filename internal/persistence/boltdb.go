// Package persistence stores verified pools in a local bolt database so the
// graph warms up from disk instead of rediscovering every pool on boot.
package persistence

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/hazeflow/swap-engine/internal/domain"
)

const (
	PoolsBucket = "pools"
	MetaBucket  = "meta"

	DefaultDBPath = "./data/swap-engine.db"

	lastBlockKey = "lastBlock"
)

// StoredPool is the on-disk shape of a pool. Big integers are decimal
// strings; sonic round-trips them without precision loss.
type StoredPool struct {
	Address          string `json:"address"`
	ChainID          uint64 `json:"chainId"`
	Type             uint8  `json:"type"`
	Token0           string `json:"token0"`
	Token1           string `json:"token1"`
	FeePPM           uint32 `json:"feePpm"`
	Reserve0         string `json:"reserve0,omitempty"`
	Reserve1         string `json:"reserve1,omitempty"`
	LastUpdatedBlock uint64 `json:"lastUpdatedBlock"`

	V3 *StoredV3State `json:"v3,omitempty"`
}

// StoredV3State carries the concentrated-liquidity snapshot. The tick window
// is not persisted; it is reloaded from chain on the first refresh.
type StoredV3State struct {
	SqrtPriceX96 string `json:"sqrtPriceX96"`
	Liquidity    string `json:"liquidity"`
	Tick         int32  `json:"tick"`
	TickSpacing  int32  `json:"tickSpacing"`
}

type Storage struct {
	db     *bolt.DB
	dbPath string
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	os.MkdirAll(filepath.Dir(dbPath), 0755)

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", dbPath, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{PoolsBucket, MetaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("[storage] opened database")
	return &Storage{db: db, dbPath: dbPath}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) SavePool(pool *domain.Pool) error {
	data, err := sonic.Marshal(poolToStored(pool))
	if err != nil {
		return fmt.Errorf("failed to marshal pool: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(PoolsBucket)).Put(poolKey(pool), data)
	})
}

// SavePoolBatch writes all pools in one transaction.
func (s *Storage) SavePoolBatch(pools []*domain.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(PoolsBucket))
		for _, pool := range pools {
			data, err := sonic.Marshal(poolToStored(pool))
			if err != nil {
				return fmt.Errorf("failed to marshal pool %s: %w", pool.Address.Hex(), err)
			}
			if err := bucket.Put(poolKey(pool), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Int("count", len(pools)).Msg("[storage] failed to save pool batch")
		return err
	}
	log.Info().Int("count", len(pools)).Msg("[storage] saved pool batch")
	return nil
}

func (s *Storage) DeletePool(pool *domain.Pool) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(PoolsBucket)).Delete(poolKey(pool))
	})
}

// LoadAllPools reads every stored pool, skipping records that no longer
// decode. Corrupt entries are logged and dropped, not fatal.
func (s *Storage) LoadAllPools() ([]*domain.Pool, error) {
	var pools []*domain.Pool
	failed := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(PoolsBucket)).ForEach(func(k, v []byte) error {
			var stored StoredPool
			if err := sonic.Unmarshal(v, &stored); err != nil {
				log.Error().Str("key", string(k)).Err(err).Msg("[storage] failed to unmarshal pool, skipping")
				failed++
				return nil
			}
			pool, err := storedToPool(&stored)
			if err != nil {
				log.Error().Str("key", string(k)).Err(err).Msg("[storage] failed to convert stored pool, skipping")
				failed++
				return nil
			}
			pools = append(pools, pool)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	if failed > 0 {
		log.Error().Int("loaded", len(pools)).Int("failed", failed).Msg("[storage] pool loading completed with errors")
	} else {
		log.Info().Int("loaded", len(pools)).Msg("[storage] pool loading completed")
	}
	return pools, nil
}

func (s *Storage) PoolCount() (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(PoolsBucket)).Stats().KeyN
		return nil
	})
	return count, err
}

// SaveLastBlock records the newest block the stored pools were read at, so a
// warm start knows how stale its snapshot is.
func (s *Storage) SaveLastBlock(chainID, block uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		key := fmt.Sprintf("%s:%d", lastBlockKey, chainID)
		return tx.Bucket([]byte(MetaBucket)).Put([]byte(key), []byte(fmt.Sprintf("%d", block)))
	})
}

func (s *Storage) LastBlock(chainID uint64) (uint64, error) {
	var block uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		key := fmt.Sprintf("%s:%d", lastBlockKey, chainID)
		raw := tx.Bucket([]byte(MetaBucket)).Get([]byte(key))
		if raw == nil {
			return nil
		}
		_, err := fmt.Sscanf(string(raw), "%d", &block)
		return err
	})
	return block, err
}

// poolKey namespaces by chain so one database can hold multiple chains.
func poolKey(pool *domain.Pool) []byte {
	return []byte(fmt.Sprintf("%d:%s", pool.ChainID, pool.Address.Hex()))
}

func poolToStored(pool *domain.Pool) *StoredPool {
	stored := &StoredPool{
		Address:          pool.Address.Hex(),
		ChainID:          pool.ChainID,
		Type:             uint8(pool.Type),
		Token0:           pool.Token0.Hex(),
		Token1:           pool.Token1.Hex(),
		FeePPM:           pool.FeePPM,
		LastUpdatedBlock: pool.LastUpdatedBlock,
	}
	if pool.V2 != nil {
		if pool.V2.Reserve0 != nil {
			stored.Reserve0 = pool.V2.Reserve0.String()
		}
		if pool.V2.Reserve1 != nil {
			stored.Reserve1 = pool.V2.Reserve1.String()
		}
	}
	if pool.V3 != nil && pool.V3.SqrtPriceX96 != nil && pool.V3.Liquidity != nil {
		stored.V3 = &StoredV3State{
			SqrtPriceX96: pool.V3.SqrtPriceX96.String(),
			Liquidity:    pool.V3.Liquidity.String(),
			Tick:         pool.V3.Tick,
			TickSpacing:  pool.V3.TickSpacing,
		}
	}
	return stored
}

func storedToPool(stored *StoredPool) (*domain.Pool, error) {
	if !common.IsHexAddress(stored.Address) {
		return nil, fmt.Errorf("invalid address %q", stored.Address)
	}
	if !common.IsHexAddress(stored.Token0) || !common.IsHexAddress(stored.Token1) {
		return nil, fmt.Errorf("invalid token address in pool %s", stored.Address)
	}
	pool := &domain.Pool{
		Address:          common.HexToAddress(stored.Address),
		ChainID:          stored.ChainID,
		Type:             domain.PoolType(stored.Type),
		Token0:           common.HexToAddress(stored.Token0),
		Token1:           common.HexToAddress(stored.Token1),
		FeePPM:           stored.FeePPM,
		LastUpdatedBlock: stored.LastUpdatedBlock,
	}

	switch pool.Type {
	case domain.PoolTypeV2:
		r0, ok0 := new(big.Int).SetString(stored.Reserve0, 10)
		r1, ok1 := new(big.Int).SetString(stored.Reserve1, 10)
		if !ok0 || !ok1 {
			return nil, fmt.Errorf("invalid reserves in pool %s", stored.Address)
		}
		pool.V2 = &domain.V2State{Reserve0: r0, Reserve1: r1}
	case domain.PoolTypeV3:
		if stored.V3 == nil {
			return nil, fmt.Errorf("v3 pool %s has no state", stored.Address)
		}
		sqrtPrice, ok0 := new(big.Int).SetString(stored.V3.SqrtPriceX96, 10)
		liquidity, ok1 := new(big.Int).SetString(stored.V3.Liquidity, 10)
		if !ok0 || !ok1 {
			return nil, fmt.Errorf("invalid v3 state in pool %s", stored.Address)
		}
		pool.V3 = &domain.V3State{
			SqrtPriceX96: sqrtPrice,
			Liquidity:    liquidity,
			Tick:         stored.V3.Tick,
			TickSpacing:  stored.V3.TickSpacing,
		}
	default:
		return nil, fmt.Errorf("unknown pool type %d", stored.Type)
	}
	return pool, nil
}
